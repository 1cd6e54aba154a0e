package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/adapter/memstore"
	"github.com/alemudanse/dispatch/internal/domain"
)

func seedOrder(store *memstore.Store, id string, created time.Time, driver string, status domain.DriverStatus, assigned, delivered *time.Time) {
	store.AddOrder(domain.Order{ID: id, Number: "N" + id, CreatedAt: created})
	ctx := context.Background()
	if driver != "" {
		store.SetMeta(ctx, id, domain.MetaAssignedDriver, driver)
	}
	if status != "" {
		store.SetMeta(ctx, id, domain.MetaDriverStatus, string(status))
	}
	if assigned != nil {
		store.SetMeta(ctx, id, domain.MetaAssignedAt, domain.FormatUnix(*assigned))
	}
	if delivered != nil {
		store.SetMeta(ctx, id, domain.MetaDeliveredAt, domain.FormatUnix(*delivered))
	}
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tp(t time.Time) *time.Time { return &t }

func TestReportAggregates(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	created := at("2026-03-10T12:00:00Z")

	// 20 and 40 minute runs average to 30.
	seedOrder(store, "1", created, "5", domain.DriverStatusDelivered,
		tp(at("2026-03-10T12:00:00Z")), tp(at("2026-03-10T12:20:00Z")))
	seedOrder(store, "2", created, "5", domain.DriverStatusDelivered,
		tp(at("2026-03-10T13:00:00Z")), tp(at("2026-03-10T13:40:00Z")))
	seedOrder(store, "3", created, "5", domain.DriverStatusFailed, nil, nil)
	seedOrder(store, "4", created, "5", domain.DriverStatusEnRoute, nil, nil)

	svc := NewService(store, logger.Nop())
	resp, err := svc.Report(context.Background(), "2026-03-01", "2026-03-31", 5)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	if resp.Completed != 2 {
		t.Errorf("completed = %d, want 2", resp.Completed)
	}
	if resp.Failed != 1 {
		t.Errorf("failed = %d, want 1", resp.Failed)
	}
	if resp.CompletionRate != 66.7 {
		t.Errorf("completion rate = %v, want 66.7", resp.CompletionRate)
	}
	if resp.AvgMinutes != 30 {
		t.Errorf("avg minutes = %d, want 30", resp.AvgMinutes)
	}
	if len(resp.Rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(resp.Rows))
	}
}

func TestReportZeroDenominators(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	seedOrder(store, "1", at("2026-03-10T12:00:00Z"), "5", domain.DriverStatusEnRoute, nil, nil)

	svc := NewService(store, logger.Nop())
	resp, err := svc.Report(context.Background(), "2026-03-01", "2026-03-31", 0)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	if resp.CompletionRate != 0 {
		t.Errorf("completion rate = %v, want 0", resp.CompletionRate)
	}
	if resp.AvgMinutes != 0 {
		t.Errorf("avg minutes = %d, want 0", resp.AvgMinutes)
	}
}

func TestReportDriverFilter(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	created := at("2026-03-10T12:00:00Z")
	seedOrder(store, "1", created, "5", domain.DriverStatusDelivered, nil, nil)
	seedOrder(store, "2", created, "6", domain.DriverStatusDelivered, nil, nil)

	svc := NewService(store, logger.Nop())
	resp, err := svc.Report(context.Background(), "2026-03-01", "2026-03-31", 5)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].OrderID != "1" {
		t.Errorf("rows = %+v, want only order 1", resp.Rows)
	}
}

func TestReportEndDateInclusive(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	seedOrder(store, "1", at("2026-03-31T23:30:00Z"), "5", domain.DriverStatusDelivered, nil, nil)
	seedOrder(store, "2", at("2026-04-01T00:30:00Z"), "5", domain.DriverStatusDelivered, nil, nil)

	svc := NewService(store, logger.Nop())
	resp, err := svc.Report(context.Background(), "2026-03-01", "2026-03-31", 0)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].OrderID != "1" {
		t.Errorf("rows = %+v, want only the March order", resp.Rows)
	}
}

func TestReportInvalidDates(t *testing.T) {
	t.Parallel()
	svc := NewService(memstore.New(), logger.Nop())

	_, err := svc.Report(context.Background(), "03/01/2026", "", 0)
	if !domain.IsKind(err, domain.KindInvalidParams) {
		t.Errorf("err = %v, want kind %s", err, domain.KindInvalidParams)
	}
}

func TestReportDefaultsToCurrentMonth(t *testing.T) {
	t.Parallel()
	store := memstore.New()

	svc := NewService(store, logger.Nop())
	svc.now = func() time.Time { return at("2026-03-15T10:00:00Z") }

	seedOrder(store, "1", at("2026-03-02T12:00:00Z"), "5", domain.DriverStatusDelivered, nil, nil)
	seedOrder(store, "2", at("2026-02-27T12:00:00Z"), "5", domain.DriverStatusDelivered, nil, nil)

	resp, err := svc.Report(context.Background(), "", "", 0)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].OrderID != "1" {
		t.Errorf("rows = %+v, want only the current-month order", resp.Rows)
	}
}

func TestReportRowTimestampFormat(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	seedOrder(store, "1", at("2026-03-10T12:00:00Z"), "5", domain.DriverStatusDelivered,
		tp(at("2026-03-10T12:05:00Z")), tp(at("2026-03-10T12:45:00Z")))

	svc := NewService(store, logger.Nop())
	resp, err := svc.Report(context.Background(), "2026-03-01", "2026-03-31", 0)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	row := resp.Rows[0]
	if row.AssignedAt != "2026-03-10 12:05" {
		t.Errorf("assigned at = %q, want %q", row.AssignedAt, "2026-03-10 12:05")
	}
	if row.DeliveredAt != "2026-03-10 12:45" {
		t.Errorf("delivered at = %q, want %q", row.DeliveredAt, "2026-03-10 12:45")
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	seedOrder(store, "1", at("2026-03-10T12:00:00Z"), "5", domain.DriverStatusDelivered,
		tp(at("2026-03-10T12:05:00Z")), tp(at("2026-03-10T12:45:00Z")))

	svc := NewService(store, logger.Nop())
	resp, err := svc.Report(context.Background(), "2026-03-01", "2026-03-31", 0)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, resp); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header plus one row", len(lines))
	}
	if lines[0] != "order_id,driver_id,assigned_at,delivered_at,driver_status" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "1,5,2026-03-10 12:05,2026-03-10 12:45,delivered" {
		t.Errorf("row = %q", lines[1])
	}
}
