// Package report aggregates delivery outcomes over a date range for the
// per-driver performance view.
package report

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
)

const (
	dateLayout    = "2006-01-02"
	displayLayout = "2006-01-02 15:04"
)

type Service struct {
	store  interfaces.OrderStore
	logger logger.Logger
	now    func() time.Time
}

func NewService(store interfaces.OrderStore, lgr logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: lgr,
		now:    time.Now,
	}
}

// Report aggregates orders created within [start, end]. Dates are
// YYYY-MM-DD; start defaults to the first of the current month and end to
// today. The end date is inclusive through its last second. driverID 0
// means all drivers.
func (s *Service) Report(ctx context.Context, start, end string, driverID int64) (*interfaces.ReportResponse, error) {
	now := s.now().UTC()
	if start == "" {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	}
	if end == "" {
		end = now.Format(dateLayout)
	}

	startAt, err := time.ParseInLocation(dateLayout, start, time.UTC)
	if err != nil {
		return nil, domain.E(domain.KindInvalidParams, "invalid start date")
	}
	endAt, err := time.ParseInLocation(dateLayout, end, time.UTC)
	if err != nil {
		return nil, domain.E(domain.KindInvalidParams, "invalid end date")
	}
	endAt = endAt.Add(23*time.Hour + 59*time.Minute + 59*time.Second)

	driverFilter := ""
	if driverID > 0 {
		driverFilter = strconv.FormatInt(driverID, 10)
	}

	orders, err := s.store.ListCreatedBetween(ctx, startAt, endAt, driverFilter)
	if err != nil {
		return nil, err
	}

	resp := &interfaces.ReportResponse{Rows: []interfaces.ReportRow{}}
	var durationSum float64
	var durationCount int
	for _, o := range orders {
		switch o.DriverStatus {
		case domain.DriverStatusDelivered:
			resp.Completed++
		case domain.DriverStatusFailed:
			resp.Failed++
		}
		if o.AssignedAt != nil && o.DeliveredAt != nil {
			d := o.DeliveredAt.Sub(*o.AssignedAt).Seconds()
			if d < 0 {
				d = 0
			}
			durationSum += d
			durationCount++
		}
		resp.Rows = append(resp.Rows, interfaces.ReportRow{
			OrderID:      o.ID,
			DriverID:     o.AssignedDriverID,
			AssignedAt:   formatDisplay(o.AssignedAt),
			DeliveredAt:  formatDisplay(o.DeliveredAt),
			DriverStatus: string(o.DriverStatus),
		})
	}

	if total := resp.Completed + resp.Failed; total > 0 {
		resp.CompletionRate = math.Round(float64(resp.Completed)*100/float64(total)*10) / 10
	}
	if durationCount > 0 {
		resp.AvgMinutes = int(math.Round(durationSum / float64(durationCount) / 60))
	}
	return resp, nil
}

// WriteCSV renders the report rows as CSV.
func WriteCSV(w io.Writer, resp *interfaces.ReportResponse) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"order_id", "driver_id", "assigned_at", "delivered_at", "driver_status"}); err != nil {
		return err
	}
	for _, row := range resp.Rows {
		if err := cw.Write([]string{row.OrderID, row.DriverID, row.AssignedAt, row.DeliveredAt, row.DriverStatus}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDisplay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(displayLayout)
}
