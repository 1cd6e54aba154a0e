package token

import (
	"context"
	"testing"
	"time"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/adapter/memstore"
	"github.com/alemudanse/dispatch/internal/domain"
)

func newTestService(store *memstore.Store) *Service {
	return NewService(store, logger.Nop())
}

func seedOrder(store *memstore.Store, id string) {
	store.AddOrder(domain.Order{ID: id, Number: "1001", CreatedAt: time.Now()})
}

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memstore.New()
	seedOrder(store, "7")
	svc := newTestService(store)

	tok, err := svc.Issue(ctx, "7", PurposePOD, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(tok) != Length {
		t.Fatalf("token length = %d, want %d", len(tok), Length)
	}

	orderID, err := svc.Validate(ctx, tok, PurposePOD)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if orderID != "7" {
		t.Errorf("order id = %q, want %q", orderID, "7")
	}
}

func TestValidateUnknownToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memstore.New()
	seedOrder(store, "7")
	svc := newTestService(store)

	if _, err := svc.Issue(ctx, "7", PurposePOD, time.Hour); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err := svc.Validate(ctx, "not-a-real-token", PurposePOD)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("err = %v, want kind %s", err, domain.KindNotFound)
	}
}

func TestValidateEmptyToken(t *testing.T) {
	t.Parallel()
	svc := newTestService(memstore.New())

	_, err := svc.Validate(context.Background(), "", PurposePOD)
	if !domain.IsKind(err, domain.KindInvalidParams) {
		t.Errorf("err = %v, want kind %s", err, domain.KindInvalidParams)
	}
}

func TestExpiredTokenIsExpiredNotNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memstore.New()
	seedOrder(store, "7")
	svc := newTestService(store)

	base := time.Now()
	svc.now = func() time.Time { return base }
	tok, err := svc.Issue(ctx, "7", PurposeTrack, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = svc.Validate(ctx, tok, PurposeTrack)
	if !domain.IsKind(err, domain.KindExpired) {
		t.Errorf("err = %v, want kind %s", err, domain.KindExpired)
	}

	// The token stays stored; a second attempt keeps failing the same way.
	_, err = svc.Validate(ctx, tok, PurposeTrack)
	if !domain.IsKind(err, domain.KindExpired) {
		t.Errorf("second attempt err = %v, want kind %s", err, domain.KindExpired)
	}
}

func TestReissueInvalidatesOldToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memstore.New()
	seedOrder(store, "7")
	svc := newTestService(store)

	first, err := svc.Issue(ctx, "7", PurposePOD, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := svc.Issue(ctx, "7", PurposePOD, time.Hour)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if first == second {
		t.Fatal("reissue returned the same token")
	}

	if _, err := svc.Validate(ctx, second, PurposePOD); err != nil {
		t.Fatalf("Validate new token: %v", err)
	}
	_, err = svc.Validate(ctx, first, PurposePOD)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("old token err = %v, want kind %s", err, domain.KindNotFound)
	}
}

func TestPurposesAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memstore.New()
	seedOrder(store, "7")
	svc := newTestService(store)

	tok, err := svc.Issue(ctx, "7", PurposePOD, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = svc.Validate(ctx, tok, PurposeTrack)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("cross-purpose err = %v, want kind %s", err, domain.KindNotFound)
	}
}

func TestConsumeClearsToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memstore.New()
	seedOrder(store, "7")
	svc := newTestService(store)

	tok, err := svc.Issue(ctx, "7", PurposeTrack, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := svc.Consume(ctx, "7", PurposeTrack); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	_, err = svc.Validate(ctx, tok, PurposeTrack)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("err = %v, want kind %s", err, domain.KindNotFound)
	}
}

func TestUnknownPurpose(t *testing.T) {
	t.Parallel()
	svc := newTestService(memstore.New())

	_, err := svc.Issue(context.Background(), "7", "badge", time.Hour)
	if !domain.IsKind(err, domain.KindInvalidParams) {
		t.Errorf("err = %v, want kind %s", err, domain.KindInvalidParams)
	}
}
