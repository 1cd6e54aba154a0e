package delivery

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/adapter/memstore"
	"github.com/alemudanse/dispatch/internal/app/ratelimit"
	"github.com/alemudanse/dispatch/internal/app/token"
	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
)

type capturePublisher struct {
	messages []interfaces.NotificationMessage
}

func (p *capturePublisher) PublishNotification(ctx context.Context, msg interfaces.NotificationMessage) error {
	p.messages = append(p.messages, msg)
	return nil
}

type fixture struct {
	svc       *Service
	store     *memstore.Store
	tokens    *token.Service
	publisher *capturePublisher
}

func newFixture(opts Options) *fixture {
	if opts.PODTokenTTL == 0 {
		opts.PODTokenTTL = 6 * time.Hour
	}
	if opts.TrackTokenTTL == 0 {
		opts.TrackTokenTTL = 2 * time.Hour
	}
	if opts.PODRateMax == 0 {
		opts.PODRateMax = 20
	}
	if opts.PODRateWindow == 0 {
		opts.PODRateWindow = 10 * time.Minute
	}
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = "http://track.local"
	}

	store := memstore.New()
	store.AddOrder(domain.Order{
		ID:        "1",
		Number:    "1001",
		Status:    "processing",
		Email:     "kim@example.com",
		Phone:     "+77010000000",
		Address:   "12 Abay Ave",
		CreatedAt: time.Now(),
	})

	tokens := token.NewService(store, logger.Nop())
	publisher := &capturePublisher{}
	svc := NewService(store, tokens, ratelimit.New(), publisher, logger.Nop(), opts)
	return &fixture{svc: svc, store: store, tokens: tokens, publisher: publisher}
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	t.Parallel()
	f := newFixture(Options{})

	err := f.svc.SetStatus(context.Background(), "1", "teleported")
	if !domain.IsKind(err, domain.KindBadStatus) {
		t.Errorf("err = %v, want kind %s", err, domain.KindBadStatus)
	}
}

func TestSetStatusStampsOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{})

	base := time.Now()
	f.svc.now = func() time.Time { return base }
	if err := f.svc.SetStatus(ctx, "1", domain.DriverStatusEnRoute); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	f.svc.now = func() time.Time { return base.Add(time.Hour) }
	if err := f.svc.SetStatus(ctx, "1", domain.DriverStatusEnRoute); err != nil {
		t.Fatalf("second SetStatus: %v", err)
	}

	o, err := f.store.Load(ctx, "1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o.DriverStatus != domain.DriverStatusEnRoute {
		t.Errorf("driver status = %q, want %q", o.DriverStatus, domain.DriverStatusEnRoute)
	}
	if o.EnRouteAt == nil {
		t.Fatal("en route timestamp unset")
	}
	if got, want := o.EnRouteAt.Unix(), base.Unix(); got != want {
		t.Errorf("en route at = %d, want first stamp %d", got, want)
	}
}

func TestSetStatusDeliveredCompletesOrderWhenConfigured(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{CompleteOrderOnDelivered: true})

	if err := f.svc.SetStatus(ctx, "1", domain.DriverStatusDelivered); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	o, err := f.store.Load(ctx, "1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o.Status != "completed" {
		t.Errorf("external status = %q, want %q", o.Status, "completed")
	}
	if o.DeliveredAt == nil {
		t.Error("delivered timestamp unset")
	}
}

func TestSetStatusDeliveredLeavesOrderByDefault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{})

	if err := f.svc.SetStatus(ctx, "1", domain.DriverStatusDelivered); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	o, err := f.store.Load(ctx, "1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o.Status != "processing" {
		t.Errorf("external status = %q, want untouched %q", o.Status, "processing")
	}
}

func TestInitiatePODPublishesLink(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{})

	if err := f.svc.InitiatePOD(ctx, "1", "5", domain.MethodEmail); err != nil {
		t.Fatalf("InitiatePOD: %v", err)
	}

	if len(f.publisher.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(f.publisher.messages))
	}
	msg := f.publisher.messages[0]
	if msg.Kind != interfaces.NotificationPODConfirm {
		t.Errorf("kind = %q, want %q", msg.Kind, interfaces.NotificationPODConfirm)
	}
	if msg.Email != "kim@example.com" {
		t.Errorf("email = %q, want order email", msg.Email)
	}
	if !strings.HasPrefix(msg.URL, "http://track.local/pod/confirm?token=") {
		t.Errorf("url = %q, want confirm link", msg.URL)
	}

	o, err := f.store.Load(ctx, "1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o.PODToken == "" {
		t.Error("pod token not stored")
	}
	if o.PODMethod != string(domain.MethodEmail) {
		t.Errorf("pod method = %q, want %q", o.PODMethod, domain.MethodEmail)
	}
}

func TestInitiatePODRejectsBadMethod(t *testing.T) {
	t.Parallel()
	f := newFixture(Options{})

	err := f.svc.InitiatePOD(context.Background(), "1", "5", "carrier-pigeon")
	if !domain.IsKind(err, domain.KindInvalidParams) {
		t.Errorf("err = %v, want kind %s", err, domain.KindInvalidParams)
	}
}

func TestInitiatePODRateLimited(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{PODRateMax: 20})

	for i := 0; i < 20; i++ {
		if err := f.svc.InitiatePOD(ctx, "1", "5", domain.MethodSMS); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}

	err := f.svc.InitiatePOD(ctx, "1", "5", domain.MethodSMS)
	if !domain.IsKind(err, domain.KindRateLimited) {
		t.Errorf("call 21 err = %v, want kind %s", err, domain.KindRateLimited)
	}

	// Another actor is unaffected.
	if err := f.svc.InitiatePOD(ctx, "1", "6", domain.MethodSMS); err != nil {
		t.Errorf("other actor err = %v, want nil", err)
	}
}

func TestConfirmPODIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{})

	if err := f.svc.InitiatePOD(ctx, "1", "5", domain.MethodEmail); err != nil {
		t.Fatalf("InitiatePOD: %v", err)
	}
	o, _ := f.store.Load(ctx, "1")
	tok := o.PODToken

	base := time.Now()
	f.svc.now = func() time.Time { return base }
	if err := f.svc.ConfirmPOD(ctx, tok); err != nil {
		t.Fatalf("ConfirmPOD: %v", err)
	}

	f.svc.now = func() time.Time { return base.Add(time.Hour) }
	if err := f.svc.ConfirmPOD(ctx, tok); err != nil {
		t.Fatalf("second ConfirmPOD: %v", err)
	}

	o, err := f.store.Load(ctx, "1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o.DriverStatus != domain.DriverStatusDelivered {
		t.Errorf("driver status = %q, want %q", o.DriverStatus, domain.DriverStatusDelivered)
	}
	if o.DeliveredAt == nil {
		t.Fatal("delivered timestamp unset")
	}
	if got, want := o.DeliveredAt.Unix(), base.Unix(); got != want {
		t.Errorf("delivered at = %d, want first confirmation %d", got, want)
	}
}

func TestConfirmPODExpiredToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{})

	tok, err := f.tokens.Issue(ctx, "1", token.PurposePOD, -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	err = f.svc.ConfirmPOD(ctx, tok)
	if !domain.IsKind(err, domain.KindExpired) {
		t.Errorf("err = %v, want kind %s", err, domain.KindExpired)
	}
}

func TestTrackByToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{})

	if err := f.svc.RequestLocation(ctx, "1", domain.MethodSMS); err != nil {
		t.Fatalf("RequestLocation: %v", err)
	}
	o, _ := f.store.Load(ctx, "1")
	tok := o.TrackToken

	if err := f.svc.UpdateDriverLocation(ctx, "1", 51.1, 71.4); err != nil {
		t.Fatalf("UpdateDriverLocation: %v", err)
	}

	resp, err := f.svc.Track(ctx, tok, "", "")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if resp.OrderID != "1" {
		t.Errorf("order id = %q, want %q", resp.OrderID, "1")
	}
	if resp.DriverLat != 51.1 || resp.DriverLng != 71.4 {
		t.Errorf("driver position = (%v, %v), want (51.1, 71.4)", resp.DriverLat, resp.DriverLng)
	}
	if resp.DriverLocAt == 0 {
		t.Error("driver location timestamp unset")
	}
	if resp.CustomerLat != 0 || resp.CustomerLocAt != 0 {
		t.Error("customer fields set without a shared position")
	}
	if resp.OrderStatus != "processing" {
		t.Errorf("order status = %q, want %q", resp.OrderStatus, "processing")
	}
}

func TestTrackFallbackByOrderAndEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{})

	resp, err := f.svc.Track(ctx, "", "1001", "KIM@example.com")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if resp.OrderID != "1" {
		t.Errorf("order id = %q, want %q", resp.OrderID, "1")
	}
}

func TestTrackFallbackDisabledWhenTokenOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(Options{TokenOnlyTracking: true})

	_, err := f.svc.Track(context.Background(), "", "1001", "kim@example.com")
	if !domain.IsKind(err, domain.KindInvalidParams) {
		t.Errorf("err = %v, want kind %s", err, domain.KindInvalidParams)
	}
}

func TestTrackFallbackHonorsExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{})

	if _, err := f.tokens.Issue(ctx, "1", token.PurposeTrack, -time.Minute); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err := f.svc.Track(ctx, "", "1001", "kim@example.com")
	if !domain.IsKind(err, domain.KindExpired) {
		t.Errorf("err = %v, want kind %s", err, domain.KindExpired)
	}
}

func TestTrackMissingIdentifiers(t *testing.T) {
	t.Parallel()
	f := newFixture(Options{})

	_, err := f.svc.Track(context.Background(), "", "", "")
	if !domain.IsKind(err, domain.KindInvalidParams) {
		t.Errorf("err = %v, want kind %s", err, domain.KindInvalidParams)
	}
}

func TestTrackUnknownFallbackOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(Options{})

	_, err := f.svc.Track(context.Background(), "", "9999", "nobody@example.com")
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("err = %v, want kind %s", err, domain.KindNotFound)
	}
}

func TestShareLocation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{})

	tok, err := f.tokens.Issue(ctx, "1", token.PurposeTrack, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := f.svc.ShareLocation(ctx, tok, 43.24, 76.95); err != nil {
		t.Fatalf("ShareLocation: %v", err)
	}

	o, err := f.store.Load(ctx, "1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o.CustomerLat == nil || *o.CustomerLat != 43.24 {
		t.Errorf("customer lat = %v, want 43.24", o.CustomerLat)
	}
	if o.CustomerLng == nil || *o.CustomerLng != 76.95 {
		t.Errorf("customer lng = %v, want 76.95", o.CustomerLng)
	}
	if o.CustomerLocAt == nil {
		t.Error("customer location timestamp unset")
	}
}

func TestShareLocationBadToken(t *testing.T) {
	t.Parallel()
	f := newFixture(Options{})

	err := f.svc.ShareLocation(context.Background(), "bogus", 1, 2)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("err = %v, want kind %s", err, domain.KindNotFound)
	}
}

func TestDriverOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(Options{})
	f.store.AddOrder(domain.Order{ID: "2", Number: "1002", Status: "processing", CreatedAt: time.Now()})

	for _, id := range []string{"1", "2"} {
		if err := f.store.SetMeta(ctx, id, domain.MetaAssignedDriver, "5"); err != nil {
			t.Fatalf("SetMeta: %v", err)
		}
	}
	if err := f.svc.SetStatus(ctx, "2", domain.DriverStatusEnRoute); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	all, err := f.svc.DriverOrders(ctx, "5", "")
	if err != nil {
		t.Fatalf("DriverOrders: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}

	// An order without an explicit driver status presents as assigned.
	assigned, err := f.svc.DriverOrders(ctx, "5", "assigned")
	if err != nil {
		t.Fatalf("DriverOrders assigned: %v", err)
	}
	if len(assigned) != 1 || assigned[0].ID != "1" {
		t.Errorf("assigned filter = %+v, want only order 1", assigned)
	}

	enRoute, err := f.svc.DriverOrders(ctx, "5", "en_route")
	if err != nil {
		t.Fatalf("DriverOrders en_route: %v", err)
	}
	if len(enRoute) != 1 || enRoute[0].ID != "2" {
		t.Errorf("en_route filter = %+v, want only order 2", enRoute)
	}
}
