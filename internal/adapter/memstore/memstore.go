// Package memstore is an in-memory OrderStore and DriverDirectory used by
// the service tests. It mirrors the attribute semantics of the postgres
// adapter: string values, first-write-wins SetMetaIfUnset, exact-match
// FindByMeta.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
)

type record struct {
	order domain.Order
	meta  map[string]string
}

type Store struct {
	mu      sync.Mutex
	records map[string]*record
}

func New() *Store {
	return &Store{records: make(map[string]*record)}
}

// AddOrder seeds one externally owned order. Attributes start empty.
func (s *Store) AddOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[o.ID] = &record{order: o, meta: make(map[string]string)}
}

func (s *Store) Load(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "order not found")
	}
	return r.view(), nil
}

func (s *Store) GetMeta(ctx context.Context, id, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return "", nil
	}
	return r.meta[key], nil
}

func (s *Store) SetMeta(ctx context.Context, id, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return domain.E(domain.KindNotFound, "order not found")
	}
	r.meta[key] = value
	return nil
}

func (s *Store) SetMetaIfUnset(ctx context.Context, id, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return domain.E(domain.KindNotFound, "order not found")
	}
	if _, exists := r.meta[key]; !exists {
		r.meta[key] = value
	}
	return nil
}

func (s *Store) DeleteMeta(ctx context.Context, id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.records[id]; ok {
		delete(r.meta, key)
	}
	return nil
}

func (s *Store) FindByMeta(ctx context.Context, key, value string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.records {
		if r.meta[key] == value {
			return id, nil
		}
	}
	return "", nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := s.sortedViews()
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) ListAssigned(ctx context.Context, driverID string, limit int) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orders []*domain.Order
	for _, o := range s.sortedViews() {
		if o.AssignedDriverID == driverID {
			orders = append(orders, o)
		}
		if len(orders) == limit {
			break
		}
	}
	return orders, nil
}

func (s *Store) ListCreatedBetween(ctx context.Context, start, end time.Time, driverID string) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orders []*domain.Order
	for _, o := range s.sortedViews() {
		if o.CreatedAt.Before(start) || o.CreatedAt.After(end) {
			continue
		}
		if driverID != "" && o.AssignedDriverID != driverID {
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (s *Store) FindByNumberAndEmail(ctx context.Context, number, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.records {
		if r.order.Number == number && strings.EqualFold(r.order.Email, email) {
			return id, nil
		}
	}
	return "", nil
}

func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return domain.E(domain.KindNotFound, "order not found")
	}
	r.order.Status = status
	return nil
}

func (r *record) view() *domain.Order {
	o := r.order
	domain.ApplyAttributes(&o, r.meta)
	return &o
}

func (s *Store) sortedViews() []*domain.Order {
	orders := make([]*domain.Order, 0, len(s.records))
	for _, r := range s.records {
		orders = append(orders, r.view())
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

// Drivers is an in-memory driver directory.
type Drivers struct {
	mu  sync.Mutex
	ids map[int64]bool
}

func NewDrivers(ids ...int64) *Drivers {
	d := &Drivers{ids: make(map[int64]bool)}
	for _, id := range ids {
		d.ids[id] = true
	}
	return d
}

func (d *Drivers) Exists(ctx context.Context, driverID int64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ids[driverID], nil
}

var (
	_ interfaces.OrderStore      = (*Store)(nil)
	_ interfaces.DriverDirectory = (*Drivers)(nil)
)
