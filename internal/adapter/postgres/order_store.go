package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
)

// orderStore adapts the external order repository: typed reads over the
// orders table, attribute upserts against order_meta.
type orderStore struct {
	db DB
}

func NewOrderStore(db DB) interfaces.OrderStore {
	return &orderStore{db: db}
}

func (s *orderStore) Load(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, number, status, email, phone, address, created_at
		FROM orders
		WHERE id = $1
	`
	order, err := scanOrder(s.db.QueryRow(ctx, query, oid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "order not found")
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	attrs, err := s.loadMeta(ctx, []int64{oid})
	if err != nil {
		return nil, err
	}
	domain.ApplyAttributes(order, attrs[oid])
	return order, nil
}

func (s *orderStore) GetMeta(ctx context.Context, id, key string) (string, error) {
	oid, err := parseOrderID(id)
	if err != nil {
		return "", err
	}

	var value string
	query := `SELECT meta_value FROM order_meta WHERE order_id = $1 AND meta_key = $2`
	if err := s.db.QueryRow(ctx, query, oid, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read attribute %s: %w", key, err)
	}
	return value, nil
}

func (s *orderStore) SetMeta(ctx context.Context, id, key, value string) error {
	oid, err := parseOrderID(id)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO order_meta (order_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value
	`
	if _, err := s.db.Exec(ctx, query, oid, key, value); err != nil {
		return fmt.Errorf("failed to set attribute %s: %w", key, err)
	}
	return nil
}

func (s *orderStore) SetMetaIfUnset(ctx context.Context, id, key, value string) error {
	oid, err := parseOrderID(id)
	if err != nil {
		return err
	}

	// ON CONFLICT DO NOTHING makes the first write win atomically.
	query := `
		INSERT INTO order_meta (order_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, meta_key) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, oid, key, value); err != nil {
		return fmt.Errorf("failed to set attribute %s: %w", key, err)
	}
	return nil
}

func (s *orderStore) DeleteMeta(ctx context.Context, id, key string) error {
	oid, err := parseOrderID(id)
	if err != nil {
		return err
	}

	query := `DELETE FROM order_meta WHERE order_id = $1 AND meta_key = $2`
	if _, err := s.db.Exec(ctx, query, oid, key); err != nil {
		return fmt.Errorf("failed to delete attribute %s: %w", key, err)
	}
	return nil
}

func (s *orderStore) FindByMeta(ctx context.Context, key, value string) (string, error) {
	var oid int64
	query := `SELECT order_id FROM order_meta WHERE meta_key = $1 AND meta_value = $2 LIMIT 1`
	if err := s.db.QueryRow(ctx, query, key, value).Scan(&oid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find order by attribute %s: %w", key, err)
	}
	return strconv.FormatInt(oid, 10), nil
}

func (s *orderStore) ListRecent(ctx context.Context, limit int) ([]*domain.Order, error) {
	query := `
		SELECT id, number, status, email, phone, address, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`
	return s.listOrders(ctx, query, limit)
}

func (s *orderStore) ListAssigned(ctx context.Context, driverID string, limit int) ([]*domain.Order, error) {
	query := `
		SELECT o.id, o.number, o.status, o.email, o.phone, o.address, o.created_at
		FROM orders o
		JOIN order_meta m ON m.order_id = o.id
		WHERE m.meta_key = $1 AND m.meta_value = $2
		ORDER BY o.created_at DESC
		LIMIT $3
	`
	return s.listOrders(ctx, query, domain.MetaAssignedDriver, driverID, limit)
}

func (s *orderStore) ListCreatedBetween(ctx context.Context, start, end time.Time, driverID string) ([]*domain.Order, error) {
	if driverID != "" {
		query := `
			SELECT o.id, o.number, o.status, o.email, o.phone, o.address, o.created_at
			FROM orders o
			JOIN order_meta m ON m.order_id = o.id
			WHERE o.created_at BETWEEN $1 AND $2
			  AND m.meta_key = $3 AND m.meta_value = $4
			ORDER BY o.created_at DESC
		`
		return s.listOrders(ctx, query, start, end, domain.MetaAssignedDriver, driverID)
	}
	query := `
		SELECT id, number, status, email, phone, address, created_at
		FROM orders
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at DESC
	`
	return s.listOrders(ctx, query, start, end)
}

func (s *orderStore) FindByNumberAndEmail(ctx context.Context, number, email string) (string, error) {
	var oid int64
	query := `SELECT id FROM orders WHERE number = $1 AND lower(email) = lower($2) LIMIT 1`
	if err := s.db.QueryRow(ctx, query, number, email).Scan(&oid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find order by number: %w", err)
	}
	return strconv.FormatInt(oid, 10), nil
}

func (s *orderStore) UpdateStatus(ctx context.Context, id, status string) error {
	oid, err := parseOrderID(id)
	if err != nil {
		return err
	}

	query := `UPDATE orders SET status = $1 WHERE id = $2`
	if _, err := s.db.Exec(ctx, query, status, oid); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

// listOrders runs a query returning order rows, then hydrates attributes
// for the whole batch with a single meta query.
func (s *orderStore) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	var ids []int64
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		oid, _ := strconv.ParseInt(order.ID, 10, 64)
		ids = append(ids, oid)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	attrs, err := s.loadMeta(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, order := range orders {
		domain.ApplyAttributes(order, attrs[ids[i]])
	}
	return orders, nil
}

func (s *orderStore) loadMeta(ctx context.Context, ids []int64) (map[int64]map[string]string, error) {
	query := `SELECT order_id, meta_key, meta_value FROM order_meta WHERE order_id = ANY($1)`
	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes: %w", err)
	}
	defer rows.Close()

	attrs := make(map[int64]map[string]string, len(ids))
	for rows.Next() {
		var oid int64
		var key, value string
		if err := rows.Scan(&oid, &key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		if attrs[oid] == nil {
			attrs[oid] = make(map[string]string)
		}
		attrs[oid][key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attributes: %w", err)
	}
	return attrs, nil
}

func scanOrder(row Row) (*domain.Order, error) {
	var order domain.Order
	var oid int64
	if err := row.Scan(&oid, &order.Number, &order.Status, &order.Email, &order.Phone, &order.Address, &order.CreatedAt); err != nil {
		return nil, err
	}
	order.ID = strconv.FormatInt(oid, 10)
	return &order, nil
}

func parseOrderID(id string) (int64, error) {
	oid, err := strconv.ParseInt(id, 10, 64)
	if err != nil || oid <= 0 {
		return 0, domain.E(domain.KindInvalidParams, "invalid order id")
	}
	return oid, nil
}
