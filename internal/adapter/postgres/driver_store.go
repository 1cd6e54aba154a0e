package postgres

import (
	"context"
	"fmt"

	"github.com/alemudanse/dispatch/internal/interfaces"
)

// driverStore is the driver directory: assignment only needs existence.
type driverStore struct {
	db DB
}

func NewDriverStore(db DB) interfaces.DriverDirectory {
	return &driverStore{db: db}
}

func (s *driverStore) Exists(ctx context.Context, driverID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM drivers WHERE id = $1 AND active)`
	if err := s.db.QueryRow(ctx, query, driverID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up driver: %w", err)
	}
	return exists, nil
}
