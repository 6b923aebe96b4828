// Package catalog exposes the read-only service catalog. Services are seeded
// and administered outside this API; booking and slot queries only ever see
// active rows.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrServiceNotFound is returned when a service id does not resolve to an
// active service.
var ErrServiceNotFound = errors.New("catalog: service not found")

// Service is one bookable treatment.
type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration"`
	IsActive        bool   `json:"is_active"`
}

// Store reads the services table.
type Store struct {
	db *sql.DB
}

// NewStore creates a catalog store backed by a database handle.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("catalog: db handle required")
	}
	return &Store{db: db}
}

// Active resolves a service id to its active catalog row. Inactive and
// unknown ids both report ErrServiceNotFound so callers cannot distinguish
// (and leak) retired services.
func (s *Store) Active(ctx context.Context, id string) (*Service, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, description, duration_minutes, is_active
		FROM services
		WHERE id = $1 AND is_active`, id)

	var svc Service
	err := row.Scan(&svc.ID, &svc.Name, &svc.Category, &svc.Description, &svc.DurationMinutes, &svc.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: load service %s: %w", id, err)
	}
	return &svc, nil
}

// ListActive returns every active service ordered by category then name,
// the order the public listing endpoint presents them in.
func (s *Store) ListActive(ctx context.Context) ([]Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, description, duration_minutes, is_active
		FROM services
		WHERE is_active
		ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var svc Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Category, &svc.Description, &svc.DurationMinutes, &svc.IsActive); err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate services: %w", err)
	}
	return services, nil
}
