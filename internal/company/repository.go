package company

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates no configuration exists for the company.
var ErrNotFound = errors.New("company: config not found")

// Repository reads company configuration from Postgres. The core never writes
// through it; configs are managed by the onboarding tooling.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		panic("company: db cannot be nil")
	}
	return &Repository{db: db}
}

// Get loads the stored JSON config for a company.
func (r *Repository) Get(ctx context.Context, companyID string) (*Config, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT config FROM companies WHERE company_id = $1`,
		companyID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("company: query config: %w", err)
	}
	return Decode(data)
}

// List returns the known company ids, used by admin endpoints.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT company_id FROM companies ORDER BY company_id`)
	if err != nil {
		return nil, fmt.Errorf("company: list companies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("company: scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("company: iterate companies: %w", err)
	}
	return ids, nil
}

// Touch records that a company config was read; used for staleness reporting.
func (r *Repository) Touch(ctx context.Context, companyID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE companies SET last_read_at = $2 WHERE company_id = $1`,
		companyID, at.UTC())
	if err != nil {
		return fmt.Errorf("company: touch config: %w", err)
	}
	return nil
}
