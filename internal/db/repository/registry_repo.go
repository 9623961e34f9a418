package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistryRecord mirrors a row of the registry_entries table.
type RegistryRecord struct {
	EntryID   string
	Title     string
	URL       string
	UpdatedAt time.Time
}

// RegistryRepository persists the published-document registry.
type RegistryRepository struct {
	pool *pgxpool.Pool
}

func NewRegistryRepository(pool *pgxpool.Pool) *RegistryRepository {
	return &RegistryRepository{pool: pool}
}

// Upsert replaces entries whose id already exists and inserts the rest,
// all within one transaction so readers never see a half-applied batch.
func (r *RegistryRepository) Upsert(ctx context.Context, entries []RegistryRecord) error {
	if len(entries) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, e := range entries {
			if _, err := tx.Exec(ctx, `
				INSERT INTO registry_entries (entry_id, title, url, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (entry_id)
				DO UPDATE SET title = EXCLUDED.title, url = EXCLUDED.url, updated_at = now()`,
				e.EntryID, e.Title, e.URL); err != nil {
				return fmt.Errorf("upsert registry entry %s: %w", e.EntryID, err)
			}
		}
		return nil
	})
}

// List returns all registry entries ordered by id.
func (r *RegistryRepository) List(ctx context.Context) ([]RegistryRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT entry_id, title, url, updated_at
		FROM registry_entries ORDER BY entry_id`)
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}
	defer rows.Close()

	var out []RegistryRecord
	for rows.Next() {
		var rec RegistryRecord
		if err := rows.Scan(&rec.EntryID, &rec.Title, &rec.URL, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
