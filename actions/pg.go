package actions

import (
	"context"
	"database/sql"
	"fmt"
)

// PGStore keeps the catalog in the Postgres "actions" table (see db.Migrate).
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

// Load reads every category and key.
func (s *PGStore) Load(ctx context.Context) (Catalog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, key, template FROM actions ORDER BY category, key`)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	c := Catalog{}
	for rows.Next() {
		var category, key, tmpl string
		if err := rows.Scan(&category, &key, &tmpl); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if c[category] == nil {
			c[category] = map[string]string{}
		}
		c[category][key] = tmpl
	}
	return c, rows.Err()
}

// Put upserts category/key.
func (s *PGStore) Put(ctx context.Context, category, key, tmpl string) error {
	category, key = normalize(category, key)
	_, err := s.db.ExecContext(ctx, `INSERT INTO actions (category, key, template, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (category, key) DO UPDATE SET template = EXCLUDED.template, updated_at = NOW()`, category, key, tmpl)
	if err != nil {
		return fmt.Errorf("upsert action: %w", err)
	}
	return nil
}

// Delete removes category/key, distinguishing a missing category from a
// missing key.
func (s *PGStore) Delete(ctx context.Context, category, key string) error {
	category, key = normalize(category, key)
	res, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE category = $1 AND key = $2`, category, key)
	if err != nil {
		return fmt.Errorf("delete action: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM actions WHERE category = $1)`, category).Scan(&exists); err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !exists {
		return ErrCategoryNotFound
	}
	return ErrKeyNotFound
}
