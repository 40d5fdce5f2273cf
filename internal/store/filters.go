package store

import (
	"context"
	"fmt"

	"github.com/muurk/tramesniff/internal/highlight"
)

// FilterRule is a saved highlight rule.
type FilterRule struct {
	ID      int64  `json:"id" csv:"id"`
	Name    string `json:"name" csv:"name"`
	Color   string `json:"color" csv:"color"`
	Pattern string `json:"pattern" csv:"pattern"`
}

// Rule converts the row to a highlight rule.
func (f FilterRule) Rule() highlight.Rule {
	return highlight.Rule{Pattern: f.Pattern, Color: f.Color}
}

// Rules converts rows to highlight rules, keeping their order.
func Rules(filters []FilterRule) []highlight.Rule {
	out := make([]highlight.Rule, 0, len(filters))
	for _, f := range filters {
		out = append(out, f.Rule())
	}
	return out
}

// ListFilters returns every saved rule in id order.
func (s *Store) ListFilters(ctx context.Context) ([]FilterRule, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `select id, name, color, pattern from custom_filter order by id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query filters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FilterRule
	for rows.Next() {
		var f FilterRule
		if err := rows.Scan(&f.ID, &f.Name, &f.Color, &f.Pattern); err != nil {
			return nil, fmt.Errorf("failed to scan filter: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate filters: %w", err)
	}
	return out, nil
}

// InsertFilter saves f and returns its new id.
func (s *Store) InsertFilter(ctx context.Context, f FilterRule) (int64, error) {
	db, err := s.db()
	if err != nil {
		return 0, err
	}
	if f.Pattern == "" {
		return 0, fmt.Errorf("filter pattern must not be empty")
	}
	return insert(ctx, db,
		`insert into custom_filter (name, color, pattern) values (?, ?, ?)`,
		f.Name, f.Color, f.Pattern,
	)
}

// UpdateFilter overwrites the row with f.ID.
func (s *Store) UpdateFilter(ctx context.Context, f FilterRule) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	err = execOne(ctx, db,
		`update custom_filter set name = ?, color = ?, pattern = ? where id = ?`,
		f.Name, f.Color, f.Pattern, f.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update filter %d: %w", f.ID, err)
	}
	return nil
}

// DeleteFilter removes the row with id.
func (s *Store) DeleteFilter(ctx context.Context, id int64) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	if err := execOne(ctx, db, `delete from custom_filter where id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete filter %d: %w", id, err)
	}
	return nil
}
