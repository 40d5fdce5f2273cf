package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/muurk/tramesniff/internal/codec"
)

// DictionaryRow is a saved dictionary entry. HexPattern is stored compact
// and uppercase ("4C4C").
type DictionaryRow struct {
	ID          int64  `json:"id"`
	HexPattern  string `json:"hex_pattern"`
	Description string `json:"description"`
}

// ListDictionary returns every entry in id order.
func (s *Store) ListDictionary(ctx context.Context) ([]DictionaryRow, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `select id, hex_pattern, description from dictionary order by id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dictionary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []DictionaryRow
	for rows.Next() {
		var d DictionaryRow
		if err := rows.Scan(&d.ID, &d.HexPattern, &d.Description); err != nil {
			return nil, fmt.Errorf("failed to scan dictionary entry: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dictionary: %w", err)
	}
	return out, nil
}

// AddDictionaryEntry stores a translation for hexPattern. The pattern is
// normalized first, so "4c 4c" and "4C4C" collide on the unique key.
func (s *Store) AddDictionaryEntry(ctx context.Context, hexPattern, description string) (int64, error) {
	db, err := s.db()
	if err != nil {
		return 0, err
	}
	key := codec.CompactHex(hexPattern)
	if key == "" || len(key)%2 != 0 {
		return 0, fmt.Errorf("invalid hex pattern %q", hexPattern)
	}
	return insert(ctx, db,
		`insert into dictionary (hex_pattern, description) values (?, ?)`,
		key, description,
	)
}

// LookupDictionary returns the translation stored for hexPattern, ignoring
// case and whitespace.
func (s *Store) LookupDictionary(ctx context.Context, hexPattern string) (string, error) {
	db, err := s.db()
	if err != nil {
		return "", err
	}

	var description string
	err = db.QueryRowContext(ctx,
		`select description from dictionary where hex_pattern = ?`,
		codec.CompactHex(hexPattern),
	).Scan(&description)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("dictionary entry %q: %w", hexPattern, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up dictionary entry: %w", err)
	}
	return description, nil
}

// DeleteDictionaryEntry removes the entry for hexPattern.
func (s *Store) DeleteDictionaryEntry(ctx context.Context, hexPattern string) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	err = execOne(ctx, db, `delete from dictionary where hex_pattern = ?`, codec.CompactHex(hexPattern))
	if err != nil {
		return fmt.Errorf("failed to delete dictionary entry %q: %w", hexPattern, err)
	}
	return nil
}

// LoadDictionary builds a decoding snapshot from every stored entry.
func (s *Store) LoadDictionary(ctx context.Context) (*codec.Dictionary, error) {
	rows, err := s.ListDictionary(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]codec.DictionaryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, codec.DictionaryEntry{HexPattern: r.HexPattern, Translation: r.Description})
	}
	return codec.NewDictionary(entries), nil
}
