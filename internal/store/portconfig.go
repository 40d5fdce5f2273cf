package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/muurk/tramesniff/internal/session"
)

// PortConfig is a saved sniff configuration.
type PortConfig struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	session.PortConfig
}

// Label returns the name, or the short settings form when unnamed.
func (p PortConfig) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.PortConfig.String()
}

const portConfigColumns = `id, name, baudrate, parity, databits, stopbits`

func scanPortConfig(row interface{ Scan(...any) error }) (PortConfig, error) {
	var p PortConfig
	var parity string
	if err := row.Scan(&p.ID, &p.Name, &p.BaudRate, &parity, &p.DataBits, &p.StopBits); err != nil {
		return PortConfig{}, err
	}
	p.Parity = session.Parity(parity)
	return p, nil
}

// ListPortConfigs returns every saved configuration in id order.
func (s *Store) ListPortConfigs(ctx context.Context) ([]PortConfig, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `select `+portConfigColumns+` from port_config order by id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query port configs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []PortConfig
	for rows.Next() {
		p, err := scanPortConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan port config: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate port configs: %w", err)
	}
	return out, nil
}

// GetPortConfig returns one configuration by id.
func (s *Store) GetPortConfig(ctx context.Context, id int64) (PortConfig, error) {
	db, err := s.db()
	if err != nil {
		return PortConfig{}, err
	}

	row := db.QueryRowContext(ctx, `select `+portConfigColumns+` from port_config where id = ?`, id)
	p, err := scanPortConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PortConfig{}, fmt.Errorf("port config %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return PortConfig{}, fmt.Errorf("failed to get port config: %w", err)
	}
	return p, nil
}

// InsertPortConfig validates and saves p, returning its new id.
func (s *Store) InsertPortConfig(ctx context.Context, p PortConfig) (int64, error) {
	db, err := s.db()
	if err != nil {
		return 0, err
	}
	if err := p.Validate(); err != nil {
		return 0, fmt.Errorf("invalid port config: %w", err)
	}

	return insert(ctx, db,
		`insert into port_config (name, baudrate, parity, databits, stopbits) values (?, ?, ?, ?, ?)`,
		p.Name, p.BaudRate, string(p.Parity), p.DataBits, p.StopBits,
	)
}

// UpdatePortConfig overwrites the row with p.ID.
func (s *Store) UpdatePortConfig(ctx context.Context, p PortConfig) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid port config: %w", err)
	}

	err = execOne(ctx, db,
		`update port_config set name = ?, baudrate = ?, parity = ?, databits = ?, stopbits = ? where id = ?`,
		p.Name, p.BaudRate, string(p.Parity), p.DataBits, p.StopBits, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update port config %d: %w", p.ID, err)
	}
	return nil
}

// DeletePortConfig removes the row with id.
func (s *Store) DeletePortConfig(ctx context.Context, id int64) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	if err := execOne(ctx, db, `delete from port_config where id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete port config %d: %w", id, err)
	}
	return nil
}
