package store

import (
	"context"
	"fmt"
	"time"

	"github.com/muurk/tramesniff/internal/codec"
)

// Frame is one row of the capture log.
type Frame struct {
	ID        int64
	Entry     codec.Entry
	Timestamp time.Time
}

// InsertFrame appends entry to the capture log with the time at.
func (s *Store) InsertFrame(ctx context.Context, entry codec.Entry, at time.Time) (int64, error) {
	db, err := s.db()
	if err != nil {
		return 0, err
	}
	return insert(ctx, db,
		`insert into frame_capture (raw_bits, raw_hexa, raw_text, timestamp) values (?, ?, ?, ?)`,
		entry.Bits, entry.Hex, entry.Text, at.UTC().Format(time.RFC3339Nano),
	)
}

// ListFrames returns the capture log in insertion order. A limit of zero or
// less returns every row.
func (s *Store) ListFrames(ctx context.Context, limit int) ([]Frame, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx,
		`select id, raw_bits, raw_hexa, raw_text, timestamp from frame_capture order by id limit ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Frame
	for rows.Next() {
		var f Frame
		var ts string
		if err := rows.Scan(&f.ID, &f.Entry.Bits, &f.Entry.Hex, &f.Entry.Text, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		f.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp of frame %d: %w", f.ID, err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate frames: %w", err)
	}
	return out, nil
}

// Entries strips ids and timestamps from frames.
func Entries(frames []Frame) []codec.Entry {
	out := make([]codec.Entry, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Entry)
	}
	return out
}

// CountFrames returns the number of rows in the capture log.
func (s *Store) CountFrames(ctx context.Context) (int, error) {
	db, err := s.db()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `select count(*) from frame_capture`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count frames: %w", err)
	}
	return n, nil
}

// ClearFrames empties the capture log.
func (s *Store) ClearFrames(ctx context.Context) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `delete from frame_capture`); err != nil {
		return fmt.Errorf("failed to clear frames: %w", err)
	}
	return nil
}

// RetranslateFrames recomputes the text column of every captured frame with
// dict and returns the number of rows changed.
func (s *Store) RetranslateFrames(ctx context.Context, dict *codec.Dictionary) (int, error) {
	frames, err := s.ListFrames(ctx, 0)
	if err != nil {
		return 0, err
	}
	db, err := s.db()
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `update frame_capture set raw_text = ? where id = ?`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	changed := 0
	for _, f := range frames {
		text := dict.Decode(f.Entry.Hex)
		if text == f.Entry.Text {
			continue
		}
		if _, err := stmt.ExecContext(ctx, text, f.ID); err != nil {
			return 0, fmt.Errorf("failed to update frame %d: %w", f.ID, err)
		}
		changed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return changed, nil
}
