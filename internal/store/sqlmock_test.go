package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/muurk/tramesniff/internal/codec"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := &Store{}
	if err := s.SetSQLForTesting(db, false); err != nil {
		t.Fatalf("SetSQLForTesting() error = %v", err)
	}
	return s, mock
}

func TestListFiltersQueryError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("disk I/O error")
	mock.ExpectQuery(`select id, name, color, pattern from custom_filter`).WillReturnError(boom)

	_, err := s.ListFilters(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("ListFilters() error = %v, want wrapped %v", err, boom)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsertFilterPrepareError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("database is locked")
	mock.ExpectPrepare(`insert into custom_filter`).WillReturnError(boom)

	_, err := s.InsertFilter(context.Background(), FilterRule{Color: "#FFFFFF", Pattern: "AA"})
	if !errors.Is(err, boom) {
		t.Errorf("InsertFilter() error = %v, want wrapped %v", err, boom)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeletePortConfigNoRows(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectPrepare(`delete from port_config where id = \?`).
		ExpectExec().
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeletePortConfig(context.Background(), 9)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("DeletePortConfig() error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLookupDictionaryNoRows(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`select description from dictionary where hex_pattern = \?`).
		WithArgs("4C4C").
		WillReturnError(sql.ErrNoRows)

	_, err := s.LookupDictionary(context.Background(), "4c 4c")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LookupDictionary() error = %v, want ErrNotFound", err)
	}
}

func TestCountFramesError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("no such table")
	mock.ExpectQuery(`select count\(\*\) from frame_capture`).WillReturnError(boom)

	if _, err := s.CountFrames(context.Background()); !errors.Is(err, boom) {
		t.Errorf("CountFrames() error = %v, want wrapped %v", err, boom)
	}
}

func TestRetranslateFramesUpdatesChangedRows(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "raw_bits", "raw_hexa", "raw_text", "timestamp"}).
		AddRow(1, "01000001", "41", "A", "2025-06-02T12:00:00Z").
		AddRow(2, "01000010", "42", "B", "2025-06-02T12:00:01Z")
	mock.ExpectQuery(`select id, raw_bits, raw_hexa, raw_text, timestamp from frame_capture`).WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectPrepare(`update frame_capture set raw_text = \? where id = \?`).
		ExpectExec().
		WithArgs("alpha", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	dict := codec.NewDictionary([]codec.DictionaryEntry{{HexPattern: "41", Translation: "alpha"}})
	changed, err := s.RetranslateFrames(context.Background(), dict)
	if err != nil {
		t.Fatalf("RetranslateFrames() error = %v", err)
	}
	if changed != 1 {
		t.Errorf("RetranslateFrames() = %d, want 1", changed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRetranslateFramesRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "raw_bits", "raw_hexa", "raw_text", "timestamp"}).
		AddRow(1, "01000001", "41", "A", "2025-06-02T12:00:00Z")
	boom := errors.New("constraint failed")
	mock.ExpectQuery(`from frame_capture`).WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectPrepare(`update frame_capture`).
		ExpectExec().
		WillReturnError(boom)
	mock.ExpectRollback()

	dict := codec.NewDictionary([]codec.DictionaryEntry{{HexPattern: "41", Translation: "alpha"}})
	if _, err := s.RetranslateFrames(context.Background(), dict); !errors.Is(err, boom) {
		t.Errorf("RetranslateFrames() error = %v, want wrapped %v", err, boom)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
