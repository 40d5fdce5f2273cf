package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/muurk/tramesniff/internal/codec"
	"github.com/muurk/tramesniff/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "sub", DefaultFile))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

func TestOpenIsRepeatable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), DefaultFile)

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if _, err := s.InsertFilter(ctx, FilterRule{Name: "sync", Color: "#FF0000", Pattern: "AA55"}); err != nil {
		t.Fatalf("InsertFilter() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer func() { _ = s.Close() }()

	filters, err := s.ListFilters(ctx)
	if err != nil {
		t.Fatalf("ListFilters() error = %v", err)
	}
	if len(filters) != 1 || filters[0].Pattern != "AA55" {
		t.Errorf("ListFilters() = %+v, want the filter saved before reopening", filters)
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestPortConfigCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p := PortConfig{Name: "bench", PortConfig: session.DefaultPortConfig()}
	id, err := s.InsertPortConfig(ctx, p)
	if err != nil {
		t.Fatalf("InsertPortConfig() error = %v", err)
	}

	got, err := s.GetPortConfig(ctx, id)
	if err != nil {
		t.Fatalf("GetPortConfig() error = %v", err)
	}
	if got.Name != "bench" || got.PortConfig != session.DefaultPortConfig() {
		t.Errorf("GetPortConfig() = %+v, want bench 9600 8N1", got)
	}
	if got.Label() != "bench" {
		t.Errorf("Label() = %q, want %q", got.Label(), "bench")
	}

	got.Name = ""
	got.BaudRate = 19200
	got.Parity = session.ParityEven
	if err := s.UpdatePortConfig(ctx, got); err != nil {
		t.Fatalf("UpdatePortConfig() error = %v", err)
	}

	list, err := s.ListPortConfigs(ctx)
	if err != nil {
		t.Fatalf("ListPortConfigs() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListPortConfigs() returned %d rows, want 1", len(list))
	}
	if list[0].Label() != "19200 8E1" {
		t.Errorf("Label() = %q, want %q", list[0].Label(), "19200 8E1")
	}

	if err := s.DeletePortConfig(ctx, id); err != nil {
		t.Fatalf("DeletePortConfig() error = %v", err)
	}
	if _, err := s.GetPortConfig(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPortConfig() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeletePortConfig(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeletePortConfig() twice error = %v, want ErrNotFound", err)
	}
	if err := s.UpdatePortConfig(ctx, got); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePortConfig() missing row error = %v, want ErrNotFound", err)
	}
}

func TestInsertPortConfigValidates(t *testing.T) {
	s := openTestStore(t)
	bad := PortConfig{PortConfig: session.PortConfig{BaudRate: 9600, Parity: "mark", DataBits: 8, StopBits: 1}}
	if _, err := s.InsertPortConfig(context.Background(), bad); err == nil {
		t.Error("InsertPortConfig() accepted an invalid parity")
	}
}

func TestFilterCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.InsertFilter(ctx, FilterRule{Name: "header", Color: "#FF0000", Pattern: "4A*"})
	if err != nil {
		t.Fatalf("InsertFilter() error = %v", err)
	}
	if _, err := s.InsertFilter(ctx, FilterRule{Name: "marker", Color: "#00FF00", Pattern: "0101"}); err != nil {
		t.Fatalf("InsertFilter() error = %v", err)
	}
	if _, err := s.InsertFilter(ctx, FilterRule{Name: "empty", Color: "#0000FF"}); err == nil {
		t.Error("InsertFilter() accepted an empty pattern")
	}

	if err := s.UpdateFilter(ctx, FilterRule{ID: first, Name: "header", Color: "#FFFF00", Pattern: "4A 2F"}); err != nil {
		t.Fatalf("UpdateFilter() error = %v", err)
	}

	filters, err := s.ListFilters(ctx)
	if err != nil {
		t.Fatalf("ListFilters() error = %v", err)
	}
	if len(filters) != 2 {
		t.Fatalf("ListFilters() returned %d rows, want 2", len(filters))
	}
	rules := Rules(filters)
	if rules[0].Pattern != "4A 2F" || rules[0].Color != "#FFFF00" {
		t.Errorf("rules[0] = %+v, want the updated header rule", rules[0])
	}
	if rules[1].Pattern != "0101" {
		t.Errorf("rules[1].Pattern = %q, want %q", rules[1].Pattern, "0101")
	}

	if err := s.DeleteFilter(ctx, first); err != nil {
		t.Fatalf("DeleteFilter() error = %v", err)
	}
	if err := s.DeleteFilter(ctx, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteFilter() twice error = %v, want ErrNotFound", err)
	}
}

func TestDictionary(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.AddDictionaryEntry(ctx, "4c 4c", "LL"); err != nil {
		t.Fatalf("AddDictionaryEntry() error = %v", err)
	}
	if _, err := s.AddDictionaryEntry(ctx, "41", "[A]"); err != nil {
		t.Fatalf("AddDictionaryEntry() error = %v", err)
	}
	if _, err := s.AddDictionaryEntry(ctx, "4C4C", "dup"); err == nil {
		t.Error("AddDictionaryEntry() accepted a duplicate normalized key")
	}
	if _, err := s.AddDictionaryEntry(ctx, "4C4", "odd"); err == nil {
		t.Error("AddDictionaryEntry() accepted an odd number of hex digits")
	}

	for _, key := range []string{"4C4C", " 4c4C ", "4C 4C"} {
		got, err := s.LookupDictionary(ctx, key)
		if err != nil {
			t.Errorf("LookupDictionary(%q) error = %v", key, err)
			continue
		}
		if got != "LL" {
			t.Errorf("LookupDictionary(%q) = %q, want %q", key, got, "LL")
		}
	}

	rows, err := s.ListDictionary(ctx)
	if err != nil {
		t.Fatalf("ListDictionary() error = %v", err)
	}
	if len(rows) != 2 || rows[0].HexPattern != "4C4C" {
		t.Errorf("ListDictionary() = %+v, want compact keys in id order", rows)
	}

	dict, err := s.LoadDictionary(ctx)
	if err != nil {
		t.Fatalf("LoadDictionary() error = %v", err)
	}
	if got := dict.Decode("4C 4C 41"); got != "LL[A]" {
		t.Errorf("Decode() = %q, want %q", got, "LL[A]")
	}

	if err := s.DeleteDictionaryEntry(ctx, "4c4c"); err != nil {
		t.Fatalf("DeleteDictionaryEntry() error = %v", err)
	}
	if _, err := s.LookupDictionary(ctx, "4C4C"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LookupDictionary() after delete error = %v, want ErrNotFound", err)
	}
}

func TestFrameCapture(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	at := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	first := codec.NewEntry("0100000101000010", nil)
	second := codec.NewEntry("01000011", nil)

	if _, err := s.InsertFrame(ctx, first, at); err != nil {
		t.Fatalf("InsertFrame() error = %v", err)
	}
	if _, err := s.InsertFrame(ctx, second, at.Add(time.Second)); err != nil {
		t.Fatalf("InsertFrame() error = %v", err)
	}

	n, err := s.CountFrames(ctx)
	if err != nil || n != 2 {
		t.Fatalf("CountFrames() = %d, %v, want 2", n, err)
	}

	frames, err := s.ListFrames(ctx, 0)
	if err != nil {
		t.Fatalf("ListFrames() error = %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("ListFrames() returned %d rows, want 2", len(frames))
	}
	if frames[0].Entry != first {
		t.Errorf("frames[0].Entry = %+v, want %+v", frames[0].Entry, first)
	}
	if !frames[1].Timestamp.Equal(at.Add(time.Second)) {
		t.Errorf("frames[1].Timestamp = %v, want %v", frames[1].Timestamp, at.Add(time.Second))
	}

	limited, err := s.ListFrames(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("ListFrames(1) = %d rows, %v, want 1", len(limited), err)
	}

	dict := codec.NewDictionary([]codec.DictionaryEntry{{HexPattern: "4142", Translation: "<AB>"}})
	changed, err := s.RetranslateFrames(ctx, dict)
	if err != nil {
		t.Fatalf("RetranslateFrames() error = %v", err)
	}
	if changed != 1 {
		t.Errorf("RetranslateFrames() = %d, want 1", changed)
	}

	frames, err = s.ListFrames(ctx, 0)
	if err != nil {
		t.Fatalf("ListFrames() error = %v", err)
	}
	entries := Entries(frames)
	if entries[0].Text != "<AB>" || entries[1].Text != "C" {
		t.Errorf("texts = %q, %q, want %q, %q", entries[0].Text, entries[1].Text, "<AB>", "C")
	}

	if err := s.ClearFrames(ctx); err != nil {
		t.Fatalf("ClearFrames() error = %v", err)
	}
	if n, _ := s.CountFrames(ctx); n != 0 {
		t.Errorf("CountFrames() after clear = %d, want 0", n)
	}
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := s.ListFilters(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ListFilters() error = %v, want ErrNotConnected", err)
	}
	if _, err := s.InsertFrame(ctx, codec.Entry{}, time.Now()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("InsertFrame() error = %v, want ErrNotConnected", err)
	}
	if _, err := s.LoadDictionary(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("LoadDictionary() error = %v, want ErrNotConnected", err)
	}
	if err := s.MigrateUp(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("MigrateUp() error = %v, want ErrNotConnected", err)
	}
}

func BenchmarkInsertFrame(b *testing.B) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(b.TempDir(), DefaultFile))
	if err != nil {
		b.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = s.Close() }()

	entry := codec.NewEntry("0100101000101111", nil)
	at := time.Now()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.InsertFrame(ctx, entry, at)
	}
}
