package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestBolt_SaveLoadAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := b.Save(KeyPreferences, record{Name: "prefs", Count: 3}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	b, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	var got record
	ok, err := b.Load(KeyPreferences, &got)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !ok || got.Name != "prefs" || got.Count != 3 {
		t.Fatalf("Load = %v %+v, want stored record", ok, got)
	}

	ok, err = b.Load(KeyHistory, &got)
	if err != nil || ok {
		t.Fatalf("Load(missing) = %v, %v; want false, nil", ok, err)
	}
}

func TestBolt_OpenCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	b, err := Open(dir)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("data dir not created: %v", err)
	}
}

func TestMemory_SaveLoadAndFailure(t *testing.T) {
	m := NewMemory()
	if err := m.Save(KeyQueue, []record{{Name: "a"}}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	var got []record
	if ok, err := m.Load(KeyQueue, &got); err != nil || !ok || len(got) != 1 {
		t.Fatalf("Load = %v, %v, %+v", ok, err, got)
	}

	boom := errors.New("disk full")
	m.FailWith(boom)
	if err := m.Save(KeyQueue, nil); !errors.Is(err, boom) {
		t.Fatalf("Save error = %v, want %v", err, boom)
	}
	// The earlier value survives a failed write.
	got = nil
	if ok, _ := m.Load(KeyQueue, &got); !ok || len(got) != 1 {
		t.Fatalf("value lost after failed save: %+v", got)
	}
}

func TestOr_NilFallsBackToNop(t *testing.T) {
	s := Or(nil)
	if err := s.Save(KeyQueue, 1); err != nil {
		t.Fatalf("Nop.Save returned error: %v", err)
	}
	var v int
	if ok, err := s.Load(KeyQueue, &v); ok || err != nil {
		t.Fatalf("Nop.Load = %v, %v; want false, nil", ok, err)
	}
}
