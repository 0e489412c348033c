package uistate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileIsZero(t *testing.T) {
	st := Load(filepath.Join(t.TempDir(), FileName))
	if st != (State{}) {
		t.Fatalf("Load = %+v, want zero state", st)
	}
	if st := Load(""); st != (State{}) {
		t.Fatalf("Load(\"\") = %+v, want zero state", st)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := Path(filepath.Join(t.TempDir(), "nested", "data"))
	want := State{Theme: "Kanagawa", View: "History"}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := Load(path); got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
}

func TestLoad_TrimsAndIgnoresMalformed(t *testing.T) {
	dir := t.TempDir()

	trimmed := filepath.Join(dir, "trimmed.toml")
	if err := os.WriteFile(trimmed, []byte("theme = \"  Slate \"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := Load(trimmed); got.Theme != "Slate" || got.View != "" {
		t.Fatalf("Load = %+v", got)
	}

	broken := filepath.Join(dir, "broken.toml")
	if err := os.WriteFile(broken, []byte("theme = [unterminated"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := Load(broken); got != (State{}) {
		t.Fatalf("Load malformed = %+v, want zero state", got)
	}
}

func TestSave_EmptyPath(t *testing.T) {
	if err := Save(" ", State{Theme: "Slate"}); err == nil {
		t.Fatalf("Save with empty path succeeded")
	}
}
