// Package uistate persists terminal UI settings between runs. The file lives
// in the data directory as ui.toml and only ever holds cosmetic choices; the
// backend owns everything else.
package uistate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// FileName is the state file created inside the data directory.
const FileName = "ui.toml"

// State holds the UI choices remembered across runs.
type State struct {
	Theme string `toml:"theme"`
	View  string `toml:"view"`
}

// Path returns the state file location inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads the saved state. A missing, unreadable or malformed file yields
// the zero State so the UI falls back to its configured defaults.
func Load(path string) State {
	var st State
	if strings.TrimSpace(path) == "" {
		return st
	}

	file, err := os.Open(path)
	if err != nil {
		return st
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return st
	}
	if err := toml.Unmarshal(bytes, &st); err != nil {
		return State{}
	}
	st.Theme = strings.TrimSpace(st.Theme)
	st.View = strings.TrimSpace(st.View)
	return st
}

// Save writes st to path, creating directories as needed.
func Save(path string, st State) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("state path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	bytes, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal ui state: %w", err)
	}
	if err := os.WriteFile(path, bytes, 0o644); err != nil {
		return fmt.Errorf("write ui state: %w", err)
	}
	return nil
}
