package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the settings MediaGrab reads at startup.
type Config struct {
	BackendURL       string
	DataDir          string
	LogLevel         string
	CommandTimeout   time.Duration
	SaveDebounce     time.Duration
	ScheduleInterval time.Duration
	Theme            string
}

const (
	defaultConfigPath       = "~/.config/mediagrab/config.toml"
	defaultDataDir          = "~/.local/share/mediagrab"
	defaultBackendURL       = "127.0.0.1:7488"
	defaultLogLevel         = "info"
	defaultCommandTimeout   = 30 * time.Second
	defaultSaveDebounce     = 500 * time.Millisecond
	defaultScheduleInterval = 10 * time.Second
	defaultTheme            = "Nightfox"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BackendURL:       defaultBackendURL,
		DataDir:          mustExpand(defaultDataDir),
		LogLevel:         defaultLogLevel,
		CommandTimeout:   defaultCommandTimeout,
		SaveDebounce:     defaultSaveDebounce,
		ScheduleInterval: defaultScheduleInterval,
		Theme:            defaultTheme,
	}
}

// DefaultPath returns the expanded default config file location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

// Load locates and parses the MediaGrab config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		BackendURL       string `toml:"backend_url"`
		DataDir          string `toml:"data_dir"`
		LogLevel         string `toml:"log_level"`
		CommandTimeout   string `toml:"command_timeout"`
		SaveDebounce     string `toml:"save_debounce"`
		ScheduleInterval string `toml:"schedule_interval"`
		Theme            string `toml:"theme"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.BackendURL); v != "" {
		cfg.BackendURL = v
	}
	if v := strings.TrimSpace(raw.DataDir); v != "" {
		cfg.DataDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.Theme); v != "" {
		cfg.Theme = v
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"command_timeout", raw.CommandTimeout, &cfg.CommandTimeout},
		{"save_debounce", raw.SaveDebounce, &cfg.SaveDebounce},
		{"schedule_interval", raw.ScheduleInterval, &cfg.ScheduleInterval},
	}
	for _, d := range durations {
		parsed, ok, err := parseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if ok {
			*d.dst = parsed
		}
	}
	if cfg.ScheduleInterval == 0 {
		cfg.ScheduleInterval = defaultScheduleInterval
	}

	return cfg, nil
}

// LogPath returns the path to the MediaGrab log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir + "/mediagrab.log")
	}
	return filepath.Join(c.DataDir, "mediagrab.log")
}

func parseDuration(value string) (time.Duration, bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, false, err
	}
	if d < 0 {
		return 0, false, fmt.Errorf("negative duration %q", trimmed)
	}
	return d, true, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
