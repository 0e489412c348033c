package model

import (
	"os"
	"path/filepath"
	"time"
)

// ScheduledDownload is a download deferred until ScheduledTime (unix ms).
type ScheduledDownload struct {
	ID            string         `json:"id"`
	Config        DownloadConfig `json:"config"`
	ScheduledTime int64          `json:"scheduledTime"`
	Enabled       bool           `json:"enabled"`
}

// Due reports whether the download should be promoted at now.
func (s ScheduledDownload) Due(now time.Time) bool {
	return s.Enabled && s.ScheduledTime <= now.UnixMilli()
}

// Preferences is the single global configuration record.
type Preferences struct {
	OutputFolder          string              `json:"outputFolder"`
	Format                string              `json:"format"`
	Quality               string              `json:"quality"`
	EmbedSubtitles        bool                `json:"embedSubtitles"`
	CookiesFromBrowser    string              `json:"cookiesFromBrowser,omitempty"`
	CookiesFilePath       string              `json:"cookiesFilePath,omitempty"`
	CheckUpdatesOnStartup bool                `json:"checkUpdatesOnStartup"`
	ProxyEnabled          bool                `json:"proxyEnabled"`
	ProxyURL              string              `json:"proxyUrl,omitempty"`
	BandwidthLimit        string              `json:"bandwidthLimit,omitempty"`
	FilenameTemplate      string              `json:"filenameTemplate,omitempty"`
	ScheduledDownloads    []ScheduledDownload `json:"scheduledDownloads"`
}

// DefaultPreferences returns the record used before any load completes.
func DefaultPreferences() Preferences {
	return Preferences{
		OutputFolder:          DefaultDownloadsFolder(),
		Format:                FormatVideoMP4,
		Quality:               QualityBest,
		CheckUpdatesOnStartup: true,
		ScheduledDownloads:    []ScheduledDownload{},
	}
}

// DefaultDownloadsFolder resolves ~/Downloads, falling back to the temp dir.
func DefaultDownloadsFolder() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "Downloads")
	}
	return filepath.Join(home, "Downloads")
}

// Clone returns a copy that shares no slices with p.
func (p Preferences) Clone() Preferences {
	dup := p
	dup.ScheduledDownloads = append([]ScheduledDownload(nil), p.ScheduledDownloads...)
	if dup.ScheduledDownloads == nil {
		dup.ScheduledDownloads = []ScheduledDownload{}
	}
	return dup
}

// DownloadConfig builds a config for url from the current preferences. The
// proxy is only carried when enabled.
func (p Preferences) DownloadConfig(url string) DownloadConfig {
	cfg := DownloadConfig{
		URL:                url,
		Format:             p.Format,
		Quality:            p.Quality,
		OutputFolder:       p.OutputFolder,
		EmbedSubtitles:     p.EmbedSubtitles,
		CookiesFromBrowser: p.CookiesFromBrowser,
		CookiesFilePath:    p.CookiesFilePath,
		FilenameTemplate:   p.FilenameTemplate,
	}
	if p.ProxyEnabled {
		cfg.ProxyURL = p.ProxyURL
	}
	return cfg
}
