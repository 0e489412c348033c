package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Output formats understood by the backend.
const (
	FormatVideoMP4  = "video-mp4"
	FormatAudioMP3  = "audio-mp3"
	FormatAudioBest = "audio-best"
)

// Quality presets understood by the backend.
const (
	QualityBest  = "best"
	Quality1080p = "1080p"
	Quality720p  = "720p"
	Quality480p  = "480p"
)

// DownloadConfig describes one download request.
type DownloadConfig struct {
	URL                string `json:"url"`
	Format             string `json:"format"`
	Quality            string `json:"quality"`
	OutputFolder       string `json:"outputFolder"`
	EmbedSubtitles     bool   `json:"embedSubtitles"`
	CookiesFromBrowser string `json:"cookiesFromBrowser,omitempty"`
	FilenameTemplate   string `json:"filenameTemplate,omitempty"`
	ProxyURL           string `json:"proxyUrl,omitempty"`
	CookiesFilePath    string `json:"cookiesFilePath,omitempty"`
}

// ErrInvalidURL is wrapped by every ValidateURL failure.
var ErrInvalidURL = errors.New("invalid url")

// ValidateURL reports whether raw looks like a downloadable http(s) URL.
func ValidateURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: no host", ErrInvalidURL)
	}
	return nil
}

// MediaInfo is the metadata the backend extracts before a download starts.
type MediaInfo struct {
	Title          string   `json:"title"`
	Thumbnail      string   `json:"thumbnail,omitempty"`
	Duration       *float64 `json:"duration,omitempty"`
	Uploader       string   `json:"uploader,omitempty"`
	FilesizeApprox *uint64  `json:"filesizeApprox,omitempty"`
}

// ProgressEvent is the payload of download-progress.
type ProgressEvent struct {
	Percentage      float64 `json:"percentage"`
	DownloadedBytes uint64  `json:"downloadedBytes"`
	TotalBytes      *uint64 `json:"totalBytes,omitempty"`
	Speed           string  `json:"speed"`
	ETASeconds      *uint64 `json:"etaSeconds,omitempty"`
	Status          string  `json:"status"`
}

// DownloadResult is returned by start_download and carried by download-complete.
type DownloadResult struct {
	Success  bool   `json:"success"`
	FilePath string `json:"filePath,omitempty"`
	Error    string `json:"error,omitempty"`
}

// StateChangeEvent is the payload of download-state-change.
type StateChangeEvent struct {
	State    DownloadState `json:"state"`
	FilePath string        `json:"filePath,omitempty"`
}

// RetryEvent is the payload of download-retry.
type RetryEvent struct {
	Attempt    int    `json:"attempt"`
	MaxRetries int    `json:"maxRetries"`
	DelayMs    int64  `json:"delayMs"`
	Error      string `json:"error"`
}

// DiskSpaceInfo reports free space for an output folder.
type DiskSpaceInfo struct {
	AvailableBytes     uint64 `json:"availableBytes"`
	TotalBytes         uint64 `json:"totalBytes"`
	HasEnoughSpace     bool   `json:"hasEnoughSpace"`
	AvailableFormatted string `json:"availableFormatted"`
}

// FolderValidation is returned by validate_folder_for_download.
type FolderValidation struct {
	IsValid      bool          `json:"isValid"`
	IsAccessible bool          `json:"isAccessible"`
	DiskSpace    DiskSpaceInfo `json:"diskSpace"`
	Warning      string        `json:"warning,omitempty"`
}
