package model

import "strings"

// PlaylistEntry is one playable item of a playlist.
type PlaylistEntry struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	Duration      *float64 `json:"duration,omitempty"`
	PlaylistIndex int      `json:"playlistIndex"`
	Uploader      string   `json:"uploader,omitempty"`
}

// PlaylistInfo is returned by fetch_playlist_info. Deleted and private
// entries are already filtered out by the backend.
type PlaylistInfo struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	URL        string          `json:"url"`
	Thumbnail  string          `json:"thumbnail,omitempty"`
	Uploader   string          `json:"uploader,omitempty"`
	VideoCount int             `json:"videoCount"`
	Entries    []PlaylistEntry `json:"entries"`
}

// Configs returns one download per entry, each a copy of base with the
// entry URL. Entries without a URL are skipped.
func (p PlaylistInfo) Configs(base DownloadConfig) []DownloadConfig {
	out := make([]DownloadConfig, 0, len(p.Entries))
	for _, e := range p.Entries {
		if strings.TrimSpace(e.URL) == "" {
			continue
		}
		cfg := base
		cfg.URL = e.URL
		out = append(out, cfg)
	}
	return out
}

// LooksLikePlaylist matches the YouTube playlist URL shapes the backend
// recognises without running the extractor.
func LooksLikePlaylist(raw string) bool {
	u := strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(u, "youtube.com") && !strings.Contains(u, "youtu.be") {
		return false
	}
	return strings.Contains(u, "list=") || strings.Contains(u, "/playlist")
}

// SubtitleTrack is one subtitle language offered for a video.
type SubtitleTrack struct {
	LangCode    string   `json:"langCode"`
	LangName    string   `json:"langName"`
	IsAutomatic bool     `json:"isAutomatic"`
	Formats     []string `json:"formats"`
}

// SubtitleInfo is returned by fetch_subtitles.
type SubtitleInfo struct {
	Subtitles         []SubtitleTrack `json:"subtitles"`
	AutomaticCaptions []SubtitleTrack `json:"automaticCaptions"`
	HasSubtitles      bool            `json:"hasSubtitles"`
}

// Languages lists the manual subtitle language codes in backend order.
func (s SubtitleInfo) Languages() []string {
	out := make([]string, 0, len(s.Subtitles))
	for _, t := range s.Subtitles {
		out = append(out, t.LangCode)
	}
	return out
}

// UpdateCheck is returned by check_ytdlp_update.
type UpdateCheck struct {
	CurrentVersion  string `json:"currentVersion"`
	UpdateAvailable bool   `json:"updateAvailable"`
	LatestVersion   string `json:"latestVersion,omitempty"`
	Error           string `json:"error,omitempty"`
}

// UpdateResult is returned by update_ytdlp.
type UpdateResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Updated bool   `json:"updated"`
	Version string `json:"version,omitempty"`
}

// ExecutableCheck is returned by check_executables.
type ExecutableCheck struct {
	AllAvailable     bool   `json:"allAvailable"`
	YtdlpAvailable   bool   `json:"ytdlpAvailable"`
	FfmpegAvailable  bool   `json:"ffmpegAvailable"`
	FfprobeAvailable bool   `json:"ffprobeAvailable"`
	Error            string `json:"error,omitempty"`
	YtdlpVersion     string `json:"ytdlpVersion,omitempty"`
	FfmpegVersion    string `json:"ffmpegVersion,omitempty"`
}

// Missing names the tools the backend could not find.
func (e ExecutableCheck) Missing() []string {
	var out []string
	if !e.YtdlpAvailable {
		out = append(out, "yt-dlp")
	}
	if !e.FfmpegAvailable {
		out = append(out, "ffmpeg")
	}
	if !e.FfprobeAvailable {
		out = append(out, "ffprobe")
	}
	return out
}

// DebugInfo is returned by copy_debug_info, which also places it on the
// backend host's clipboard.
type DebugInfo struct {
	AppVersion     string `json:"appVersion"`
	OSInfo         string `json:"osInfo"`
	WindowsVersion string `json:"windowsVersion,omitempty"`
	YtdlpVersion   string `json:"ytdlpVersion,omitempty"`
	FfmpegVersion  string `json:"ffmpegVersion,omitempty"`
	RecentLogs     string `json:"recentLogs"`
	MemoryInfo     string `json:"memoryInfo"`
}
