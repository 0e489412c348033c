package model

// History statuses.
const (
	HistoryCompleted = "completed"
	HistoryFailed    = "failed"
)

// HistoryItem records one finished attempt. It is never mutated after creation.
type HistoryItem struct {
	ID           string  `json:"id"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	Thumbnail    string  `json:"thumbnail,omitempty"`
	Format       string  `json:"format"`
	Quality      string  `json:"quality"`
	FilePath     string  `json:"filePath,omitempty"`
	FileSize     *uint64 `json:"fileSize,omitempty"`
	Duration     *uint64 `json:"duration,omitempty"`
	DownloadedAt int64   `json:"downloadedAt"`
	Status       string  `json:"status"`
	Error        string  `json:"error,omitempty"`
}

// DownloadStats aggregates the backend's durable history.
type DownloadStats struct {
	TotalDownloads       uint64 `json:"totalDownloads"`
	SuccessfulDownloads  uint64 `json:"successfulDownloads"`
	FailedDownloads      uint64 `json:"failedDownloads"`
	TotalBytesDownloaded uint64 `json:"totalBytesDownloaded"`
	TotalDurationSeconds uint64 `json:"totalDurationSeconds"`
}
