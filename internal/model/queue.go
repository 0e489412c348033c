package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// QueueStatus is the status of a queued download.
type QueueStatus string

const (
	QueuePending     QueueStatus = "pending"
	QueueDownloading QueueStatus = "downloading"
	QueueMerging     QueueStatus = "merging"
	QueueCancelling  QueueStatus = "cancelling"
	QueueCompleted   QueueStatus = "completed"
	QueueCancelled   QueueStatus = "cancelled"
	QueueFailed      QueueStatus = "failed"
)

// IsActive is true while the backend is transferring or merging.
func (s QueueStatus) IsActive() bool {
	return s == QueueDownloading || s == QueueMerging
}

// IsTerminal is true for completed, failed and cancelled items.
func (s QueueStatus) IsTerminal() bool {
	return s == QueueCompleted || s == QueueFailed || s == QueueCancelled
}

// QueueItem is one entry of the download queue. Identities below zero are
// temporary and only exist between an optimistic insert and the backend ack.
type QueueItem struct {
	ID         int64          `json:"id"`
	Config     DownloadConfig `json:"config"`
	Status     QueueStatus    `json:"status"`
	Progress   float64        `json:"progress"`
	Speed      string         `json:"speed"`
	ETASeconds *uint64        `json:"etaSeconds,omitempty"`
	Error      string         `json:"error,omitempty"`
	FilePath   string         `json:"filePath,omitempty"`
	Title      string         `json:"title,omitempty"`
	Thumbnail  string         `json:"thumbnail,omitempty"`
}

// IsTemporary reports whether the item still carries a locally assigned id.
func (q QueueItem) IsTemporary() bool {
	return q.ID < 0
}

// DisplayTitle returns the title, the output file name, or the URL.
func (q QueueItem) DisplayTitle() string {
	if q.Title != "" {
		return q.Title
	}
	if q.FilePath != "" {
		base := filepath.Base(strings.ReplaceAll(q.FilePath, "\\", "/"))
		if idx := strings.LastIndex(base, "."); idx > 0 {
			base = base[:idx]
		}
		return base
	}
	return q.Config.URL
}

// ETAString formats the remaining time as mm:ss or hh:mm:ss, or a dash when unknown.
func (q QueueItem) ETAString() string {
	if q.ETASeconds == nil || *q.ETASeconds == 0 {
		return "—"
	}
	total := *q.ETASeconds
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// QueueEventType tags a queue-update payload.
type QueueEventType string

const (
	QueueItemAdded   QueueEventType = "itemAdded"
	QueueItemUpdated QueueEventType = "itemUpdated"
	QueueItemRemoved QueueEventType = "itemRemoved"
	QueueCleared     QueueEventType = "queueCleared"
)

// QueueEvent is the tagged union pushed on queue-update. Item is set for
// itemAdded and itemUpdated, ID for itemRemoved.
type QueueEvent struct {
	Type QueueEventType `json:"type"`
	Item *QueueItem     `json:"item,omitempty"`
	ID   int64          `json:"id,omitempty"`
}
