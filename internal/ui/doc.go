// Package ui provides the Bubble Tea terminal interface for MediaGrab.
//
// # Overview
//
// The UI is a thin consumer of the stores. It never holds state of its own
// beyond selection, input and theme: every frame is drawn from the latest
// snapshots of the queue, history and preferences stores and the download
// coordinator. Store changes are pushed into the program with Program.Send
// and a one second tick covers anything missed.
//
// # Views
//
//   - Download: URL, format, quality and folder for the single foreground
//     download, its media info, state and progress
//   - Queue: queued downloads with cancel, remove, reorder and pause/resume
//   - History: finished attempts with search, status filter and statistics
//   - Schedule: scheduled downloads from preferences
//   - Logs: the tail of the MediaGrab log file
//
// # Actions
//
// Every store operation runs as a tea.Cmd so a slow backend never blocks
// rendering. The result comes back as an actionMsg and is shown in the
// footer; optimistic changes are already visible before it arrives. URLs
// added to the queue go through the playlist expander, so a playlist becomes
// one queue item per entry.
//
// The header also carries the toolchain notices: a newer yt-dlp (U installs
// it) and any of yt-dlp, ffmpeg or ffprobe the backend could not find.
//
// # Key Bindings
//
// Bindings live in keys.go as bubbles key.Binding values and also drive the
// help overlay. Tab cycles views, 1-5 jump to one, ? shows help, T cycles the
// theme and e quits. The theme and the current view are written to ui.toml
// on exit and restored on the next start.
package ui
