// Package logtail reads the tail of the MediaGrab log file and decodes its
// zerolog JSON lines for display.
//
// Read extracts the last N lines with a single pass over the file using a
// ring buffer of size N, so memory stays proportional to N regardless of the
// file size. Missing files read as empty.
//
// Parse decodes one line written by internal/logging:
//
//	{"level":"info","component":"queue","time":"2025-10-08T21:01:05Z","message":"reloaded","items":3}
//
// Known keys map onto Entry fields; everything else lands in Entry.Fields.
// Lines that are not JSON (panics, partial writes) are kept as message-only
// entries so nothing is hidden from the user. Filter and Format back the
// `mediagrab logs` command and the log pane of the terminal UI.
package logtail
