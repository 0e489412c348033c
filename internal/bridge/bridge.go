package bridge

import (
	"context"
	"encoding/json"
	"fmt"
)

// Command names understood by the backend.
const (
	CmdQueueGetAll         = "queue_get_all"
	CmdQueueAdd            = "queue_add"
	CmdQueueCancel         = "queue_cancel"
	CmdQueueRemove         = "queue_remove"
	CmdQueueClearCompleted = "queue_clear_completed"
	CmdQueueMoveUp         = "queue_move_up"
	CmdQueueMoveDown       = "queue_move_down"
	CmdQueueReorder        = "queue_reorder"
	CmdQueuePauseAll       = "queue_pause_all"
	CmdQueueResumeAll      = "queue_resume_all"

	CmdHistoryGetAll   = "history_get_all"
	CmdHistoryAdd      = "history_add"
	CmdHistoryRemove   = "history_remove"
	CmdHistoryClear    = "history_clear"
	CmdHistoryGetStats = "history_get_stats"

	CmdLoadPreferences = "load_preferences"
	CmdSavePreferences = "save_preferences"

	CmdStartDownload  = "start_download"
	CmdCancelDownload = "cancel_download"
	CmdResetDownload  = "reset_download"
	CmdFetchMediaInfo = "fetch_media_info"
	CmdValidateFolder = "validate_folder_for_download"
	CmdPickFolder     = "pick_folder"
	CmdOpenFolder     = "open_folder"
	CmdOpenFile       = "open_file"
	CmdPickCookies    = "pick_cookies_file"
	CmdFetchSubtitles = "fetch_subtitles"

	CmdCheckIsPlaylist   = "check_is_playlist"
	CmdFetchPlaylistInfo = "fetch_playlist_info"

	CmdCheckExecutables = "check_executables"
	CmdCheckYtdlpUpdate = "check_ytdlp_update"
	CmdUpdateYtdlp      = "update_ytdlp"
	CmdYtdlpVersion     = "get_ytdlp_version_cmd"
	CmdCopyDebugInfo    = "copy_debug_info"
	CmdGetRecentLogs    = "get_recent_logs"
)

// Event names pushed by the backend.
const (
	EventQueueUpdate      = "queue-update"
	EventDownloadState    = "download-state-change"
	EventDownloadProgress = "download-progress"
	EventDownloadError    = "download-error"
	EventDownloadComplete = "download-complete"
	EventDownloadRetry    = "download-retry"
)

// Invoker issues request/response commands.
type Invoker interface {
	// Invoke sends args (any JSON-encodable value, nil for none) and decodes
	// the result into out when out is non-nil.
	Invoke(ctx context.Context, command string, args any, out any) error
}

// Handler receives the raw payload of one pushed event.
type Handler func(payload json.RawMessage)

// Unlisten removes a handler registered with Listen. It is safe to call more
// than once.
type Unlisten func()

// Listener subscribes to pushed events.
type Listener interface {
	Listen(event string, handler Handler) (Unlisten, error)
}

// Bridge is the full backend surface consumed by the stores.
type Bridge interface {
	Invoker
	Listener
}

// CommandError reports that the backend rejected a command.
type CommandError struct {
	Command string
	Message string
	Status  int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// Call invokes command and decodes its result as T.
func Call[T any](ctx context.Context, inv Invoker, command string, args any) (T, error) {
	var out T
	if err := inv.Invoke(ctx, command, args, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Decode unmarshals an event payload, wrapping failures with the event name.
func Decode[T any](event string, payload json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("decode %s payload: %w", event, err)
	}
	return out, nil
}
