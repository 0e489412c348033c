// Package lifecycle drives the single foreground download: the form the user
// fills in, the pre-flight checks before start_download, and the state the
// backend reports while the download runs.
//
// # Flow
//
//	HandleDownload
//	  validate URL
//	  reset_download                 when the last attempt is terminal
//	  validate_folder_for_download   inaccessible blocks, low space warns
//	  fetch_media_info               state analyzing, only if not cached
//	  start_download                 state starting
//
// From then on the backend's download-* events own the state. Retry events
// are kept beside the state and override the status line without changing
// it.
//
// # History
//
// download-complete writes exactly one history record per attempt, built from
// the form, preferences and media info held by the coordinator when the event
// arrives. Edits made to the form while the download ran are therefore part
// of the record; values captured when the attempt began are never used.
package lifecycle
