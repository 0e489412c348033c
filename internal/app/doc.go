// Package app is the composition root of MediaGrab.
//
// # Overview
//
// Open turns a config file into a running Session:
//
//  1. Load ~/.config/mediagrab/config.toml (or the given path)
//  2. Set up zerolog logging into <data_dir>/mediagrab.log
//  3. Open the bbolt backup database at <data_dir>/backup.db
//  4. Build the HTTP bridge to the backend
//  5. Wrap the bridge with the command timeout
//  6. Build the preferences, history and queue stores, the download
//     coordinator and the scheduler on top of it
//
// Start then loads every store, subscribes to pushed events and optionally
// starts the event stream and the scheduler. The terminal UI needs both; the
// one-shot CLI commands need neither.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Open()     │ config, logging, backup, bridge, stores
//	└──────┬───────┘
//	       │
//	       ├─────> Preferences.Initialize()  backup first, then load_preferences
//	       ├─────> History.Initialize()      history_get_all + history_get_stats
//	       ├─────> Queue.Initialize()        queue_get_all, listen queue-update
//	       ├─────> Downloads.Start()         listen download-* events
//	       ├─────> client.StartEvents()      long-poll /api/events
//	       └─────> Scheduler.Start()         promote due scheduled downloads
//
// # Shutdown
//
// Close runs in dependency order: background loops stop, pending preference
// edits are flushed to the backend, every store unsubscribes, the event
// stream stops, and finally the backup database and log file are closed.
// Close is idempotent.
//
// # Testing
//
// NewSession accepts any bridge.Bridge and backup.Store, so tests drive a
// full session against bridgetest.Fake and backup.Memory without a backend.
package app
