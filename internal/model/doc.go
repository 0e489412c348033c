// Package model defines the records exchanged with the MediaGrab backend:
// download configurations, queue items and their push events, history
// entries, preferences and the single-download state machine.
//
// Every type mirrors the backend's camelCase JSON so values can be passed to
// and decoded from bridge commands without translation. A DownloadConfig is
// always embedded by value; queue items, history records and scheduled
// downloads never share one.
package model
