// Package bridge connects MediaGrab's client stores to the backend.
//
// # Overview
//
// The backend exposes two surfaces: request/response commands ("invoke") and
// a stream of pushed events ("listen"). Stores depend only on the Bridge
// interface; Client is the HTTP implementation and bridgetest.Fake the
// in-memory one used by tests.
//
// # Commands
//
//	POST /api/invoke/{command}
//	Content-Type: application/json
//
//	{"config": {...}}          → 200 {...result...}
//	                           → 4xx/5xx {"error": "Video not found"}
//
// A rejected command surfaces as *CommandError carrying the backend message,
// so callers can use errors.As and hand the message to dlerror.Classify.
// Transport failures are wrapped with %w.
//
// # Events
//
//	GET /api/events?since=N&wait_ms=25000
//
//	{"events": [{"seq": 12, "event": "queue-update", "payload": {...}}],
//	 "next": 12}
//
// The backend holds the request open until an event with seq > N exists or
// wait_ms elapses. "next" is the last sequence delivered and becomes the next
// request's "since". StartEvents runs one goroutine that polls and dispatches,
// so handlers observe events in the order the backend emitted them.
//
// On failure the loop backs off exponentially (2s doubling, 30s cap) and
// keeps going; a backend restart only delays events.
package bridge
