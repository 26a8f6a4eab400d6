// Package timeouts defines the shared HTTP boundary durations. Keeping them
// in one place stops individual listeners from drifting apart.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
// WebSocket upgrades pass through before this applies to the stream.
const ReadHeader = 5 * time.Second

// Shutdown bounds graceful HTTP shutdown. Connections still open after
// this window are dropped.
const Shutdown = 5 * time.Second
