// Package lifecycle exposes the process-wide shutdown flag the health
// endpoint and shutdown sequence coordinate through.
package lifecycle

import "sync/atomic"

var shuttingDown atomic.Bool

// SetShuttingDown flips the drain flag. Set on SIGTERM/SIGINT so the health
// endpoint starts reporting shutting-down before the listener closes.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown reports whether the process is draining and should not
// receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}
