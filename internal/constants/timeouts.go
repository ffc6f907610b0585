package constants

import "time"

const (
	// UpstreamGenerateTimeout bounds non-stream upstream requests.
	UpstreamGenerateTimeout = 180 * time.Second
	// ServerShutdownTimeout bounds graceful HTTP server shutdown.
	ServerShutdownTimeout = 30 * time.Second
	// DefaultHeartbeatInterval keeps intermediaries from idle-closing streams.
	DefaultHeartbeatInterval = 15 * time.Second
	// DefaultRefreshBuffer refreshes tokens this long before nominal expiry.
	DefaultRefreshBuffer = 3 * time.Minute
)
