package chat

import "time"

// Security/performance limits. Overridable knobs live in GatewayConfig;
// these are the defaults and hard caps.
const (
	// Max bytes per websocket frame read (hard limit).
	maxFrameBytes = 64 << 10 // 64 KiB

	// Max message text length (runes).
	maxMessageChars = 4000

	defaultSendQueueSize = 256
	minSendQueueSize     = 32

	defaultWriteTimeout    = 5 * time.Second
	defaultReadIdleTimeout = 2 * time.Minute
	closeGrace             = 1 * time.Second

	maxPingFailures = 3
)

const (
	// Heartbeat defaults.
	defaultHeartbeatInterval = 25 * time.Second
	defaultHeartbeatTimeout  = 5 * time.Second

	// Per-connection rate limits (events per window).
	defaultRateLimitEvents = 120
	defaultRateLimitWindow = 10 * time.Second
)
