package consensus

import "time"

// Config tunes election and heartbeat timing. Defaults follow the
// typical Raft range: a randomized election timer
// between 150 and 300 ms, heartbeats at a third of the minimum
// election timeout.
type Config struct {
	ElectionTimeoutMin time.Duration
	ElectionTimeoutMax time.Duration
	HeartbeatInterval  time.Duration
}

// DefaultConfig returns typical Raft timer values.
func DefaultConfig() Config {
	return Config{
		ElectionTimeoutMin: 150 * time.Millisecond,
		ElectionTimeoutMax: 300 * time.Millisecond,
		HeartbeatInterval:  50 * time.Millisecond,
	}
}
