package transport

import (
	"fmt"
	"sync"
	"time"
)

// tokenWindow is how long a timestamp or hash stays valid for replay
// detection.
const tokenWindow = 300 * time.Second

// TokenValidator enforces Token frame anti-replay rules: timestamps
// older than the window are rejected, hashes already seen within the
// window are rejected as duplicates, and sequence 0 is never valid.
type TokenValidator struct {
	mu   sync.Mutex
	seen map[[32]byte]time.Time
	now  func() time.Time
}

// NewTokenValidator creates a validator using the real clock.
func NewTokenValidator() *TokenValidator {
	return &TokenValidator{seen: make(map[[32]byte]time.Time), now: time.Now}
}

// Validate checks f against the current window and, if valid, records
// its hash so a later duplicate is rejected.
func (v *TokenValidator) Validate(f *TokenFrame) error {
	if f.Sequence == 0 {
		return fmt.Errorf("transport: token sequence must be nonzero")
	}

	now := v.now()
	issued := time.Unix(int64(f.Timestamp), 0)
	if now.Sub(issued) > tokenWindow {
		return fmt.Errorf("transport: token timestamp %s outside %s window", issued, tokenWindow)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.evictLocked(now)

	if _, dup := v.seen[f.Hash]; dup {
		return fmt.Errorf("transport: duplicate token hash")
	}
	v.seen[f.Hash] = now
	return nil
}

// evictLocked drops hashes older than the window. Called with mu held.
func (v *TokenValidator) evictLocked(now time.Time) {
	for h, t := range v.seen {
		if now.Sub(t) > tokenWindow {
			delete(v.seen, h)
		}
	}
}
