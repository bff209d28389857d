package consensuslog

import "errors"

// ErrCorruption is returned when a stored entry's checksum no longer
// matches its contents. It is fatal: callers are expected to force a
// panic-safe shutdown rather than serve a replica with a corrupt log.
var ErrCorruption = errors.New("consensuslog: checksum mismatch")

// ErrNotFound is returned when an index has no entry.
var ErrNotFound = errors.New("consensuslog: entry not found")
