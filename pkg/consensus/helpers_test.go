package consensus

import "time"

const (
	eventuallyTimeout = 500 * time.Millisecond
	eventuallyTick    = 10 * time.Millisecond
)
