package vote

import "time"

const DefaultSweepInterval = 30 * time.Second

// Tracked vote states. Draft and Persisted exist only outside the active set;
// a vote enters tracking as Active and leaves it Closed.
const (
	StateActive int32 = iota
	StateFinalizing
	StateClosed
)

// Finalization triggers.
const (
	TriggerTimer     = "timer"
	TriggerThreshold = "threshold"
	TriggerInterrupt = "interrupt"
)
