package models

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInsight marks an insight with missing fields or scores outside [0,1].
	ErrMalformedInsight = errors.New("malformed insight")
	// ErrHarvesterTimeout is reported when a harvester exceeds its per-call timeout.
	ErrHarvesterTimeout = errors.New("harvester timeout")
	// ErrThrottled is reported when a source exceeds its admission rate.
	ErrThrottled = errors.New("source throttled")
	// ErrEvictedOnAdmit is reported when a full store drops the insight it was just given.
	ErrEvictedOnAdmit = errors.New("insight evicted on admission")
)

// HarvestError isolates the failure of a single harvester within a cycle.
type HarvestError struct {
	Source string
	Err    error
}

func (e *HarvestError) Error() string {
	return fmt.Sprintf("harvest %s: %v", e.Source, e.Err)
}

func (e *HarvestError) Unwrap() error { return e.Err }
