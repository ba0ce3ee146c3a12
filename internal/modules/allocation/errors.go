package allocation

import (
	"fmt"
	"strings"
)

// InsufficientDataError signals that a trailing window holds fewer usable
// observations than covariance estimation requires. It indicates a
// configuration or data problem the engine cannot resolve, so it is
// propagated to the caller rather than retried.
type InsufficientDataError struct {
	Date      string // rebalancing date, empty when not tied to one
	Available int
	Required  int
}

func (e *InsufficientDataError) Error() string {
	if e.Date != "" {
		return fmt.Sprintf("insufficient data at %s: have %d observations, need %d", e.Date, e.Available, e.Required)
	}
	return fmt.Sprintf("insufficient data: have %d observations, need %d", e.Available, e.Required)
}

// DegenerateInputError signals structurally invalid input: an empty universe,
// duplicate identifiers, or references to instruments outside the universe.
// Surfaced immediately instead of silently filtering, since silent filtering
// masks configuration mistakes.
type DegenerateInputError struct {
	Reason  string
	Symbols []string
}

func (e *DegenerateInputError) Error() string {
	if len(e.Symbols) > 0 {
		return fmt.Sprintf("degenerate input: %s (%s)", e.Reason, strings.Join(e.Symbols, ", "))
	}
	return fmt.Sprintf("degenerate input: %s", e.Reason)
}
