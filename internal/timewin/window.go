// Package timewin defines the half-open time windows used for labeling and
// feature extraction. The two constructors are the only way to produce a
// Window, so every event filter in the codebase can be audited by finding
// its window construction site: lookback windows end at the target and feed
// features, horizon windows start at the target and feed labels. That split
// is the leakage guard.
package timewin

import (
	"fmt"
	"time"
)

// Kind tags a window as past-facing or future-facing.
type Kind int

const (
	// Lookback windows end at the target timestamp (exclusive) and may only
	// produce features.
	Lookback Kind = iota
	// Horizon windows start at the target timestamp (inclusive) and may only
	// produce labels.
	Horizon
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Lookback:
		return "lookback"
	case Horizon:
		return "horizon"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Window is a half-open UTC interval [Start, End) tagged with its kind.
type Window struct {
	Start time.Time
	End   time.Time
	Kind  Kind
}

// NewLookback returns the window [target - days*24h, target).
func NewLookback(target time.Time, days int) Window {
	t := target.UTC()
	return Window{
		Start: t.Add(-time.Duration(days) * 24 * time.Hour),
		End:   t,
		Kind:  Lookback,
	}
}

// NewHorizon returns the window [target, target + hours*1h).
func NewHorizon(target time.Time, hours int) Window {
	t := target.UTC()
	return Window{
		Start: t,
		End:   t.Add(time.Duration(hours) * time.Hour),
		Kind:  Horizon,
	}
}

// Contains reports whether ts falls inside the half-open interval.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// String renders the window for label metadata and logs.
func (w Window) String() string {
	return fmt.Sprintf("%s [%s, %s)", w.Kind,
		w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
