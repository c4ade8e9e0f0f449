package model

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two intervals intersect under strict half-open
// semantics: an interval ending exactly when another starts does not
// overlap it. Inverted or empty intervals overlap nothing.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Duration returns End - Start. Negative for inverted intervals.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}
