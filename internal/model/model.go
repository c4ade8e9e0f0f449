package model

import "time"

// TimestampLayout is the canonical naive local timestamp format used at
// every boundary of the core: storage rows, recurrence expansion, and the
// host-facing APIs. Values carry no timezone; only the wall clock matters.
const TimestampLayout = "2006-01-02 15:04:05"

// ParseStamp parses a canonical "YYYY-MM-DD HH:MM:SS" timestamp. The
// returned time.Time uses UTC purely as a container location so that naive
// stamps compare and subtract consistently.
func ParseStamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// FormatStamp renders t's wall clock in the canonical timestamp format.
func FormatStamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Role tags an event's position inside a recurring series. The wire-level
// convention is still "the master is the instance carrying a non-empty
// rrule"; Role makes that explicit in memory so that a stray rrule on a
// non-master row cannot be mistaken for a second master.
type Role int

const (
	// RoleNone marks a standalone event outside any series.
	RoleNone Role = iota
	// RoleMaster marks the single instance of a series that carries the
	// rrule text and the series' original start.
	RoleMaster
	// RoleInstance marks every other generated instance of a series.
	RoleInstance
)

// Event is the record shape consumed and produced by the core. IDs are
// assigned by the host (the store); the core never invents them.
type Event struct {
	ID          int64
	Title       string
	Description string
	Tag         string

	// Start and End are naive local timestamps. End > Start is not
	// enforced here; inverted or zero-length events are legal degenerate
	// input that simply never overlaps anything.
	Start time.Time
	End   time.Time

	// RecurrenceID groups all instances of one recurring series; empty
	// for standalone events.
	RecurrenceID string
	// RRule is set only on the series master.
	RRule string
	// OriginalStart records the series' canonical first occurrence so
	// monthly/yearly anchoring survives later edits of instances. Zero
	// when unset.
	OriginalStart time.Time

	Role Role
}

// Interval returns the event's time range for overlap arithmetic.
func (e Event) Interval() Interval {
	return Interval{Start: e.Start, End: e.End}
}
