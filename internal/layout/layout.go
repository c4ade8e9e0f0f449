// Package layout assigns overlapping events of a single day to
// side-by-side columns for a timeline view.
package layout

import (
	"sort"

	"calgrid/internal/model"
)

// Placed is an event annotated with its column assignment. Column is the
// zero-based column index; Total is the column count of the connected
// overlap group the event belongs to. The annotation is ephemeral and never
// persisted.
type Placed struct {
	model.Event

	Column int
	Total  int
}

// Columns lays out events so that any two overlapping events occupy
// different columns and each connected overlap group uses the minimum
// number of columns the greedy first-fit assignment produces.
//
// Events are processed in start order (stable, so equal starts keep their
// input order), which makes the assignment deterministic for a given input.
// The half-open overlap rule applies throughout: an event ending exactly
// when another starts shares no column constraint with it.
func Columns(events []model.Event) []Placed {
	placed := make([]Placed, 0, len(events))
	if len(events) == 0 {
		return placed
	}

	for _, ev := range events {
		placed = append(placed, Placed{Event: ev})
	}
	sort.SliceStable(placed, func(i, j int) bool {
		return placed[i].Start.Before(placed[j].Start)
	})

	for _, group := range connectedGroups(placed) {
		assignColumns(group)
	}

	return placed
}

// connectedGroups partitions the start-sorted events into maximal groups
// connected by the overlap relation. Each new event is merged with every
// existing group it overlaps; groups it doesn't touch stay as they are.
func connectedGroups(placed []Placed) [][]*Placed {
	var groups [][]*Placed

	for i := range placed {
		ev := &placed[i]

		var merged []*Placed
		rest := groups[:0]
		for _, group := range groups {
			if overlapsAny(ev, group) {
				merged = append(merged, group...)
			} else {
				rest = append(rest, group)
			}
		}

		merged = append(merged, ev)
		groups = append(rest, merged)
	}

	return groups
}

func overlapsAny(ev *Placed, group []*Placed) bool {
	for _, member := range group {
		if ev.Interval().Overlaps(member.Interval()) {
			return true
		}
	}
	return false
}

// assignColumns greedily places each event of one group into the first
// column none of whose occupants ends after the event's start, opening a
// new column when every existing one is still busy. Total is back-filled
// with the group's final column count once every member is placed.
func assignColumns(group []*Placed) {
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].Start.Before(group[j].Start)
	})

	var columns [][]*Placed
	for _, ev := range group {
		col := 0
		for ; col < len(columns); col++ {
			if columnFreeAt(columns[col], ev) {
				break
			}
		}
		if col == len(columns) {
			columns = append(columns, nil)
		}
		columns[col] = append(columns[col], ev)
		ev.Column = col
	}

	for _, ev := range group {
		ev.Total = len(columns)
	}
}

// columnFreeAt reports whether every occupant of the column has ended by
// the event's start time.
func columnFreeAt(column []*Placed, ev *Placed) bool {
	for _, occupant := range column {
		if occupant.End.After(ev.Start) {
			return false
		}
	}
	return true
}
