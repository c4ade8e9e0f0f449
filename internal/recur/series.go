package recur

import (
	"github.com/google/uuid"

	"calgrid/internal/model"
)

// NewSeries expands a rule into a batch of event records sharing a freshly
// generated recurrence identifier. The first instance is the series master:
// it carries the rrule text and the series' original start. Every other
// instance carries neither. Downstream serialization relies on exactly one
// ruleful instance per series, so this shape must be preserved when the
// batch is persisted.
//
// The returned events carry no IDs; assigning them is the caller's job.
func NewSeries(startStr, endStr, title, description, tag, rule string, maxInstances int) ([]model.Event, string, error) {
	instances, err := Expand(startStr, endStr, rule, maxInstances)
	if err != nil {
		return nil, "", err
	}

	recurrenceID := uuid.NewString()
	originalStart, _ := model.ParseStamp(startStr)

	events := make([]model.Event, 0, len(instances))
	for i, inst := range instances {
		start, _ := model.ParseStamp(inst.Start)
		end, _ := model.ParseStamp(inst.End)

		ev := model.Event{
			Title:        title,
			Description:  description,
			Tag:          tag,
			Start:        start,
			End:          end,
			RecurrenceID: recurrenceID,
			Role:         model.RoleInstance,
		}
		if i == 0 {
			ev.Role = model.RoleMaster
			ev.RRule = rule
			ev.OriginalStart = originalStart
		}
		events = append(events, ev)
	}

	return events, recurrenceID, nil
}
