// Package ics converts between the event data model and RFC 5545
// VCALENDAR/VEVENT text. Decoding is lenient per event: anomalies are
// handled by defaulting, and only an unparseable calendar container fails
// the whole operation.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// ErrInvalidFormat signals that the byte stream is not a parseable
// calendar container at all.
var ErrInvalidFormat = errors.New("ics: invalid calendar format")

// DefaultTimezone is the reference local timezone that timezone-qualified
// timestamps are converted into before the offset is dropped. The stored
// model is always naive local time.
const DefaultTimezone = "America/Los_Angeles"

// Default window synthesized for all-day events, which arrive as bare
// dates without a time of day.
const (
	DefaultAllDayStartHour = 9
	DefaultAllDayEndHour   = 17
)

// DecodeConfig controls how ICS payloads are normalized into the naive
// local event model.
type DecodeConfig struct {
	// Location is the reference local timezone. If nil, DefaultTimezone
	// is used (falling back to time.Local if the zone database lacks it).
	Location *time.Location

	// AllDayStartHour / AllDayEndHour define the timed window synthesized
	// for bare-date events. Zero values mean 09:00 and 17:00.
	AllDayStartHour int
	AllDayEndHour   int
}

func (cfg DecodeConfig) withDefaults() DecodeConfig {
	if cfg.Location == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			loc = time.Local
		}
		cfg.Location = loc
	}
	if cfg.AllDayStartHour == 0 {
		cfg.AllDayStartHour = DefaultAllDayStartHour
	}
	if cfg.AllDayEndHour == 0 {
		cfg.AllDayEndHour = DefaultAllDayEndHour
	}
	return cfg
}

// Decode parses an ICS payload into event records. Events without a
// DTSTART are skipped silently; a missing SUMMARY defaults to "(no title)";
// a missing DTEND defaults to one hour after the start. An event carrying a
// usable RRULE becomes the master of a fresh series: it gets a synthetic
// recurrence identifier and its start recorded as the series' original
// start, so the host can expand it into concrete instances.
func Decode(body []byte, cfg DecodeConfig) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidFormat)
	}
	cfg = cfg.withDefaults()

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, ok := decodeVEvent(ve, cfg)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeVEvent(ve *ical.VEvent, cfg DecodeConfig) (model.Event, bool) {
	var out model.Event

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, false
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return out, false
	}

	out.Title = "(no title)"
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil && p.Value != "" {
		out.Title = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = unescapeText(p.Value)
	}

	dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd)

	if isDateOnly(dtStart) {
		// All-day events get a conventional timed window. The end lands
		// on DTEND's own date so multi-day all-day events keep their span.
		out.Start = atHour(start, cfg.AllDayStartHour)
		out.End = out.Start.Add(time.Hour)
		if dtEnd != nil {
			if end, endErr := ve.GetEndAt(); endErr == nil {
				out.End = atHour(end, cfg.AllDayEndHour)
			}
		}
	} else {
		out.Start = naiveLocal(start, hasZone(dtStart), cfg.Location)
		out.End = out.Start.Add(time.Hour)
		if dtEnd != nil {
			if end, endErr := ve.GetEndAt(); endErr == nil {
				out.End = naiveLocal(end, hasZone(dtEnd), cfg.Location)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		if _, ruleErr := rrule.StrToRRule(p.Value); ruleErr != nil {
			appLog.Error("ics: dropping unparseable RRULE", ruleErr, "rrule", p.Value)
		} else {
			out.RRule = p.Value
			out.RecurrenceID = uuid.NewString()
			out.OriginalStart = out.Start
			out.Role = model.RoleMaster
		}
	}

	return out, true
}

// isDateOnly detects all-day values: VALUE=DATE or a bare YYYYMMDD form.
func isDateOnly(p *ical.IANAProperty) bool {
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}

// hasZone reports whether the property value is timezone-qualified, either
// by the UTC suffix or an explicit TZID parameter.
func hasZone(p *ical.IANAProperty) bool {
	if strings.HasSuffix(p.Value, "Z") {
		return true
	}
	if params := p.ICalParameters; params != nil {
		if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
			return true
		}
	}
	return false
}

// naiveLocal strips a parsed timestamp down to a naive local wall clock:
// timezone-qualified values are converted into the reference location
// first, floating values are taken as-is.
func naiveLocal(t time.Time, zoned bool, loc *time.Location) time.Time {
	if zoned {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// atHour places a naive wall clock at the given hour on t's date.
func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.UTC)
}
