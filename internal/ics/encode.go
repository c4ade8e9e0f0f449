package ics

import (
	"fmt"
	"strings"
	"time"

	"calgrid/internal/model"
)

// ICS wire formats: local timestamps and the UTC form used for DTSTAMP.
const (
	stampLayoutLocal = "20060102T150405"
	stampLayoutUTC   = "20060102T150405Z"
	untilLayout      = "20060102"
)

// DefaultCalendarName is used when EncodeConfig leaves the name empty.
const DefaultCalendarName = "My Calendar"

// EncodeConfig controls ICS generation.
type EncodeConfig struct {
	// CalendarName is embedded in the PRODID line.
	CalendarName string

	// RangeStart, when set and later than a series master's natural
	// start, shifts the emitted series start forward to that date at the
	// master's time of day, preserving duration. Lets a caller resume a
	// series view from an arbitrary date without touching stored rows.
	RangeStart time.Time

	// RangeEnd, when set, bounds every emitted RRULE with an UNTIL one
	// day past it (UNTIL is inclusive of its date), replacing any
	// existing UNTIL and stripping any COUNT.
	RangeEnd time.Time

	// Now supplies the DTSTAMP clock; nil means time.Now.
	Now func() time.Time
}

// Encode serializes events into VCALENDAR text. Events sharing a
// recurrence identifier collapse into a single VEVENT emitted from the
// series master; a group without a master degrades to standalone VEVENTs.
// Lines are CRLF-joined and the document ends with a trailing CRLF.
func Encode(events []model.Event, cfg EncodeConfig) string {
	name := cfg.CalendarName
	if name == "" {
		name = DefaultCalendarName
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Calendar App//" + name + "//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}

	// Partition into series groups (first-seen order, for deterministic
	// output) and standalone events.
	groups := map[string][]model.Event{}
	var order []string
	var standalone []model.Event
	for _, ev := range events {
		if ev.RecurrenceID == "" {
			standalone = append(standalone, ev)
			continue
		}
		if _, seen := groups[ev.RecurrenceID]; !seen {
			order = append(order, ev.RecurrenceID)
		}
		groups[ev.RecurrenceID] = append(groups[ev.RecurrenceID], ev)
	}

	for _, rid := range order {
		group := groups[rid]
		master, ok := findMaster(group)
		if !ok {
			// A series record without its master is degraded output,
			// not a protocol error.
			standalone = append(standalone, group...)
			continue
		}
		lines = append(lines, seriesLines(master, rid, cfg, now())...)
	}

	for _, ev := range standalone {
		lines = append(lines, standaloneLines(ev, now())...)
	}

	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

// findMaster locates the series' ruleful instance: the explicitly tagged
// master when present, otherwise the first instance carrying a rule string
// (the wire-level convention).
func findMaster(group []model.Event) (model.Event, bool) {
	for _, ev := range group {
		if ev.Role == model.RoleMaster {
			return ev, true
		}
	}
	for _, ev := range group {
		if ev.RRule != "" {
			return ev, true
		}
	}
	return model.Event{}, false
}

func seriesLines(master model.Event, rid string, cfg EncodeConfig, now time.Time) []string {
	start, end := master.Start, master.End

	if !cfg.RangeStart.IsZero() && cfg.RangeStart.After(start) {
		shifted := time.Date(cfg.RangeStart.Year(), cfg.RangeStart.Month(), cfg.RangeStart.Day(),
			start.Hour(), start.Minute(), start.Second(), 0, start.Location())
		end = end.Add(shifted.Sub(start))
		start = shifted
	}

	rule := master.RRule
	if !cfg.RangeEnd.IsZero() {
		rule = boundRuleUntil(rule, cfg.RangeEnd)
	}

	lines := []string{
		"BEGIN:VEVENT",
		"UID:" + fmt.Sprintf("recurring-%s@calendar-app", rid),
		"DTSTART:" + start.Format(stampLayoutLocal),
		"DTEND:" + end.Format(stampLayoutLocal),
		"SUMMARY:" + escapeText(titleOrDefault(master.Title)),
	}
	if master.Description != "" {
		lines = append(lines, "DESCRIPTION:"+escapeText(master.Description))
	}
	if rule != "" {
		lines = append(lines, "RRULE:"+rule)
	}
	lines = append(lines,
		"DTSTAMP:"+now.UTC().Format(stampLayoutUTC),
		"END:VEVENT",
	)
	return lines
}

func standaloneLines(ev model.Event, now time.Time) []string {
	lines := []string{
		"BEGIN:VEVENT",
		"UID:" + fmt.Sprintf("event-%d@calendar-app", ev.ID),
		"DTSTART:" + ev.Start.Format(stampLayoutLocal),
		"DTEND:" + ev.End.Format(stampLayoutLocal),
		"SUMMARY:" + escapeText(titleOrDefault(ev.Title)),
	}
	if ev.Description != "" {
		lines = append(lines, "DESCRIPTION:"+escapeText(ev.Description))
	}
	lines = append(lines,
		"DTSTAMP:"+now.UTC().Format(stampLayoutUTC),
		"END:VEVENT",
	)
	return lines
}

func titleOrDefault(title string) string {
	if title == "" {
		return "Untitled Event"
	}
	return title
}

// boundRuleUntil rewrites the rule's bound to UNTIL one day past rangeEnd:
// an existing UNTIL or COUNT segment is replaced in place (keeping the
// canonical field order), an unbounded rule gets UNTIL appended.
func boundRuleUntil(rule string, rangeEnd time.Time) string {
	until := "UNTIL=" + rangeEnd.AddDate(0, 0, 1).Format(untilLayout)
	if rule == "" {
		return until
	}

	segments := strings.Split(rule, ";")
	out := make([]string, 0, len(segments)+1)
	replaced := false
	for _, segment := range segments {
		key, _, _ := strings.Cut(segment, "=")
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "UNTIL", "COUNT":
			if !replaced {
				out = append(out, until)
				replaced = true
			}
		default:
			out = append(out, segment)
		}
	}
	if !replaced {
		out = append(out, until)
	}
	return strings.Join(out, ";")
}

// RFC 5545 §3.3.11 text escaping. The replacers run in a single pass, so
// backslashes introduced by one substitution are never re-escaped by
// another.
var (
	textEscaper = strings.NewReplacer(
		`\`, `\\`,
		`,`, `\,`,
		`;`, `\;`,
		"\n", `\n`,
	)
	textUnescaper = strings.NewReplacer(
		`\\`, `\`,
		`\,`, `,`,
		`\;`, `;`,
		`\n`, "\n",
		`\N`, "\n",
	)
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}
