// Package recur expands RRULE recurrence rules into concrete event
// instances and builds rule strings from structured parameters. It supports
// the FREQ/INTERVAL/COUNT/UNTIL/BYDAY/BYMONTHDAY subset of RFC 5545 and is
// deliberately lenient: malformed fragments degrade to defaults instead of
// failing, matching how calendar interchange behaves in the wild.
package recur

import (
	"strconv"
	"strings"
	"time"
)

// Recognized FREQ values.
const (
	FreqDaily   = "DAILY"
	FreqWeekly  = "WEEKLY"
	FreqMonthly = "MONTHLY"
	FreqYearly  = "YEARLY"
)

// Rule is the parsed form of an RRULE string.
type Rule struct {
	// Freq is the normalized frequency token. It may be a value outside
	// the recognized set; expansion then yields zero instances.
	Freq string
	// Interval between occurrences, always >= 1.
	Interval int
	// Count bounds the number of instances; 0 means unset.
	Count int
	// Until bounds the last candidate date; zero means unset.
	Until time.Time
	// ByDay lists the weekdays a WEEKLY rule matches, in listed order.
	ByDay []time.Weekday
	// ByMonthDay lists the days of month a MONTHLY rule matches.
	ByMonthDay []int
}

var weekdayTokens = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

// ParseRule parses an RRULE string leniently. Segments without '=' and
// unknown keys are ignored; unparseable INTERVAL/COUNT/UNTIL values fall
// back to their defaults; invalid BYDAY tokens and BYMONTHDAY values are
// dropped. A missing FREQ defaults to DAILY. ParseRule never fails.
func ParseRule(s string) Rule {
	r := Rule{Freq: FreqDaily, Interval: 1}

	for _, segment := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "FREQ":
			if value != "" {
				r.Freq = strings.ToUpper(value)
			}
		case "INTERVAL":
			if n, err := strconv.Atoi(value); err == nil && n >= 1 {
				r.Interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				r.Count = n
			}
		case "UNTIL":
			if t, ok := parseUntil(value); ok {
				r.Until = t
			}
		case "BYDAY":
			for _, token := range strings.Split(value, ",") {
				token = strings.ToUpper(strings.TrimSpace(token))
				if wd, ok := weekdayTokens[token]; ok {
					r.ByDay = append(r.ByDay, wd)
				}
			}
		case "BYMONTHDAY":
			for _, field := range strings.Split(value, ",") {
				field = strings.TrimSpace(field)
				if field == "" {
					continue
				}
				if n, err := strconv.Atoi(field); err == nil {
					r.ByMonthDay = append(r.ByMonthDay, n)
				}
			}
		}
	}

	return r
}

// parseUntil accepts both the bare date (20241231) and the date-time
// (20241231T235959, with or without a trailing Z) UNTIL forms.
func parseUntil(v string) (time.Time, bool) {
	v = strings.TrimSuffix(v, "Z")
	layout := "20060102"
	if strings.Contains(v, "T") {
		layout = "20060102T150405"
	}
	t, err := time.Parse(layout, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// BuildRuleString assembles an RRULE string with a fixed field order:
// FREQ, INTERVAL (only when > 1), COUNT or UNTIL, BYDAY, BYMONTHDAY.
// COUNT and until are mutually exclusive; when both are given COUNT wins
// and until is dropped silently. until is a bare YYYYMMDD date.
func BuildRuleString(freq string, interval, count int, until string, byDay []string, byMonthDay []int) string {
	parts := []string{"FREQ=" + strings.ToUpper(freq)}

	if interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(interval))
	}

	if count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(count))
	} else if until != "" {
		parts = append(parts, "UNTIL="+until)
	}

	if len(byDay) > 0 {
		parts = append(parts, "BYDAY="+strings.Join(byDay, ","))
	}

	if len(byMonthDay) > 0 {
		days := make([]string, 0, len(byMonthDay))
		for _, d := range byMonthDay {
			days = append(days, strconv.Itoa(d))
		}
		parts = append(parts, "BYMONTHDAY="+strings.Join(days, ","))
	}

	return strings.Join(parts, ";")
}
