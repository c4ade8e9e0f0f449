package recur

import (
	"fmt"
	"time"

	"calgrid/internal/model"
)

// DefaultMaxInstances caps a single expansion when the caller does not
// supply its own limit. It bounds memory and CPU even for unbounded rules
// (no COUNT, no UNTIL).
const DefaultMaxInstances = 730

// Instance is one concrete occurrence of a recurring event, expressed as
// canonical naive timestamps.
type Instance struct {
	Start string
	End   string
}

// Expand materializes a recurrence rule into concrete instances. Every
// instance preserves the exact duration end-start. Expansion stops at the
// rule's COUNT, the first candidate past UNTIL, or maxInstances, whichever
// comes first; rules that can never match terminate via an internal step
// budget and yield what was accumulated (usually nothing).
//
// Rule leniency follows ParseRule: malformed rules degrade rather than
// fail. An unrecognized FREQ yields zero instances. The only error case is
// an unparseable start or end timestamp.
func Expand(startStr, endStr, ruleStr string, maxInstances int) ([]Instance, error) {
	start, err := model.ParseStamp(startStr)
	if err != nil {
		return nil, fmt.Errorf("recur: parse start: %w", err)
	}
	end, err := model.ParseStamp(endStr)
	if err != nil {
		return nil, fmt.Errorf("recur: parse end: %w", err)
	}

	duration := model.Interval{Start: start, End: end}.Duration()
	rule := ParseRule(ruleStr)
	if maxInstances <= 0 {
		maxInstances = DefaultMaxInstances
	}

	switch rule.Freq {
	case FreqDaily:
		return expandDaily(start, duration, rule, maxInstances), nil
	case FreqWeekly:
		if len(rule.ByDay) > 0 {
			return expandWeeklyByDay(start, duration, rule, maxInstances), nil
		}
		return expandWeekly(start, duration, rule, maxInstances), nil
	case FreqMonthly:
		return expandMonthly(start, duration, rule, maxInstances), nil
	case FreqYearly:
		return expandYearly(start, duration, rule, maxInstances), nil
	default:
		// Unrecognized frequencies never match anything. This is pinned
		// behavior, not an error.
		return []Instance{}, nil
	}
}

func newInstance(start time.Time, duration time.Duration) Instance {
	return Instance{
		Start: model.FormatStamp(start),
		End:   model.FormatStamp(start.Add(duration)),
	}
}

// wantMore reports whether another instance may still be emitted under the
// rule's COUNT and the hard cap.
func wantMore(emitted int, rule Rule, maxInstances int) bool {
	if emitted >= maxInstances {
		return false
	}
	if rule.Count > 0 && emitted >= rule.Count {
		return false
	}
	return true
}

// pastUntil reports whether the candidate falls beyond the rule's UNTIL
// bound. A date-only UNTIL is midnight, so same-day timed candidates after
// 00:00 are already past it.
func pastUntil(candidate time.Time, rule Rule) bool {
	return !rule.Until.IsZero() && candidate.After(rule.Until)
}

// stepBudget bounds the total candidate walk so that rules whose filters
// can never match (e.g. BYMONTHDAY never hit by the anchored step) still
// terminate in bounded time.
func stepBudget(maxInstances int) int {
	return 4*maxInstances + 7
}

func expandDaily(start time.Time, duration time.Duration, rule Rule, maxInstances int) []Instance {
	out := []Instance{}
	for n := 0; wantMore(len(out), rule, maxInstances); n++ {
		candidate := start.AddDate(0, 0, n*rule.Interval)
		if pastUntil(candidate, rule) {
			break
		}
		out = append(out, newInstance(candidate, duration))
	}
	return out
}

// expandWeekly handles WEEKLY rules without BYDAY: the weekly anniversary
// of the start, every Interval weeks.
func expandWeekly(start time.Time, duration time.Duration, rule Rule, maxInstances int) []Instance {
	out := []Instance{}
	for n := 0; wantMore(len(out), rule, maxInstances); n++ {
		candidate := start.AddDate(0, 0, 7*n*rule.Interval)
		if pastUntil(candidate, rule) {
			break
		}
		out = append(out, newInstance(candidate, duration))
	}
	return out
}

// expandWeeklyByDay walks day by day from the start, emitting candidates
// whose weekday is listed. After an emitted match the walk jumps to the
// next listed weekday, looking at most one interval-sized block of weeks
// ahead; before the first match it scans one day at a time.
func expandWeeklyByDay(start time.Time, duration time.Duration, rule Rule, maxInstances int) []Instance {
	out := []Instance{}
	candidate := start

	for steps := 0; steps < stepBudget(maxInstances); steps++ {
		if !wantMore(len(out), rule, maxInstances) {
			break
		}
		if pastUntil(candidate, rule) {
			break
		}

		if !weekdayListed(candidate.Weekday(), rule.ByDay) {
			candidate = candidate.AddDate(0, 0, 1)
			continue
		}

		out = append(out, newInstance(candidate, duration))

		candidate = candidate.AddDate(0, 0, 1)
		for checked := 1; checked < 7*rule.Interval; checked++ {
			if weekdayListed(candidate.Weekday(), rule.ByDay) {
				break
			}
			candidate = candidate.AddDate(0, 0, 1)
		}
	}

	return out
}

func weekdayListed(wd time.Weekday, listed []time.Weekday) bool {
	for _, l := range listed {
		if l == wd {
			return true
		}
	}
	return false
}

// expandMonthly steps whole months anchored to the original start, clamping
// to the last day of shorter target months: Jan 31 stepping one month lands
// on Feb 29 (leap) or Feb 28, and the anchor keeps the following step on
// Mar 31 rather than drifting to Mar 29.
func expandMonthly(start time.Time, duration time.Duration, rule Rule, maxInstances int) []Instance {
	out := []Instance{}

	for n := 0; n < stepBudget(maxInstances); n++ {
		if !wantMore(len(out), rule, maxInstances) {
			break
		}
		candidate := addMonthsClamped(start, n*rule.Interval)
		if pastUntil(candidate, rule) {
			break
		}
		if monthlyMatches(candidate, start, rule) {
			out = append(out, newInstance(candidate, duration))
		}
	}

	return out
}

// monthlyMatches applies the MONTHLY day filter: with BYMONTHDAY the
// candidate's day must be listed; without it the candidate must sit on the
// start's day-of-month, accepting the clamped month end when the start day
// does not exist in the candidate's month.
func monthlyMatches(candidate, start time.Time, rule Rule) bool {
	if len(rule.ByMonthDay) > 0 {
		for _, d := range rule.ByMonthDay {
			if candidate.Day() == d {
				return true
			}
		}
		return false
	}
	if candidate.Day() == start.Day() {
		return true
	}
	return start.Day() > candidate.Day() && candidate.Day() == daysInMonth(candidate.Year(), candidate.Month())
}

// expandYearly steps whole years anchored to the start and matches only
// candidates landing on the start's month and day; a Feb 29 start recurs on
// leap years only.
func expandYearly(start time.Time, duration time.Duration, rule Rule, maxInstances int) []Instance {
	out := []Instance{}

	for n := 0; n < stepBudget(maxInstances); n++ {
		if !wantMore(len(out), rule, maxInstances) {
			break
		}
		// time.Date normalizes Feb 29 to Mar 1 in non-leap years; the
		// month/day check below filters those out.
		candidate := time.Date(start.Year()+n*rule.Interval, start.Month(), start.Day(),
			start.Hour(), start.Minute(), start.Second(), 0, start.Location())
		if pastUntil(candidate, rule) {
			break
		}
		if candidate.Month() == start.Month() && candidate.Day() == start.Day() {
			out = append(out, newInstance(candidate, duration))
		}
	}

	return out
}

// addMonthsClamped adds months to t, clamping the day to the last valid day
// of the target month instead of letting it spill into the next one.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	idx := int(month) - 1 + months
	year += idx / 12
	idx %= 12
	target := time.Month(idx + 1)

	if last := daysInMonth(year, target); day > last {
		day = last
	}
	return time.Date(year, target, day, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
