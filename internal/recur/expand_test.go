package recur

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func starts(instances []Instance) []string {
	out := make([]string, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.Start)
	}
	return out
}

func TestExpandDailyCount(t *testing.T) {
	got, err := Expand("2024-01-15 10:00:00", "2024-01-15 11:30:00", "FREQ=DAILY;COUNT=5", 0)
	require.NoError(t, err)
	require.Len(t, got, 5)

	want := []Instance{
		{Start: "2024-01-15 10:00:00", End: "2024-01-15 11:30:00"},
		{Start: "2024-01-16 10:00:00", End: "2024-01-16 11:30:00"},
		{Start: "2024-01-17 10:00:00", End: "2024-01-17 11:30:00"},
		{Start: "2024-01-18 10:00:00", End: "2024-01-18 11:30:00"},
		{Start: "2024-01-19 10:00:00", End: "2024-01-19 11:30:00"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("instances mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandDailyInterval(t *testing.T) {
	got, err := Expand("2024-01-01 08:00:00", "2024-01-01 09:00:00", "FREQ=DAILY;INTERVAL=3;COUNT=3", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-01 08:00:00",
		"2024-01-04 08:00:00",
		"2024-01-07 08:00:00",
	}, starts(got))
}

func TestExpandDailyUntil(t *testing.T) {
	// UNTIL as a bare date is midnight, so the timed candidate on the
	// UNTIL day itself is already past the bound.
	got, err := Expand("2024-01-01 10:00:00", "2024-01-01 11:00:00", "FREQ=DAILY;UNTIL=20240104", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-01 10:00:00",
		"2024-01-02 10:00:00",
		"2024-01-03 10:00:00",
	}, starts(got))
}

func TestExpandWeeklyAnniversary(t *testing.T) {
	got, err := Expand("2024-01-01 09:00:00", "2024-01-01 10:00:00", "FREQ=WEEKLY;INTERVAL=2;COUNT=3", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-01 09:00:00",
		"2024-01-15 09:00:00",
		"2024-01-29 09:00:00",
	}, starts(got))
}

func TestExpandWeeklyByDay(t *testing.T) {
	// 2024-01-01 is a Monday.
	got, err := Expand("2024-01-01 09:00:00", "2024-01-01 10:00:00", "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=4", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-01 09:00:00", // Monday
		"2024-01-03 09:00:00", // Wednesday
		"2024-01-08 09:00:00", // next Monday
		"2024-01-10 09:00:00", // next Wednesday
	}, starts(got))
}

func TestExpandWeeklyByDayStartOffPattern(t *testing.T) {
	// 2024-01-02 is a Tuesday; the walk scans forward one day at a time
	// until the first listed weekday.
	got, err := Expand("2024-01-02 09:00:00", "2024-01-02 10:00:00", "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=2", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-03 09:00:00", // Wednesday
		"2024-01-08 09:00:00", // Monday
	}, starts(got))
}

func TestExpandMonthlyClampsShortMonths(t *testing.T) {
	got, err := Expand("2024-01-31 10:00:00", "2024-01-31 11:00:00", "FREQ=MONTHLY;INTERVAL=1;COUNT=3", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-31 10:00:00",
		"2024-02-29 10:00:00", // leap-year clamp
		"2024-03-31 10:00:00", // anchored to the original day, no drift
	}, starts(got))
}

func TestExpandMonthlyNonLeapClamp(t *testing.T) {
	got, err := Expand("2025-01-31 10:00:00", "2025-01-31 11:00:00", "FREQ=MONTHLY;COUNT=3", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2025-01-31 10:00:00",
		"2025-02-28 10:00:00",
		"2025-03-31 10:00:00",
	}, starts(got))
}

func TestExpandMonthlyByMonthDay(t *testing.T) {
	got, err := Expand("2024-01-15 10:00:00", "2024-01-15 11:00:00", "FREQ=MONTHLY;BYMONTHDAY=15;COUNT=3", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-15 10:00:00",
		"2024-02-15 10:00:00",
		"2024-03-15 10:00:00",
	}, starts(got))
}

func TestExpandMonthlyByMonthDayNeverMatchingTerminates(t *testing.T) {
	// The anchored step keeps candidates on the 15th, which is never
	// listed; the step budget stops the walk with nothing emitted.
	got, err := Expand("2024-01-15 10:00:00", "2024-01-15 11:00:00", "FREQ=MONTHLY;BYMONTHDAY=1", 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpandYearly(t *testing.T) {
	got, err := Expand("2024-03-10 12:00:00", "2024-03-10 13:00:00", "FREQ=YEARLY;COUNT=3", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-03-10 12:00:00",
		"2025-03-10 12:00:00",
		"2026-03-10 12:00:00",
	}, starts(got))
}

func TestExpandYearlyLeapDay(t *testing.T) {
	// Feb 29 only exists every four years; normalized candidates in
	// between fail the month/day check.
	got, err := Expand("2024-02-29 12:00:00", "2024-02-29 13:00:00", "FREQ=YEARLY;COUNT=2", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-02-29 12:00:00",
		"2028-02-29 12:00:00",
	}, starts(got))
}

func TestExpandUnknownFreqYieldsNothing(t *testing.T) {
	// Pinned behavior: an unrecognized FREQ never matches; it does not
	// fall back to daily stepping.
	got, err := Expand("2024-01-01 09:00:00", "2024-01-01 10:00:00", "FREQ=HOURLY;COUNT=5", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpandUnboundedRuleHitsSafetyCap(t *testing.T) {
	got, err := Expand("2024-01-01 09:00:00", "2024-01-01 10:00:00", "FREQ=DAILY", 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultMaxInstances)

	got, err = Expand("2024-01-01 09:00:00", "2024-01-01 10:00:00", "FREQ=DAILY;COUNT=100000", 25)
	require.NoError(t, err)
	assert.Len(t, got, 25)
}

func TestExpandPreservesInvertedDuration(t *testing.T) {
	// end < start is degenerate but legal; the negative duration is
	// carried through unchanged.
	got, err := Expand("2024-01-01 10:00:00", "2024-01-01 09:00:00", "FREQ=DAILY;COUNT=2", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-02 10:00:00", got[1].Start)
	assert.Equal(t, "2024-01-02 09:00:00", got[1].End)
}

func TestExpandBadTimestampsFail(t *testing.T) {
	_, err := Expand("2024-01-01", "2024-01-01 10:00:00", "FREQ=DAILY", 0)
	assert.Error(t, err)

	_, err = Expand("2024-01-01 09:00:00", "not a stamp", "FREQ=DAILY", 0)
	assert.Error(t, err)
}

func TestExpandMalformedRuleDegradesToDaily(t *testing.T) {
	// No FREQ at all: the lenient parser defaults to DAILY.
	got, err := Expand("2024-01-01 09:00:00", "2024-01-01 10:00:00", "COUNT=2;;;garbage", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-01 09:00:00",
		"2024-01-02 09:00:00",
	}, starts(got))
}
