package recur

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Rule
	}{
		{
			name: "full weekly rule",
			in:   "FREQ=WEEKLY;INTERVAL=2;COUNT=10;BYDAY=MO,WE,FR",
			want: Rule{
				Freq:     FreqWeekly,
				Interval: 2,
				Count:    10,
				ByDay:    []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			},
		},
		{
			name: "monthly with bymonthday",
			in:   "FREQ=MONTHLY;BYMONTHDAY=1,15",
			want: Rule{Freq: FreqMonthly, Interval: 1, ByMonthDay: []int{1, 15}},
		},
		{
			name: "missing freq defaults to daily",
			in:   "COUNT=3",
			want: Rule{Freq: FreqDaily, Interval: 1, Count: 3},
		},
		{
			name: "segments without equals are skipped",
			in:   "FREQ=DAILY;JUNK;COUNT=2",
			want: Rule{Freq: FreqDaily, Interval: 1, Count: 2},
		},
		{
			name: "unknown keys are ignored",
			in:   "FREQ=DAILY;BYSETPOS=1;X-FOO=bar",
			want: Rule{Freq: FreqDaily, Interval: 1},
		},
		{
			name: "malformed interval and count fall back to defaults",
			in:   "FREQ=DAILY;INTERVAL=abc;COUNT=xyz",
			want: Rule{Freq: FreqDaily, Interval: 1},
		},
		{
			name: "zero interval clamps to one",
			in:   "FREQ=DAILY;INTERVAL=0",
			want: Rule{Freq: FreqDaily, Interval: 1},
		},
		{
			name: "invalid byday tokens are dropped",
			in:   "FREQ=WEEKLY;BYDAY=MO,XX,FR",
			want: Rule{Freq: FreqWeekly, Interval: 1, ByDay: []time.Weekday{time.Monday, time.Friday}},
		},
		{
			name: "lowercase and padded input normalizes",
			in:   " freq=weekly ; byday = mo , we ",
			want: Rule{Freq: FreqWeekly, Interval: 1, ByDay: []time.Weekday{time.Monday, time.Wednesday}},
		},
		{
			name: "unknown freq is kept verbatim",
			in:   "FREQ=HOURLY;COUNT=5",
			want: Rule{Freq: "HOURLY", Interval: 1, Count: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRule(tt.in))
		})
	}
}

func TestParseRuleUntil(t *testing.T) {
	r := ParseRule("FREQ=DAILY;UNTIL=20241231")
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), r.Until)

	r = ParseRule("FREQ=DAILY;UNTIL=20241231T180000Z")
	assert.Equal(t, time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC), r.Until)

	r = ParseRule("FREQ=DAILY;UNTIL=garbage")
	assert.True(t, r.Until.IsZero())
}

func TestBuildRuleString(t *testing.T) {
	tests := []struct {
		name       string
		freq       string
		interval   int
		count      int
		until      string
		byDay      []string
		byMonthDay []int
		want       string
	}{
		{
			name: "daily count",
			freq: "DAILY", interval: 1, count: 5,
			want: "FREQ=DAILY;COUNT=5",
		},
		{
			name: "weekly interval until byday",
			freq: "WEEKLY", interval: 2, until: "20241231", byDay: []string{"MO", "FR"},
			want: "FREQ=WEEKLY;INTERVAL=2;UNTIL=20241231;BYDAY=MO,FR",
		},
		{
			name: "count wins over until",
			freq: "MONTHLY", interval: 1, count: 3, until: "20250101",
			want: "FREQ=MONTHLY;COUNT=3",
		},
		{
			name: "monthly bymonthday",
			freq: "MONTHLY", interval: 1, byMonthDay: []int{1, 15},
			want: "FREQ=MONTHLY;BYMONTHDAY=1,15",
		},
		{
			name: "lowercase freq is upcased",
			freq: "yearly", interval: 1,
			want: "FREQ=YEARLY",
		},
		{
			name: "interval of one is omitted",
			freq: "DAILY", interval: 1, count: 1,
			want: "FREQ=DAILY;COUNT=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildRuleString(tt.freq, tt.interval, tt.count, tt.until, tt.byDay, tt.byMonthDay)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildRuleStringRoundTripsThroughParse(t *testing.T) {
	built := BuildRuleString("WEEKLY", 2, 0, "20241231", []string{"MO", "FR"}, nil)
	r := ParseRule(built)
	assert.Equal(t, FreqWeekly, r.Freq)
	assert.Equal(t, 2, r.Interval)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, r.ByDay)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), r.Until)
}
