package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(offset int) time.Time {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func TestClassifyThresholds(t *testing.T) {
	now := day(0).Add(9 * time.Hour)

	cases := []struct {
		name     string
		due      time.Time
		rule     Rule
		severity Severity
		days     int
	}{
		{"overdue", day(-2), RuleOverdue, SeverityDanger, -2},
		{"yesterday", day(-1), RuleOverdue, SeverityDanger, -1},
		{"today", day(0), RuleDueToday, SeverityDanger, 0},
		{"tomorrow", day(1), RuleDueIn1Day, SeverityDanger, 1},
		{"in three days", day(3), RuleDueIn3Days, SeverityWarning, 3},
		{"in seven days", day(7), RuleDueIn7Days, SeverityInfo, 7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Classify(tc.due, now)
			assert.True(t, c.Matched())
			assert.Equal(t, tc.rule, c.Rule)
			assert.Equal(t, tc.severity, c.Severity)
			assert.Equal(t, tc.days, c.DaysRemaining)
		})
	}
}

func TestClassifyUnmatchedDays(t *testing.T) {
	now := day(0)
	for _, offset := range []int{2, 4, 5, 6, 8, 30, 365} {
		c := Classify(day(offset), now)
		assert.False(t, c.Matched(), "offset %d should not match", offset)
		assert.Equal(t, RuleNone, c.Rule)
		assert.Equal(t, offset, c.DaysRemaining)
	}
}

// Severity must never decrease in urgency as the deadline gets closer.
func TestSeverityMonotonicity(t *testing.T) {
	now := day(0)
	order := map[Severity]int{SeverityInfo: 0, SeverityWarning: 1, SeverityDanger: 2}

	prev := order[SeverityDanger]
	for _, offset := range []int{-1, 0, 1, 3, 7} {
		c := Classify(day(offset), now)
		cur := order[c.Severity]
		assert.LessOrEqual(t, cur, prev, "severity rose at offset %d", offset)
		prev = cur
	}
}

// Classification must be stable regardless of the time of day the job
// runs, including when due and now carry different wall-clock times.
func TestClassifyDayGranularity(t *testing.T) {
	due := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)

	early := time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)
	late := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, RuleDueIn1Day, Classify(due, early).Rule)
	assert.Equal(t, RuleDueIn1Day, Classify(due, late).Rule)
}

func TestClassifyAcrossTimezones(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	assert.NoError(t, err)

	// Due 2026-03-13 02:00 UTC, which is still 2026-03-12 in Sao Paulo.
	due := time.Date(2026, 3, 13, 2, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, sp)

	c := Classify(due, now)
	assert.Equal(t, RuleDueToday, c.Rule)
	assert.Equal(t, 0, c.DaysRemaining)
}
