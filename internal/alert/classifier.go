// Package alert holds the pure decision logic of the deadline-alert
// pipeline: classification of a deadline against the current day,
// per-channel eligibility policy, and dedupe key derivation. Nothing
// in this package performs I/O.
package alert

import "time"

// Rule names the threshold that matched a deadline.
type Rule string

const (
	RuleOverdue   Rule = "OVERDUE"
	RuleDueToday  Rule = "DUE_TODAY"
	RuleDueIn1Day Rule = "DUE_IN_1_DAY"
	RuleDueIn3Days Rule = "DUE_IN_3_DAYS"
	RuleDueIn7Days Rule = "DUE_IN_7_DAYS"

	// RuleNone means no alert threshold matched.
	RuleNone Rule = ""
)

// Severity is the coarse urgency tier derived from a rule.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Classification is the derived result of classifying one deadline.
// It is never persisted.
type Classification struct {
	Rule          Rule
	Severity      Severity
	DaysRemaining int
}

// Matched reports whether any alert threshold applied.
func (c Classification) Matched() bool {
	return c.Rule != RuleNone
}

// Classify maps a deadline's due instant and the current instant to an
// alert rule and severity. Both instants are reduced to calendar days
// in now's location, so the result is stable no matter when within a
// day the job runs. The function is total: any input yields a valid
// Classification, with Rule == RuleNone when no threshold matches.
func Classify(dueAt, now time.Time) Classification {
	d := DaysRemaining(dueAt, now)

	c := Classification{DaysRemaining: d}
	switch {
	case d < 0:
		c.Rule, c.Severity = RuleOverdue, SeverityDanger
	case d == 0:
		c.Rule, c.Severity = RuleDueToday, SeverityDanger
	case d == 1:
		c.Rule, c.Severity = RuleDueIn1Day, SeverityDanger
	case d == 3:
		c.Rule, c.Severity = RuleDueIn3Days, SeverityWarning
	case d == 7:
		c.Rule, c.Severity = RuleDueIn7Days, SeverityInfo
	}
	return c
}

// DaysRemaining returns the number of whole calendar days between now
// and dueAt, in now's location. Calendar fields are re-anchored in UTC
// before subtracting so every day is exactly 24h and DST transitions
// cannot skew the count.
func DaysRemaining(dueAt, now time.Time) int {
	loc := now.Location()
	due := dueAt.In(loc)

	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return int(dueDay.Sub(today) / (24 * time.Hour))
}
