package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lexdesk/deadline-alerts/internal/model"
)

func prefs(enabled bool, days ...int) model.NotificationPreferences {
	return model.NotificationPreferences{
		UserID:       "user-1",
		EmailEnabled: enabled,
		AlertDays:    days,
	}
}

func TestEmailEligibility(t *testing.T) {
	cases := []struct {
		name        string
		prefs       model.NotificationPreferences
		days        int
		destination string
		want        bool
	}{
		{"all conditions hold", prefs(true, 7, 3, 1, 0), 1, "a@b.com", true},
		{"disabled", prefs(false, 7, 3, 1, 0), 1, "a@b.com", false},
		{"blank destination", prefs(true, 7, 3, 1, 0), 1, "", false},
		{"whitespace destination", prefs(true, 7, 3, 1, 0), 1, "   ", false},
		{"no alert days", prefs(true), 1, "a@b.com", false},
		{"overdue never alerted", prefs(true, 7, 3, 1, 0), -1, "a@b.com", false},
		{"day not configured", prefs(true, 7, 1, 0), 3, "a@b.com", false},
		{"due today", prefs(true, 7, 3, 1, 0), 0, "a@b.com", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EmailPolicy.Eligible(tc.prefs, tc.days, tc.destination)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInAppEligibilityIgnoresDestination(t *testing.T) {
	p := prefs(true, 7, 3, 1, 0)

	assert.True(t, InAppPolicy.Eligible(p, 3, ""))
	assert.False(t, InAppPolicy.Eligible(p, -1, ""))
	assert.False(t, InAppPolicy.Eligible(prefs(false, 7), 7, ""))
}

func TestDestinationOverride(t *testing.T) {
	p := prefs(true, 0)
	assert.Equal(t, "acct@firm.com", Destination(p, "acct@firm.com"))

	p.EmailOverride = "partner@firm.com"
	assert.Equal(t, "partner@firm.com", Destination(p, "acct@firm.com"))
}

func TestDedupeKeyDeterminism(t *testing.T) {
	k1 := DedupeKey("dl-42", RuleDueIn3Days)
	k2 := DedupeKey("dl-42", RuleDueIn3Days)
	assert.Equal(t, k1, k2)

	assert.NotEqual(t, k1, DedupeKey("dl-43", RuleDueIn3Days))
	assert.NotEqual(t, k1, DedupeKey("dl-42", RuleDueIn1Day))
}
