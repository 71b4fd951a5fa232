package alert

import (
	"strings"

	"github.com/lexdesk/deadline-alerts/internal/model"
)

// Policy decides whether a classified deadline should produce a
// notification on one channel. All channels share the same base rules
// (notifications enabled, alert days configured, daysRemaining >= 0 and
// a member of the configured alert days); each channel supplies its own
// destination-validity check.
type Policy struct {
	Channel          string
	CheckDestination func(destination string) bool
}

// EmailPolicy requires a non-blank destination address.
var EmailPolicy = Policy{
	Channel: model.ChannelEmail,
	CheckDestination: func(destination string) bool {
		return strings.TrimSpace(destination) != ""
	},
}

// InAppPolicy has no destination requirement.
var InAppPolicy = Policy{
	Channel:          model.ChannelInApp,
	CheckDestination: func(string) bool { return true },
}

// Eligible reports whether an alert should be sent now. Overdue
// deadlines (daysRemaining < 0) are never eligible; overdue escalation
// is a separate policy this filter does not implement.
func (p Policy) Eligible(prefs model.NotificationPreferences, daysRemaining int, destination string) bool {
	if !prefs.EmailEnabled {
		return false
	}
	if !p.CheckDestination(destination) {
		return false
	}
	if len(prefs.AlertDays) == 0 {
		return false
	}
	if daysRemaining < 0 {
		return false
	}
	for _, d := range prefs.AlertDays {
		if d == daysRemaining {
			return true
		}
	}
	return false
}

// Destination resolves the delivery address for a user: the override
// from preferences when set, otherwise the account email.
func Destination(prefs model.NotificationPreferences, accountEmail string) string {
	if strings.TrimSpace(prefs.EmailOverride) != "" {
		return prefs.EmailOverride
	}
	return accountEmail
}
