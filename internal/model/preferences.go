package model

import "time"

// DefaultAlertDays are the day offsets at which alerts fire when a user
// has not customized their preferences.
var DefaultAlertDays = []int{7, 3, 1, 0}

// NotificationPreferences holds a user's alerting settings. It is a
// read-only input to the alert pipeline; only user settings actions
// mutate it.
type NotificationPreferences struct {
	UserID       string `json:"user_id" db:"user_id"`
	EmailEnabled bool   `json:"email_enabled" db:"email_enabled"`

	// EmailOverride, when set, replaces the account email as the
	// delivery address.
	EmailOverride string `json:"email_override,omitempty" db:"email_override"`

	// AlertDays are the daysRemaining values at which alerts fire,
	// e.g. [7, 3, 1, 0]. An empty set disables alerting entirely.
	AlertDays []int `json:"alert_days" db:"-"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences returns the preferences applied to users who have
// never saved their own.
func DefaultPreferences(userID string) NotificationPreferences {
	days := make([]int, len(DefaultAlertDays))
	copy(days, DefaultAlertDays)
	return NotificationPreferences{
		UserID:       userID,
		EmailEnabled: true,
		AlertDays:    days,
	}
}
