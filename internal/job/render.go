package job

import (
	"fmt"

	"github.com/lexdesk/deadline-alerts/internal/alert"
	"github.com/lexdesk/deadline-alerts/internal/model"
)

// renderAlert formats the user-facing title and HTML body for one
// classification.
func renderAlert(c alert.Classification, d model.Deadline) (title, message string) {
	switch c.Rule {
	case alert.RuleDueToday:
		title = fmt.Sprintf("Deadline due today: %s", d.Title)
	case alert.RuleDueIn1Day:
		title = fmt.Sprintf("Deadline due tomorrow: %s", d.Title)
	case alert.RuleOverdue:
		title = fmt.Sprintf("Deadline overdue: %s", d.Title)
	default:
		title = fmt.Sprintf("Deadline in %d days: %s", c.DaysRemaining, d.Title)
	}

	due := d.DueAt.Format("Mon, 02 Jan 2006")
	message = fmt.Sprintf(
		"<p><strong>%s</strong></p><p>Due on %s.</p>",
		title, due,
	)
	if d.ProcessNumber != "" {
		message += fmt.Sprintf("<p>Case: %s</p>", d.ProcessNumber)
	}

	return title, message
}
