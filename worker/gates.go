package worker

import (
	"fmt"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"

	"leadpilot/models"
)

// defaultRegion is assumed for phone numbers stored without a country
// prefix.
const defaultRegion = "BR"

// withinWindow checks the campaign's active-hours and calling-days
// window in its own timezone.
func withinWindow(c *models.Campaign, now time.Time) bool {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	hour := local.Hour()
	if hour < c.ActiveHoursStart || hour >= c.ActiveHoursEnd {
		return false
	}
	if len(c.CallingDays) > 0 {
		weekday := strings.ToLower(local.Weekday().String())
		found := false
		for _, day := range c.CallingDays {
			if strings.ToLower(day) == weekday {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// intervalElapsed enforces the minimum spacing between text sends
func intervalElapsed(c *models.Campaign, now time.Time) bool {
	if c.LastSentAt == nil {
		return true
	}
	return now.Sub(*c.LastSentAt) >= time.Duration(c.IntervalSecondsMin)*time.Second
}

// contactIneligible returns a human-readable reason when the selected
// contact must not be dialed, or empty when it may.
func contactIneligible(c *models.Campaign, contact *models.CampaignContact, lead *models.Lead) string {
	if c.MaxAttemptsPerLead > 0 && contact.Attempts >= c.MaxAttemptsPerLead {
		return fmt.Sprintf("max attempts reached (%d)", contact.Attempts)
	}
	if lead.OptOut || lead.IsArchived {
		return "lead opted out"
	}
	if !usablePhone(lead.Phone) {
		return "no usable phone number"
	}
	return ""
}

func usablePhone(phone string) bool {
	if strings.TrimSpace(phone) == "" {
		return false
	}
	parsed, err := phonenumbers.Parse(phone, defaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(parsed)
}

// renderTemplate fills the few placeholders campaign templates support
func renderTemplate(template string, lead *models.Lead) string {
	out := strings.ReplaceAll(template, "{{name}}", lead.Name)
	first := lead.Name
	if idx := strings.IndexByte(first, ' '); idx > 0 {
		first = first[:idx]
	}
	return strings.ReplaceAll(out, "{{first_name}}", first)
}
