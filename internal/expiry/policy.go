// Package expiry decides on which calendar day a document reminder fires.
package expiry

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/Avisafety/avisafe-sub001/internal/models"
)

// ShouldNotifyToday reports whether today is exactly leadDays before
// expiresOn. There is no catch-up: a missed day is never reported later.
func ShouldNotifyToday(expiresOn civil.Date, leadDays int, today civil.Date) bool {
	if leadDays <= 0 || !expiresOn.IsValid() || !today.IsValid() {
		return false
	}
	return NotificationDate(expiresOn, leadDays) == today
}

// NotificationDate is the calendar day the reminder for expiresOn fires.
func NotificationDate(expiresOn civil.Date, leadDays int) civil.Date {
	return expiresOn.AddDays(-leadDays)
}

// EffectiveLeadDays applies the column default to a nullable lead time.
func EffectiveLeadDays(leadDays *int) int {
	if leadDays == nil {
		return models.DefaultLeadDays
	}
	return *leadDays
}

// IsDue applies ShouldNotifyToday to a document row.
func IsDue(doc models.Document, today civil.Date) bool {
	if doc.ExpiresOn == nil {
		return false
	}
	return ShouldNotifyToday(*doc.ExpiresOn, EffectiveLeadDays(doc.LeadDays), today)
}

// Today is the calendar date of now in loc. A nil loc means UTC.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}
