package expiry

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

var norwegianMonths = [...]string{
	"januar", "februar", "mars", "april", "mai", "juni",
	"juli", "august", "september", "oktober", "november", "desember",
}

// FormatLongDate renders d in the long form of locale: "1. mars 2025" for
// nb-NO, "1 March 2025" for en-GB, "March 1, 2025" for en-US. Unknown
// locales use nb-NO.
func FormatLongDate(d civil.Date, locale string) string {
	if !d.IsValid() {
		return d.String()
	}
	switch strings.ToLower(locale) {
	case "en-gb", "en":
		return fmt.Sprintf("%d %s %d", d.Day, d.Month.String(), d.Year)
	case "en-us":
		return fmt.Sprintf("%s %d, %d", d.Month.String(), d.Day, d.Year)
	default:
		return fmt.Sprintf("%d. %s %d", d.Day, norwegianMonths[d.Month-1], d.Year)
	}
}
