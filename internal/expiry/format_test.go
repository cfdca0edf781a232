package expiry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLongDate(t *testing.T) {
	d := date(t, "2025-03-01")

	assert.Equal(t, "1. mars 2025", FormatLongDate(d, "nb-NO"))
	assert.Equal(t, "1 March 2025", FormatLongDate(d, "en-GB"))
	assert.Equal(t, "March 1, 2025", FormatLongDate(d, "en-US"))
	assert.Equal(t, "1. mars 2025", FormatLongDate(d, "xx-YY"))
	assert.Equal(t, "24. desember 2025", FormatLongDate(date(t, "2025-12-24"), "nb-NO"))
}
