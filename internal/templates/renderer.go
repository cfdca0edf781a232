// Package templates merges email templates with per-document values.
package templates

import (
	"html"
	"regexp"

	"github.com/Avisafety/avisafe-sub001/internal/models"
)

const TypeDocumentReminder = "document_reminder"

// Placeholder names understood by stored templates.
const (
	TokenDocumentTitle    = "document_title"
	TokenExpiryDate       = "expiry_date"
	TokenCompanyName      = "company_name"
	TokenDocumentCategory = "document_category"
	TokenDaysUntilExpiry  = "days_until_expiry"
)

// Fields maps placeholder names to already formatted values.
type Fields map[string]string

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Render produces the subject and body for one document. A nil tmpl selects
// the built-in template for templateType, whose body gets HTML-escaped values.
// Stored templates receive values as written.
func Render(tmpl *models.EmailTemplate, templateType string, fields Fields) models.Message {
	if tmpl != nil {
		return models.Message{
			Subject: Substitute(tmpl.Subject, fields),
			HTML:    Substitute(tmpl.Content, fields),
		}
	}
	subject, content := defaultTemplate(templateType)
	return models.Message{
		Subject: Substitute(subject, fields),
		HTML:    Substitute(content, escapeFields(fields)),
	}
}

func escapeFields(fields Fields) Fields {
	escaped := make(Fields, len(fields))
	for name, value := range fields {
		escaped[name] = html.EscapeString(value)
	}
	return escaped
}

// Substitute replaces every {{name}} whose name is in fields. Unknown tokens
// stay as written. Substituted values are not scanned again.
func Substitute(pattern string, fields Fields) string {
	return tokenPattern.ReplaceAllStringFunc(pattern, func(token string) string {
		name := tokenPattern.FindStringSubmatch(token)[1]
		if value, ok := fields[name]; ok {
			return value
		}
		return token
	})
}
