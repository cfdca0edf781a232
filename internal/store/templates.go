package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/Avisafety/avisafe-sub001/internal/models"
)

const findEmailTemplateQuery = `
	SELECT company_id, template_type, subject, content
	FROM email_templates
	WHERE company_id = $1 AND template_type = $2
	LIMIT 1`

// FindEmailTemplate returns the company's override for templateType, or nil
// when the company uses the built-in template.
func (s *Store) FindEmailTemplate(ctx context.Context, companyID, templateType string) (*models.EmailTemplate, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	var tmpl models.EmailTemplate
	err := s.db.QueryRowContext(ctx, findEmailTemplateQuery, companyID, templateType).
		Scan(&tmpl.CompanyID, &tmpl.TemplateType, &tmpl.Subject, &tmpl.Content)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(ctx, "find_email_template", err)
	}
	return &tmpl, nil
}
