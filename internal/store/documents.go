package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/Avisafety/avisafe-sub001/internal/models"
)

const listDocumentsQuery = `
	SELECT id, tittel, kategori, gyldig_til, "varsel_dager_for_utløp", company_id
	FROM documents
	WHERE gyldig_til IS NOT NULL AND company_id IS NOT NULL
	ORDER BY gyldig_til, id`

// ListDocumentsWithExpiry returns every document that has an expiry date,
// across all companies.
func (s *Store) ListDocumentsWithExpiry(ctx context.Context) ([]models.Document, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, listDocumentsQuery)
	if err != nil {
		return nil, wrapErr(ctx, "list_documents", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var (
			doc       models.Document
			category  sql.NullString
			expiresOn sql.NullTime
			leadDays  sql.NullInt64
		)
		if err := rows.Scan(&doc.ID, &doc.Title, &category, &expiresOn, &leadDays, &doc.CompanyID); err != nil {
			return nil, wrapErr(ctx, "list_documents", fmt.Errorf("scan document: %w", err))
		}
		doc.Category = category.String
		if expiresOn.Valid {
			d := s.dateOf(expiresOn.Time)
			doc.ExpiresOn = &d
		}
		if leadDays.Valid {
			v := int(leadDays.Int64)
			doc.LeadDays = &v
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(ctx, "list_documents", err)
	}

	return docs, nil
}

const getCompanyQuery = `SELECT id, navn FROM companies WHERE id = $1`

func (s *Store) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	var company models.Company
	err := s.db.QueryRowContext(ctx, getCompanyQuery, companyID).Scan(&company.ID, &company.Name)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(ctx, "get_company", err)
	}
	return &company, nil
}
