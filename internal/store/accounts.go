package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Avisafety/avisafe-sub001/internal/models"
)

// preferenceColumns whitelists the notification_preferences flags a category
// may select.
var preferenceColumns = map[string]string{
	"document_expiry": "email_document_expiry",
}

// PreferenceColumn returns the flag column backing a notification category.
func PreferenceColumn(category string) (string, bool) {
	col, ok := preferenceColumns[category]
	return col, ok
}

const listApprovedAccountsQuery = `
	SELECT id, email, full_name, company_id
	FROM profiles
	WHERE company_id = $1 AND approved = true AND email IS NOT NULL AND email <> ''
	ORDER BY email`

// ListApprovedAccounts returns the approved profiles of a company.
func (s *Store) ListApprovedAccounts(ctx context.Context, companyID string) ([]models.UserAccount, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, listApprovedAccountsQuery, companyID)
	if err != nil {
		return nil, wrapErr(ctx, "list_approved_accounts", err)
	}
	defer rows.Close()

	var accounts []models.UserAccount
	for rows.Next() {
		var (
			acc      models.UserAccount
			fullName sql.NullString
		)
		if err := rows.Scan(&acc.ID, &acc.Email, &fullName, &acc.CompanyID); err != nil {
			return nil, wrapErr(ctx, "list_approved_accounts", fmt.Errorf("scan profile: %w", err))
		}
		acc.FullName = fullName.String
		acc.Approved = true
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(ctx, "list_approved_accounts", err)
	}

	return accounts, nil
}

// ListOptedInUserIDs returns the subset of userIDs whose flag for category is
// set. Users without a preference row are not returned.
func (s *Store) ListOptedInUserIDs(ctx context.Context, userIDs []string, category string) (map[string]bool, error) {
	column, ok := PreferenceColumn(category)
	if !ok {
		return nil, fmt.Errorf("unknown notification category %q", category)
	}
	if len(userIDs) == 0 {
		return map[string]bool{}, nil
	}

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT user_id FROM notification_preferences WHERE user_id = ANY($1) AND %s = true`,
		column,
	)
	rows, err := s.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, wrapErr(ctx, "list_opted_in_users", err)
	}
	defer rows.Close()

	optedIn := make(map[string]bool, len(userIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr(ctx, "list_opted_in_users", fmt.Errorf("scan preference: %w", err))
		}
		optedIn[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(ctx, "list_opted_in_users", err)
	}

	return optedIn, nil
}
