// Package recipients decides which accounts of a company receive a
// notification category.
package recipients

import (
	"context"
	"fmt"

	"github.com/Avisafety/avisafe-sub001/internal/common/logger"
	"github.com/Avisafety/avisafe-sub001/internal/models"
	"github.com/Avisafety/avisafe-sub001/internal/store"
)

// AccountStore is the part of the record store the resolver reads.
type AccountStore interface {
	ListApprovedAccounts(ctx context.Context, companyID string) ([]models.UserAccount, error)
	ListOptedInUserIDs(ctx context.Context, userIDs []string, category string) (map[string]bool, error)
}

type Resolver struct {
	store  AccountStore
	logger logger.Logger
}

func NewResolver(s AccountStore, log logger.Logger) *Resolver {
	return &Resolver{
		store:  s,
		logger: log.WithFields(map[string]interface{}{"component": "recipients"}),
	}
}

// Resolve returns the approved accounts of companyID that opted in to
// category, in account order. An empty result is not an error.
func (r *Resolver) Resolve(ctx context.Context, companyID, category string) ([]models.UserAccount, error) {
	if _, ok := store.PreferenceColumn(category); !ok {
		return nil, fmt.Errorf("unknown notification category %q", category)
	}

	accounts, err := r.store.ListApprovedAccounts(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list approved accounts: %w", err)
	}

	ids := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		if acc.Approved {
			ids = append(ids, acc.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	optedIn, err := r.store.ListOptedInUserIDs(ctx, ids, category)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}

	var out []models.UserAccount
	for _, acc := range accounts {
		if acc.Approved && optedIn[acc.ID] {
			out = append(out, acc)
		}
	}

	r.logger.Debug("recipients resolved", map[string]interface{}{
		"companyId":  companyID,
		"category":   category,
		"approved":   len(ids),
		"recipients": len(out),
	})

	return out, nil
}
