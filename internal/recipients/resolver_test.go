package recipients

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Avisafety/avisafe-sub001/internal/common/logger"
	"github.com/Avisafety/avisafe-sub001/internal/models"
)

type mockAccountStore struct {
	mock.Mock
}

func (m *mockAccountStore) ListApprovedAccounts(ctx context.Context, companyID string) ([]models.UserAccount, error) {
	args := m.Called(ctx, companyID)
	accounts, _ := args.Get(0).([]models.UserAccount)
	return accounts, args.Error(1)
}

func (m *mockAccountStore) ListOptedInUserIDs(ctx context.Context, userIDs []string, category string) (map[string]bool, error) {
	args := m.Called(ctx, userIDs, category)
	ids, _ := args.Get(0).(map[string]bool)
	return ids, args.Error(1)
}

func TestResolver_Intersection(t *testing.T) {
	// A is approved but opted out, B is approved and opted in, C opted in
	// but is not approved and therefore never returned by the store.
	st := new(mockAccountStore)
	st.On("ListApprovedAccounts", mock.Anything, "company-1").Return([]models.UserAccount{
		{ID: "A", Email: "a@fjellfly.no", CompanyID: "company-1", Approved: true},
		{ID: "B", Email: "b@fjellfly.no", CompanyID: "company-1", Approved: true},
	}, nil)
	st.On("ListOptedInUserIDs", mock.Anything, []string{"A", "B"}, "document_expiry").
		Return(map[string]bool{"B": true, "C": true}, nil)

	r := NewResolver(st, logger.NewTestLogger(t))
	got, err := r.Resolve(context.Background(), "company-1", "document_expiry")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].ID)
	st.AssertExpectations(t)
}

func TestResolver_PreservesAccountOrder(t *testing.T) {
	st := new(mockAccountStore)
	st.On("ListApprovedAccounts", mock.Anything, "company-1").Return([]models.UserAccount{
		{ID: "z", Approved: true}, {ID: "a", Approved: true}, {ID: "m", Approved: true},
	}, nil)
	st.On("ListOptedInUserIDs", mock.Anything, mock.Anything, "document_expiry").
		Return(map[string]bool{"a": true, "z": true, "m": true}, nil)

	got, err := NewResolver(st, logger.NewNoOpLogger()).Resolve(context.Background(), "company-1", "document_expiry")

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"z", "a", "m"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestResolver_NoApprovedAccounts(t *testing.T) {
	st := new(mockAccountStore)
	st.On("ListApprovedAccounts", mock.Anything, "company-1").Return(nil, nil)

	got, err := NewResolver(st, logger.NewNoOpLogger()).Resolve(context.Background(), "company-1", "document_expiry")

	require.NoError(t, err)
	assert.Empty(t, got)
	st.AssertNotCalled(t, "ListOptedInUserIDs", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_NoPreferenceRows(t *testing.T) {
	st := new(mockAccountStore)
	st.On("ListApprovedAccounts", mock.Anything, "company-1").Return([]models.UserAccount{{ID: "A", Approved: true}}, nil)
	st.On("ListOptedInUserIDs", mock.Anything, []string{"A"}, "document_expiry").Return(map[string]bool{}, nil)

	got, err := NewResolver(st, logger.NewNoOpLogger()).Resolve(context.Background(), "company-1", "document_expiry")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolver_StoreErrors(t *testing.T) {
	t.Run("accounts", func(t *testing.T) {
		st := new(mockAccountStore)
		st.On("ListApprovedAccounts", mock.Anything, "company-1").Return(nil, stderrors.New("timeout"))

		_, err := NewResolver(st, logger.NewNoOpLogger()).Resolve(context.Background(), "company-1", "document_expiry")
		assert.ErrorContains(t, err, "timeout")
	})

	t.Run("preferences", func(t *testing.T) {
		st := new(mockAccountStore)
		st.On("ListApprovedAccounts", mock.Anything, "company-1").Return([]models.UserAccount{{ID: "A", Approved: true}}, nil)
		st.On("ListOptedInUserIDs", mock.Anything, []string{"A"}, "document_expiry").Return(nil, stderrors.New("boom"))

		_, err := NewResolver(st, logger.NewNoOpLogger()).Resolve(context.Background(), "company-1", "document_expiry")
		assert.ErrorContains(t, err, "boom")
	})
}

func TestResolver_UnknownCategory(t *testing.T) {
	st := new(mockAccountStore)

	_, err := NewResolver(st, logger.NewNoOpLogger()).Resolve(context.Background(), "company-1", "newsletter")

	assert.Error(t, err)
	st.AssertNotCalled(t, "ListApprovedAccounts", mock.Anything, mock.Anything)
}
