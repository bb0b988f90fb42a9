package claims_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/claims"
	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/storage"
	"github.com/ong-aas/claims-portal/internal/testutil"
)

func validSubmission() claims.Submission {
	return claims.Submission{
		Title:            "Rear-end collision",
		Description:      "Hit at a roundabout",
		Date:             "2025-06-30",
		AccidentImages:   []string{"https://objects.test/claims/1.jpg", "https://objects.test/claims/2.jpg"},
		PoliceReport:     "https://objects.test/claims/report.pdf",
		InsuranceReceipt: "https://objects.test/claims/receipt.pdf",
	}
}

func setup(t *testing.T, verified bool) (*claims.Service, *testutil.MemoryStore, models.User) {
	t.Helper()
	store := testutil.NewMemoryStore()
	user, err := store.CreateUser(context.Background(), models.User{FullName: "Aicha", PhoneNumber: "12345678", Verified: verified})
	require.NoError(t, err)
	return claims.NewService(store, zap.NewNop()), store, user
}

func TestSubmitPreconditions(t *testing.T) {
	cases := []struct {
		name     string
		verified bool
		mutate   func(*claims.Submission)
		wantKey  string
	}{
		{"unverified", false, func(*claims.Submission) {}, claims.MsgNotVerified},
		{"one image", true, func(s *claims.Submission) { s.AccidentImages = s.AccidentImages[:1] }, claims.MsgTooFewImages},
		{"blank image does not count", true, func(s *claims.Submission) { s.AccidentImages[1] = "  " }, claims.MsgTooFewImages},
		{"no police report", true, func(s *claims.Submission) { s.PoliceReport = "" }, claims.MsgDocumentsRequired},
		{"no receipt", true, func(s *claims.Submission) { s.InsuranceReceipt = "" }, claims.MsgDocumentsRequired},
		{"no title", true, func(s *claims.Submission) { s.Title = " " }, claims.MsgFieldsRequired},
		{"bad date", true, func(s *claims.Submission) { s.Date = "30/06/2025" }, claims.MsgInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, user := setup(t, tc.verified)
			sub := validSubmission()
			tc.mutate(&sub)

			_, err := svc.Submit(context.Background(), &user, sub)
			var verr *claims.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.wantKey, verr.Key)

			all, err := store.ListClaims(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all, "no write on rejected submission")
		})
	}
}

func TestSubmitWithoutIdentity(t *testing.T) {
	svc, _, _ := setup(t, true)
	_, err := svc.Submit(context.Background(), nil, validSubmission())
	var verr *claims.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, claims.MsgLoginRequired, verr.Key)
}

func TestSubmitOneImageThenTwo(t *testing.T) {
	svc, _, user := setup(t, true)
	ctx := context.Background()

	sub := validSubmission()
	sub.AccidentImages = sub.AccidentImages[:1]
	_, err := svc.Submit(ctx, &user, sub)
	require.Error(t, err)

	claim, err := svc.Submit(ctx, &user, validSubmission())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, claim.Status)
	assert.Equal(t, 0, claim.Progress)
	assert.Equal(t, user.ID, claim.UserID)
	assert.NotEmpty(t, claim.ID)
	assert.Equal(t, "2025-06-30", claim.IncidentDate.Format("2006-01-02"))

	own, err := svc.ListOwn(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
}

func TestSubmitStoreFailureIsNotRetried(t *testing.T) {
	svc, store, user := setup(t, true)
	store.FailNext = errors.New("network down")
	_, err := svc.Submit(context.Background(), &user, validSubmission())
	require.Error(t, err)

	all, _ := store.ListClaims(context.Background())
	assert.Empty(t, all)
}

func TestUpdateAppendsAuditAndDetectsConflicts(t *testing.T) {
	svc, store, user := setup(t, true)
	ctx := context.Background()
	admin, err := store.CreateUser(ctx, models.User{FullName: "Staff", PhoneNumber: "99999999", Role: models.RoleAdmin, Verified: true})
	require.NoError(t, err)

	claim, err := svc.Submit(ctx, &user, validSubmission())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, admin, claim.ID, claims.Edit{Status: models.StatusInProgress, Progress: 40, Note: "docs ok", Version: claim.Version})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, 40, updated.Progress)

	history, err := svc.History(ctx, claim.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, admin.ID, history[0].UpdatedBy)
	assert.Equal(t, "docs ok", history[0].Note)

	_, err = svc.Update(ctx, admin, claim.ID, claims.Edit{Status: models.StatusResolved, Progress: 100, Version: claim.Version})
	assert.ErrorIs(t, err, storage.ErrConflict, "stale version must not overwrite")

	back, err := svc.Update(ctx, admin, claim.ID, claims.Edit{Status: models.StatusPending, Progress: 10, Version: updated.Version})
	require.NoError(t, err, "non-monotonic transitions are allowed")
	assert.Equal(t, models.StatusPending, back.Status)

	_, err = svc.Update(ctx, admin, "missing", claims.Edit{Status: models.StatusPending, Version: 1})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateValidation(t *testing.T) {
	svc, _, _ := setup(t, true)
	admin := models.User{ID: "admin", Role: models.RoleAdmin}
	cases := []struct {
		edit    claims.Edit
		wantKey string
	}{
		{claims.Edit{Status: "Closed", Progress: 0, Version: 1}, claims.MsgInvalidStatus},
		{claims.Edit{Status: models.StatusResolved, Progress: 101, Version: 1}, claims.MsgInvalidProgress},
		{claims.Edit{Status: models.StatusResolved, Progress: -1, Version: 1}, claims.MsgInvalidProgress},
		{claims.Edit{Status: models.StatusResolved, Progress: 100}, claims.MsgVersionRequired},
	}
	for _, tc := range cases {
		_, err := svc.Update(context.Background(), admin, "c", tc.edit)
		var verr *claims.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, tc.wantKey, verr.Key)
	}
}
