package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/auth"
	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/session"
	"github.com/ong-aas/claims-portal/internal/storage"
	"github.com/ong-aas/claims-portal/internal/testutil"
)

type recordingRefresher struct {
	users []models.User
	err   error
}

func (r *recordingRefresher) Refresh(_ context.Context, user models.User) error {
	r.users = append(r.users, user)
	return r.err
}

func stubSessions(t *testing.T, r identityRefresher) {
	t.Helper()
	prev := openSessions
	openSessions = func(context.Context, storage.UserStore, string, int) (identityRefresher, func(), error) {
		return r, func() {}, nil
	}
	t.Cleanup(func() { openSessions = prev })
}

func runCLI(t *testing.T, store *testutil.MemoryStore, args ...string) (string, error) {
	t.Helper()
	prev := openStore
	openStore = func(context.Context, string) (storage.UserStore, func(), error) {
		return store, func() {}, nil
	}
	t.Cleanup(func() { openStore = prev })

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(append(args, "--database-url", "postgres://test"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateAdmin(t *testing.T) {
	store := testutil.NewMemoryStore()
	out, err := runCLI(t, store, "create-admin", "--name", "Staff", "--phone", "87654321", "--pin", "4321")
	require.NoError(t, err)
	assert.Contains(t, out, "admin Staff created")

	admin, err := store.FindByPhone(context.Background(), "87654321")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.Verified)
	assert.True(t, auth.ComparePIN(admin.PINHash, "4321"))

	_, err = runCLI(t, store, "create-admin", "--name", "Again", "--phone", "87654321", "--pin", "4321")
	assert.ErrorContains(t, err, "already registered")
}

func TestCreateAdminRejectsBadPIN(t *testing.T) {
	_, err := runCLI(t, testutil.NewMemoryStore(), "create-admin", "--name", "Staff", "--phone", "87654321", "--pin", "12")
	assert.ErrorIs(t, err, auth.ErrPINFormat)
}

func TestVerifyUser(t *testing.T) {
	store := testutil.NewMemoryStore()
	refresher := &recordingRefresher{}
	stubSessions(t, refresher)
	_, err := store.CreateUser(context.Background(), models.User{FullName: "Member", PhoneNumber: "12345678"})
	require.NoError(t, err)

	out, err := runCLI(t, store, "verify-user", "--phone", "12345678")
	require.NoError(t, err)
	assert.Contains(t, out, "Member verified")
	require.Len(t, refresher.users, 1)
	assert.True(t, refresher.users[0].Verified)

	out, err = runCLI(t, store, "verify-user", "--phone", "12345678")
	require.NoError(t, err)
	assert.Contains(t, out, "already verified")

	_, err = runCLI(t, store, "verify-user", "--phone", "11112222")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--database-url", " "})
	cmd.SetOut(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "DATABASE_URL")
}

func TestSetRole(t *testing.T) {
	store := testutil.NewMemoryStore()
	stubSessions(t, &recordingRefresher{})
	_, err := store.CreateUser(context.Background(), models.User{FullName: "Member", PhoneNumber: "12345678"})
	require.NoError(t, err)

	out, err := runCLI(t, store, "set-role", "--phone", "12345678", "--role", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "Member is now admin")

	_, err = runCLI(t, store, "set-role", "--phone", "12345678", "--role", "owner")
	assert.ErrorContains(t, err, "role must be")
}

func TestSetRoleDemotesLiveSessions(t *testing.T) {
	store := testutil.NewMemoryStore()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	sessions := session.New(store, rdb, auth.NewTokenManager("secret", "claims-portal", time.Hour), session.Options{}, zap.NewNop())
	stubSessions(t, sessions)

	_, err := runCLI(t, store, "create-admin", "--name", "Staff", "--phone", "87654321", "--pin", "4321")
	require.NoError(t, err)
	ctx := context.Background()
	sess, err := sessions.Login(ctx, "87654321", "4321")
	require.NoError(t, err)

	out, err := runCLI(t, store, "set-role", "--phone", "87654321", "--role", "user")
	require.NoError(t, err)
	assert.Contains(t, out, "Staff is now user")

	user, err := sessions.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
}

func TestSetRoleReportsStaleSessions(t *testing.T) {
	store := testutil.NewMemoryStore()
	stubSessions(t, &recordingRefresher{err: errors.New("dial tcp: connection refused")})
	_, err := store.CreateUser(context.Background(), models.User{FullName: "Member", PhoneNumber: "12345678", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = runCLI(t, store, "set-role", "--phone", "12345678", "--role", "user")
	assert.ErrorContains(t, err, "live sessions keep the old identity")

	user, err := store.FindByPhone(context.Background(), "12345678")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
}
