package service_test

import (
	"context"
	"errors"
	"testing"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
	"Campus_Community/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, w *world, name, password string) *model.User {
	t.Helper()
	ctx := context.Background()
	email := name + "@campus.edu"
	require.NoError(t, w.email.SendCode(ctx, service.ScopeRegister, email))
	code, err := w.codes.GetConfirmed(ctx, service.ScopeRegister, email)
	require.NoError(t, err)
	u, err := w.user.Register(ctx, name, password, email, code)
	require.NoError(t, err)
	return u
}

func TestRegisterLoginLogout(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	u := register(t, w, "alice", "secret1")

	mail, ok := w.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, "alice@campus.edu", mail.To)

	_, err := w.user.Login(ctx, "alice", "wrong-pass")
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	pair, err := w.user.Login(ctx, "alice@campus.edu", "secret1")
	require.NoError(t, err)
	claims, err := pkg.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	require.NoError(t, w.user.CheckSession(ctx, u.ID, pair.AccessToken))

	require.NoError(t, w.user.Logout(ctx, u.ID))
	assert.ErrorIs(t, w.user.CheckSession(ctx, u.ID, pair.AccessToken), pkg.ErrUnauthorized)
}

func TestRegisterRejectsBadCode(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	require.NoError(t, w.email.SendCode(ctx, service.ScopeRegister, "bob@campus.edu"))

	_, err := w.user.Register(ctx, "bob", "secret1", "bob@campus.edu", "000000x")
	assert.ErrorIs(t, err, pkg.ErrInvalidParam)
	_, err = w.user.Register(ctx, "bob", "secret1", "nobody@campus.edu", "123456")
	assert.ErrorIs(t, err, pkg.ErrInvalidParam)

	assert.ErrorIs(t, w.email.SendCode(ctx, "unknown", "bob@campus.edu"), pkg.ErrInvalidParam)
}

func TestSendCodeMailFailure(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.mailer.Err = errors.New("smtp down")

	require.Error(t, w.email.SendCode(ctx, service.ScopeRegister, "carol@campus.edu"))
	_, err := w.codes.GetConfirmed(ctx, service.ScopeRegister, "carol@campus.edu")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestResetAndChangePassword(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	u := register(t, w, "dave", "secret1")

	require.NoError(t, w.email.SendCode(ctx, service.ScopeReset, u.Email))
	code, err := w.codes.GetConfirmed(ctx, service.ScopeReset, u.Email)
	require.NoError(t, err)
	require.NoError(t, w.user.ResetPassword(ctx, u.Email, code, "secret2"))
	assert.ErrorIs(t, w.user.ResetPassword(ctx, u.Email, code, "secret3"), pkg.ErrInvalidParam, "code is single use")

	_, err = w.user.Login(ctx, "dave", "secret2")
	require.NoError(t, err)

	assert.ErrorIs(t, w.user.ChangePassword(ctx, u.ID, "nope", "secret3"), pkg.ErrInvalidParam)
	require.NoError(t, w.user.ChangePassword(ctx, u.ID, "secret2", "secret3"))
	_, err = w.user.Login(ctx, "dave", "secret3")
	require.NoError(t, err)
}

func TestBanForcesLogout(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	u := register(t, w, "eve", "secret1")
	pair, err := w.user.Login(ctx, "eve", "secret1")
	require.NoError(t, err)

	st, err := w.ban.Status(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, st.Banned)

	assert.ErrorIs(t, w.ban.Ban(ctx, admin.ID, admin.ID, "self"), pkg.ErrInvalidParam)
	require.NoError(t, w.ban.Ban(ctx, admin.ID, u.ID, "spam"))

	// cached status is refreshed, not stale
	st, err = w.ban.Status(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, st.Banned)
	assert.Equal(t, "spam", st.Reason)

	assert.ErrorIs(t, w.user.CheckSession(ctx, u.ID, pair.AccessToken), pkg.ErrUnauthorized)
	_, err = w.ban.Enforce(ctx, u.ID)
	assert.ErrorIs(t, err, pkg.ErrBanned)
	_, err = w.user.Login(ctx, "eve", "secret1")
	assert.ErrorIs(t, err, pkg.ErrBanned)
	_, err = w.user.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrBanned)

	require.NoError(t, w.ban.Unban(ctx, admin.ID, u.ID))
	st, err = w.ban.Enforce(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, st.Banned)
	_, err = w.user.Login(ctx, "eve", "secret1")
	require.NoError(t, err)

	_, err = w.ban.Status(ctx, 999)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}
