package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/lumina_api/internal/auth"
	"github.com/GTDGit/lumina_api/internal/utils"
)

func newTestAuth() (*AuthService, *fakeUsers, *fakeSessions, *clock) {
	users := newFakeUsers()
	sessions := newFakeSessions()
	clk := &clock{t: t0}
	svc := NewAuthService(users, sessions, auth.NewPasswordHasherWithCost(1024), 24*time.Hour)
	svc.now = clk.Now
	return svc, users, sessions, clk
}

func TestAuthService_Register(t *testing.T) {
	svc, users, sessions, _ := newTestAuth()
	ctx := context.Background()

	res, err := svc.Register(ctx, Credentials{Username: "  alice ", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, "alice", res.User.Username)
	assert.False(t, res.User.IsAdmin)
	assert.NotEqual(t, "secret1", res.User.PasswordHash)
	assert.Len(t, res.Session.Token, 64)
	assert.Equal(t, t0.Add(24*time.Hour), res.Session.ExpiresAt)

	stored, err := users.GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, stored.ID)

	saved, _ := sessions.Get(ctx, res.Session.Token)
	require.NotNil(t, saved)
	assert.Equal(t, res.User.ID, saved.UserID)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestAuth()

	tests := []struct {
		name   string
		in     Credentials
		fields []string
	}{
		{"short username", Credentials{Username: "ab", Password: "secret1"}, []string{"username"}},
		{"long username", Credentials{Username: "abcdefghijklmnopqrstuvwxyz1234567", Password: "secret1"}, []string{"username"}},
		{"short password", Credentials{Username: "alice", Password: "12345"}, []string{"password"}},
		{"both", Credentials{Username: " ", Password: ""}, []string{"username", "password"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			verrs, ok := utils.AsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)

			var fields []string
			for _, e := range verrs {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	svc, _, _, _ := newTestAuth()
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Credentials{Username: "Alice", Password: "another1"})
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestAuthService_LoginGenericFailure(t *testing.T) {
	svc, _, _, _ := newTestAuth()
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, Credentials{Username: "bob", Password: "secret1"})
	_, wrongErr := svc.Login(ctx, Credentials{Username: "alice", Password: "wrong-password"})
	_, emptyErr := svc.Login(ctx, Credentials{})

	for _, err := range []error{unknownErr, wrongErr, emptyErr} {
		assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	}
	// the response must not reveal which part was wrong
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	res, err := svc.Login(ctx, Credentials{Username: "ALICE", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Username)
}

type countingHasher struct {
	*auth.PasswordHasher
	verifies int
}

func (h *countingHasher) Verify(password, stored string) bool {
	h.verifies++
	return h.PasswordHasher.Verify(password, stored)
}

func TestAuthService_LoginUnknownUserDerivesKey(t *testing.T) {
	hasher := &countingHasher{PasswordHasher: auth.NewPasswordHasherWithCost(1024)}
	svc := NewAuthService(newFakeUsers(), newFakeSessions(), hasher, 24*time.Hour)
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		creds Credentials
	}{
		{"unknown user", Credentials{Username: "bob", Password: "secret1"}},
		{"wrong password", Credentials{Username: "alice", Password: "wrong-password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasher.verifies = 0
			_, err := svc.Login(ctx, tt.creds)
			assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
			assert.Equal(t, 1, hasher.verifies)
		})
	}
}

func TestAuthService_AuthenticateAndGate(t *testing.T) {
	svc, _, _, clk := newTestAuth()
	ctx := context.Background()

	res, err := svc.Register(ctx, Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	token := res.Session.Token

	sc, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, sc)
	assert.Equal(t, res.User.ID, sc.UserID)
	assert.NoError(t, auth.RequireUser(sc))
	assert.ErrorIs(t, auth.RequireAdmin(sc), utils.ErrForbidden)

	sc, err = svc.Authenticate(ctx, "unknown-token")
	require.NoError(t, err)
	assert.Nil(t, sc)
	assert.ErrorIs(t, auth.RequireUser(sc), utils.ErrUnauthorized)

	// expiry is checked against the service clock, at the exact mark
	clk.Advance(24 * time.Hour)
	sc, err = svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, sc)
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, _, _ := newTestAuth()
	ctx := context.Background()

	res, err := svc.Register(ctx, Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Session.Token))
	require.NoError(t, svc.Logout(ctx, ""))

	sc, err := svc.Authenticate(ctx, res.Session.Token)
	require.NoError(t, err)
	assert.Nil(t, sc)
}

func TestAuthService_Me(t *testing.T) {
	svc, _, _, _ := newTestAuth()
	ctx := context.Background()

	_, err := svc.Me(ctx, nil)
	assert.ErrorIs(t, err, utils.ErrUnauthorized)

	res, err := svc.Register(ctx, Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	sc, err := svc.Authenticate(ctx, res.Session.Token)
	require.NoError(t, err)

	me, err := svc.Me(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	_, err = svc.Me(ctx, &auth.SessionContext{UserID: "ghost"})
	assert.ErrorIs(t, err, utils.ErrUnauthorized)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	svc, users, _, _ := newTestAuth()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "root", "rootpass"))
	root, err := users.GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.True(t, root.IsAdmin)

	// idempotent
	require.NoError(t, svc.EnsureAdmin(ctx, "root", "other"))
	res, err := svc.Login(ctx, Credentials{Username: "root", Password: "rootpass"})
	require.NoError(t, err)
	assert.True(t, res.Session.IsAdmin)

	// existing customers are promoted
	_, err = svc.Register(ctx, Credentials{Username: "carol", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, svc.EnsureAdmin(ctx, "carol", "ignored"))
	carol, err := users.GetByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, carol.IsAdmin)
}
