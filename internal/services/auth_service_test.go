package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/beacontrace/internal/utils"
)

func newAuthFixture(t *testing.T) (*AuthService, *fakeSessionRepo) {
	t.Helper()
	sessions := newFakeSessionRepo()
	return NewAuthService(newFakeAccountRepo(), sessions, "test-secret", time.Hour), sessions
}

func TestRegisterAndLogin(t *testing.T) {
	service, _ := newAuthFixture(t)
	ctx := context.Background()

	account, err := service.Register(ctx, "alice@example.com", "correct-horse-battery", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", account.Email)
	assert.NotEmpty(t, account.PasswordHash)
	assert.NotEqual(t, "correct-horse-battery", account.PasswordHash)

	resp, err := service.Login(ctx, "alice@example.com", "correct-horse-battery")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, account.ID, resp.AccountID)

	claims, err := service.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	service, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice@example.com", "correct-horse-battery", "Alice")
	require.NoError(t, err)

	_, err = service.Register(ctx, "alice@example.com", "different-password1", "Imposter")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegister_ShortPassword(t *testing.T) {
	service, _ := newAuthFixture(t)

	_, err := service.Register(context.Background(), "alice@example.com", "short", "Alice")
	assert.ErrorIs(t, err, utils.ErrPasswordTooShort)
}

func TestLogin_WrongPassword(t *testing.T) {
	service, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice@example.com", "correct-horse-battery", "Alice")
	require.NoError(t, err)

	_, err = service.Login(ctx, "alice@example.com", "wrong-password-guess")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	service, _ := newAuthFixture(t)

	_, err := service.Login(context.Background(), "nobody@example.com", "whatever-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_AfterLogout(t *testing.T) {
	service, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice@example.com", "correct-horse-battery", "Alice")
	require.NoError(t, err)
	resp, err := service.Login(ctx, "alice@example.com", "correct-horse-battery")
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx, resp.Token))

	// The token is still validly signed but its session is gone.
	_, err = service.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutAll(t *testing.T) {
	service, sessions := newAuthFixture(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice@example.com", "correct-horse-battery", "Alice")
	require.NoError(t, err)

	first, err := service.Login(ctx, "alice@example.com", "correct-horse-battery")
	require.NoError(t, err)
	second, err := service.Login(ctx, "alice@example.com", "correct-horse-battery")
	require.NoError(t, err)

	require.NoError(t, service.LogoutAll(ctx, first.Token))

	_, err = service.Authenticate(ctx, first.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = service.Authenticate(ctx, second.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Empty(t, sessions.sessions)
}

func TestVerifyToken_TamperedSignature(t *testing.T) {
	service, _ := newAuthFixture(t)
	other := NewAuthService(newFakeAccountRepo(), newFakeSessionRepo(), "other-secret", time.Hour)
	ctx := context.Background()

	account, err := service.Register(ctx, "alice@example.com", "correct-horse-battery", "Alice")
	require.NoError(t, err)
	token, err := other.generateToken(account.ID, "session-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = service.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_Garbage(t *testing.T) {
	service, _ := newAuthFixture(t)

	_, err := service.VerifyToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
