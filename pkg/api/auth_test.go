package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaekong/memocloud/internal/testutil"
	"github.com/michaekong/memocloud/pkg/memoire"
)

func TestLogin(t *testing.T) {
	svc, mock := newTestService(t, "")
	mock.Token = testToken
	mock.AddAccount("kong@example.org", "s3cret-pass")

	tokens, err := svc.Login(context.Background(), "  kong@example.org ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, testToken, tokens.Access)
	assert.Equal(t, "mock-refresh-token", tokens.Refresh)

	posts := mock.GetPosts()
	require.Len(t, posts, 1)
	assert.Equal(t, "/api/auth/login/", posts[0].Path)
	assert.Equal(t, "kong@example.org", posts[0].Body["email"])
}

func TestLogin_Rejected(t *testing.T) {
	svc, mock := newTestService(t, "")
	mock.AddAccount("kong@example.org", "s3cret-pass")

	_, err := svc.Login(context.Background(), "kong@example.org", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@example.org", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_StaleTokenRejected(t *testing.T) {
	svc, mock := newTestService(t, "expired-token")
	mock.Token = testToken
	mock.AddAccount("kong@example.org", "s3cret-pass")

	_, err := svc.Login(context.Background(), "kong@example.org", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_ValidatedLocally(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"no email", "", "pw", ErrMissingCredentials},
		{"blank email", "   ", "pw", ErrMissingCredentials},
		{"no password", "kong@example.org", "", ErrMissingCredentials},
		{"not an address", "kong", "pw", ErrInvalidEmail},
		{"two at signs", "kong@@example.org", "pw", ErrInvalidEmail},
	}

	svc, mock := newTestService(t, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, mock.GetRequestCount(), "invalid input must not reach the API")
}

func TestLogin_NoAccessToken(t *testing.T) {
	svc, mock := newTestService(t, "")
	mock.SetResponse("/api/auth/login/", testutil.NewHealthyResponse(`{"refresh": "r"}`))

	_, err := svc.Login(context.Background(), "kong@example.org", "pw")
	assert.ErrorIs(t, err, ErrNoAccessToken)
}

func TestRegister(t *testing.T) {
	svc, mock := newTestService(t, "")
	ctx := context.Background()

	err := svc.Register(ctx, memoire.Registration{
		Email:    "new@example.org",
		Password: "long-enough",
		Username: "newbie",
	})
	require.NoError(t, err)
	assert.Equal(t, "long-enough", mock.Accounts["new@example.org"])

	tokens, err := svc.Login(ctx, "new@example.org", "long-enough")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Access)

	err = svc.Register(ctx, memoire.Registration{Email: "new@example.org", Password: "long-enough"})
	assert.Error(t, err, "duplicate email")

	err = svc.Register(ctx, memoire.Registration{Email: "other@example.org", Password: "short"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingCredentials)
}

func TestChangePassword(t *testing.T) {
	svc, mock := newTestService(t, testToken)
	mock.Token = testToken
	mock.Profile = memoire.Profile{ID: 5, Email: "kong@example.org"}
	mock.AddAccount("kong@example.org", "old-pass")
	ctx := context.Background()

	assert.Error(t, svc.ChangePassword(ctx, "not-the-old-one", "new-pass"))
	assert.Error(t, svc.ChangePassword(ctx, "old-pass", "old-pass"), "new password must differ")
	assert.ErrorIs(t, svc.ChangePassword(ctx, "old-pass", ""), ErrMissingCredentials)

	require.NoError(t, svc.ChangePassword(ctx, "old-pass", "new-pass"))
	assert.Equal(t, "new-pass", mock.Accounts["kong@example.org"])
}

func TestChangePassword_RequiresAuth(t *testing.T) {
	svc, mock := newTestService(t, "")

	assert.ErrorIs(t, svc.ChangePassword(context.Background(), "a", "b"), ErrAuthRequired)
	assert.Zero(t, mock.GetRequestCount())
}

func TestResetPassword(t *testing.T) {
	svc, mock := newTestService(t, "")

	require.NoError(t, svc.ResetPassword(context.Background(), "kong@example.org"))
	posts := mock.GetPosts()
	require.Len(t, posts, 1)
	assert.Equal(t, "/api/auth/reset-password/", posts[0].Path)
	assert.Equal(t, "kong@example.org", posts[0].Body["email"])

	assert.ErrorIs(t, svc.ResetPassword(context.Background(), "kong"), ErrInvalidEmail)
}
