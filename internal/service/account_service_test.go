package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm-store/internal/models"
	"farm-store/internal/token"
)

type accountFixture struct {
	repo     *memRepo
	mailer   *fakeResetMailer
	issuer   *token.Issuer
	accounts *AccountService
	now      time.Time
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	f := &accountFixture{
		repo:   newMemRepo(),
		mailer: &fakeResetMailer{},
		now:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	issuer, err := token.NewIssuer([]byte("reset-secret-0123456789"), "password-reset",
		token.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.issuer = issuer
	f.accounts = NewAccountService(f.repo, f.repo, issuer, f.mailer, "https://shop.example/", time.Hour)
	return f
}

func (f *accountFixture) resetToken(t *testing.T) string {
	t.Helper()
	require.Len(t, f.mailer.sent, 1)
	link := f.mailer.sent[0].link
	require.True(t, strings.HasPrefix(link, "https://shop.example/reset/"))
	return strings.TrimPrefix(link, "https://shop.example/reset/")
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	user, err := f.accounts.Register(ctx, "Asha", "  Asha@Example.COM", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	got, err := f.accounts.Authenticate(ctx, "ASHA@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.accounts.Authenticate(ctx, "asha@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = f.accounts.Authenticate(ctx, "nobody@example.com", "s3cret")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestRegisterRejectsDuplicateAndMissing(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, "", "a@example.com", "pw")
	require.NoError(t, err)

	_, err = f.accounts.Register(ctx, "", "A@example.com", "pw2")
	assert.True(t, errors.Is(err, ErrEmailTaken))

	_, err = f.accounts.Register(ctx, "x", "", "")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"email", "password"}, verr.Fields)
}

func TestRegisterRejectsMalformedEmail(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	for _, bad := range []string{"asha", "asha@", "@example.com", "asha example.com"} {
		_, err := f.accounts.Register(ctx, "Asha", bad, "pw")
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), bad)
		assert.Equal(t, []string{"email"}, verr.Fields, bad)
	}
	assert.Empty(t, f.repo.users)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, "Asha", "asha@example.com", "old")
	require.NoError(t, err)

	require.NoError(t, f.accounts.RequestPasswordReset(ctx, "Asha@example.com"))
	tok := f.resetToken(t)
	assert.Equal(t, "asha@example.com", f.mailer.sent[0].to)

	require.NoError(t, f.accounts.CheckResetToken(ctx, tok))

	err = f.accounts.ResetPassword(ctx, tok, "")
	assert.True(t, errors.Is(err, ErrValidation))

	require.NoError(t, f.accounts.ResetPassword(ctx, tok, "new"))

	_, err = f.accounts.Authenticate(ctx, "asha@example.com", "new")
	assert.NoError(t, err)
	_, err = f.accounts.Authenticate(ctx, "asha@example.com", "old")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestPasswordResetTokenExpires(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, "", "asha@example.com", "old")
	require.NoError(t, err)
	require.NoError(t, f.accounts.RequestPasswordReset(ctx, "asha@example.com"))
	tok := f.resetToken(t)

	f.now = f.now.Add(time.Hour + time.Second)
	assert.True(t, errors.Is(f.accounts.ResetPassword(ctx, tok, "new"), ErrInvalidToken))
}

func TestPasswordResetRejectsForeignTokens(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	user, err := f.accounts.Register(ctx, "", "asha@example.com", "old")
	require.NoError(t, err)

	tracking, err := token.NewIssuer([]byte("reset-secret-0123456789"), "tracking")
	require.NoError(t, err)
	foreign, err := tracking.Issue(user.ID, user.Email)
	require.NoError(t, err)

	assert.True(t, errors.Is(f.accounts.ResetPassword(ctx, foreign, "new"), ErrInvalidToken))
	assert.True(t, errors.Is(f.accounts.ResetPassword(ctx, "garbage", "new"), ErrInvalidToken))
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newAccountFixture(t)

	require.NoError(t, f.accounts.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.mailer.sent)
}

func TestProfileListsOwnOrders(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	user, err := f.accounts.Register(ctx, "Asha", "asha@example.com", "pw")
	require.NoError(t, err)

	uid := user.ID
	require.NoError(t, f.repo.CreateOrder(ctx, &models.Order{UserID: &uid, Product: "Curd (200g)"}))
	require.NoError(t, f.repo.CreateOrder(ctx, &models.Order{Product: "Ghee (200g)"}))

	profile, err := f.accounts.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.User.ID)
	require.Len(t, profile.Orders, 1)
	assert.Equal(t, "Curd (200g)", profile.Orders[0].Product)

	_, err = f.accounts.Profile(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}
