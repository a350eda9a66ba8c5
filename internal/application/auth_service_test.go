package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/pkg/apperror"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
)

func TestRegister_IssuesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, pair, err := f.svc.Register(ctx, RegisterInput{Email: " A@X.com ", Phone: "111", Password: "p1", Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, entity.RoleUser, u.Role)
	assert.NotEqual(t, "p1", u.Password)
	assert.NotEmpty(t, pair.AccessToken)

	claims, err := f.svc.JWT.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, f.redis.HGet(helpers.SessionKey(u.ID), "sid"), claims.SessionID)
}

func TestRegister_Conflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "111", "p1")

	_, _, err := f.svc.Register(ctx, RegisterInput{Email: "a@x.com", Phone: "222", Password: "p2"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, _, err = f.svc.Register(ctx, RegisterInput{Email: "b@x.com", Phone: "111", Password: "p2"})
	assert.ErrorIs(t, err, ErrPhoneTaken)

	users, err := f.repo.ListByRole(ctx, entity.RoleUser)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "111", "p1")

	_, _, wrongPassword := f.svc.Login(ctx, "a@x.com", "wrong")
	_, _, unknownEmail := f.svc.Login(ctx, "nobody@x.com", "p1")
	_, _, unknownPhone := f.svc.Login(ctx, "999", "p1")

	for _, err := range []error{wrongPassword, unknownEmail, unknownPhone} {
		require.Error(t, err)
		assert.Equal(t, ErrInvalidCredentials, err)
	}
}

func TestLogin_EmailOrPhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "111", "p1")

	byEmail, _, err := f.svc.Login(ctx, "A@x.com", "p1")
	require.NoError(t, err)
	byPhone, pair, err := f.svc.Login(ctx, "111", "p1")
	require.NoError(t, err)
	assert.Equal(t, byEmail.ID, byPhone.ID)

	// the newest login owns the session
	claims, err := f.svc.JWT.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.redis.HGet(helpers.SessionKey(byPhone.ID), "sid"), claims.SessionID)
}

func TestLogin_PendingRecordCannotLogIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.SendEmailVerification(ctx, "early@x.com")
	require.NoError(t, err)

	_, _, err = f.svc.Login(ctx, "early@x.com", "")
	assert.Equal(t, ErrInvalidCredentials, err)
}

func TestRefresh_RotatesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.register(t, "a@x.com", "111", "p1")

	_, second, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, _, err = f.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, _, err = f.svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestLogout_DropsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, pair, err := f.svc.Register(ctx, RegisterInput{Email: "a@x.com", Phone: "111", Password: "p1"})
	require.NoError(t, err)

	f.svc.Logout(ctx, "not-a-jwt")
	assert.True(t, f.redis.Exists(helpers.SessionKey(u.ID)))

	f.svc.Logout(ctx, pair.AccessToken)
	assert.False(t, f.redis.Exists(helpers.SessionKey(u.ID)))
}
