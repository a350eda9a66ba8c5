package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/pkg/apperror"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
)

func TestEmailVerification_RegisteredUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "111", "p1")

	_, already, err := f.svc.SendEmailVerification(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, already)
	code := f.mail.lastCode(t, "a@x.com")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = f.svc.VerifyEmailOTP(ctx, "a@x.com", wrong)
	assert.ErrorIs(t, err, ErrInvalidOTP)

	_, err = f.svc.VerifyEmailOTP(ctx, "a@x.com", code)
	require.NoError(t, err)

	u, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	assert.Nil(t, u.EmailOTP)

	sent := f.mail.count()
	_, already, err = f.svc.SendEmailVerification(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, sent, f.mail.count())
}

func TestEmailVerification_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "111", "p1")

	_, _, err := f.svc.SendEmailVerification(ctx, "a@x.com")
	require.NoError(t, err)
	code := f.mail.lastCode(t, "a@x.com")

	f.clock.Advance(10 * time.Minute)
	_, err = f.svc.VerifyEmailOTP(ctx, "a@x.com", code)
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestEmailVerification_UnknownEmailOnVerify(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.VerifyEmailOTP(context.Background(), "nobody@x.com", "123456")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestEmailVerification_PreSignup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.SendEmailVerification(ctx, "early@x.com")
	require.NoError(t, err)
	_, err = f.svc.VerifyEmailOTP(ctx, "early@x.com", f.mail.lastCode(t, "early@x.com"))
	require.NoError(t, err)

	// pending records are hidden from admins until they register
	_, err = f.svc.ListUsers(ctx)
	assert.ErrorIs(t, err, ErrNoUsers)

	u, _, err := f.svc.Register(ctx, RegisterInput{Email: "early@x.com", Phone: "555", Password: "p1", Name: "Early"})
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	assert.False(t, u.Pending)

	_, _, err = f.svc.Register(ctx, RegisterInput{Email: "early@x.com", Phone: "556", Password: "p1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestEmailVerification_MailFailureClearsCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "111", "p1")
	f.mail.err = errMailDown

	_, _, err := f.svc.SendEmailVerification(ctx, "a@x.com")
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	u, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, u.EmailOTP)
}

func TestEmailVerification_MailFailureKeepsNewerCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "111", "p1")
	u, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	newer := &entity.EmailOTP{CodeHash: helpers.HashSecret("654321"), ExpiresAt: f.clock.Now().Add(OTPTTL)}
	f.mail.err = errMailDown
	f.mail.onSend = func() {
		require.NoError(t, f.repo.SetEmailOTP(ctx, u.ID, newer))
	}

	_, _, err = f.svc.SendEmailVerification(ctx, "a@x.com")
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	got, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, got.EmailOTP)
	assert.Equal(t, newer.CodeHash, got.EmailOTP.CodeHash)
}

func TestEmailVerification_ReturnsNormalizedAddress(t *testing.T) {
	f := newFixture(t)
	sentTo, already, err := f.svc.SendEmailVerification(context.Background(), "  New@X.com ")
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, "new@x.com", sentTo)
	f.mail.lastCode(t, "new@x.com")
}
