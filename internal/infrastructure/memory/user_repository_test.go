package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/internal/domain/repository"
)

func TestCreate_UniqueEmailAndPhone(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, &entity.User{Email: "a@x.com", Phone: "111", Role: entity.RoleUser}))

	err := r.Create(ctx, &entity.User{Email: "a@x.com", Phone: "222"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	err = r.Create(ctx, &entity.User{Email: "b@x.com", Phone: "111"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// empty phones never collide
	require.NoError(t, r.Create(ctx, &entity.User{Email: "c@x.com", Pending: true}))
	require.NoError(t, r.Create(ctx, &entity.User{Email: "d@x.com", Pending: true}))
}

func TestGet_ReturnsCopies(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	u := &entity.User{Email: "a@x.com", Name: "A"}
	require.NoError(t, r.Create(ctx, u))

	got, err := r.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
	assert.True(t, again.Reset.IsNone())

	_, err = r.GetByPhone(ctx, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSwapReset_IsConditional(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	u := &entity.User{Email: "a@x.com"}
	require.NoError(t, r.Create(ctx, u))

	exp := time.Now().Add(10 * time.Minute)
	otp := entity.OTPIssued("otp-hash", exp)
	require.NoError(t, r.SetReset(ctx, u.ID, otp))

	tok := entity.TokenIssued("token-hash", exp)
	require.NoError(t, r.SwapReset(ctx, u.ID, otp, tok))
	// the OTP state is gone, a second swap loses
	assert.ErrorIs(t, r.SwapReset(ctx, u.ID, otp, tok), repository.ErrStateChanged)

	found, err := r.GetByResetTokenHash(ctx, "token-hash")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	require.NoError(t, r.CompleteReset(ctx, u.ID, tok, "new-hash"))
	assert.ErrorIs(t, r.CompleteReset(ctx, u.ID, tok, "other"), repository.ErrStateChanged)

	after, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", after.Password)
	assert.True(t, after.Reset.IsNone())
	_, err = r.GetByResetTokenHash(ctx, "token-hash")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConfirmEmail(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	u := &entity.User{Email: "a@x.com"}
	require.NoError(t, r.Create(ctx, u))

	assert.ErrorIs(t, r.ConfirmEmail(ctx, u.ID, "h"), repository.ErrStateChanged)
	require.NoError(t, r.SetEmailOTP(ctx, u.ID, &entity.EmailOTP{CodeHash: "h", ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, r.ConfirmEmail(ctx, u.ID, "h"))

	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	assert.Nil(t, got.EmailOTP)
}

func TestClearEmailOTP_OnlyMatchingCode(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	u := &entity.User{Email: "a@x.com"}
	require.NoError(t, r.Create(ctx, u))
	require.NoError(t, r.SetEmailOTP(ctx, u.ID, &entity.EmailOTP{CodeHash: "newer", ExpiresAt: time.Now().Add(time.Minute)}))

	assert.ErrorIs(t, r.ClearEmailOTP(ctx, u.ID, "older"), repository.ErrStateChanged)
	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EmailOTP)

	require.NoError(t, r.ClearEmailOTP(ctx, u.ID, "newer"))
	got, err = r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EmailOTP)
	assert.ErrorIs(t, r.ClearEmailOTP(ctx, "missing", "newer"), repository.ErrNotFound)
}

func TestCompleteRegistration(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, &entity.User{Email: "taken@x.com", Phone: "111"}))
	pending := &entity.User{Email: "p@x.com", Pending: true, EmailVerified: true}
	require.NoError(t, r.Create(ctx, pending))

	claim := &entity.User{ID: pending.ID, Phone: "111", Name: "P", Password: "hash", Role: entity.RoleUser}
	assert.ErrorIs(t, r.CompleteRegistration(ctx, claim), repository.ErrDuplicate)

	claim.Phone = "222"
	require.NoError(t, r.CompleteRegistration(ctx, claim))
	assert.False(t, claim.Pending)
	assert.True(t, claim.EmailVerified)
	assert.Equal(t, "p@x.com", claim.Email)

	// a registered account cannot be claimed twice
	assert.ErrorIs(t, r.CompleteRegistration(ctx, claim), repository.ErrDuplicate)
}

func TestListByRole_NewestFirst(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	for _, email := range []string{"1@x.com", "2@x.com", "3@x.com"} {
		require.NoError(t, r.Create(ctx, &entity.User{Email: email, Role: entity.RoleUser}))
	}
	require.NoError(t, r.Create(ctx, &entity.User{Email: "admin@x.com", Role: entity.RoleAdmin}))

	users, err := r.ListByRole(ctx, entity.RoleUser)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "3@x.com", users[0].Email)
	assert.Equal(t, "1@x.com", users[2].Email)

	require.NoError(t, r.Delete(ctx, users[0].ID))
	assert.ErrorIs(t, r.Delete(ctx, users[0].ID), repository.ErrNotFound)
}
