package postgres

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/internal/domain/repository"
)

// testRepo migrates POSTGRES_TEST_DSN and truncates users around each test.
func testRepo(t *testing.T) *UserRepository {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, dsn, PoolOptions{MaxConns: 4, MinConns: 1, MaxConnLifetime: time.Minute})
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	require.NoError(t, RunMigrations(dsn, "../../../db/migrations", logger))
	_, err = pool.Exec(ctx, `TRUNCATE users`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `TRUNCATE users`)
		pool.Close()
	})
	return NewUserRepository(pool)
}

func TestPostgres_CreateAndLookup(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	u := &entity.User{Email: "a@x.com", Phone: "111", Password: "hash", Name: "A", Role: entity.RoleUser}
	require.NoError(t, r.Create(ctx, u))
	assert.NotEmpty(t, u.ID)

	assert.ErrorIs(t, r.Create(ctx, &entity.User{Email: "a@x.com", Role: entity.RoleUser}), repository.ErrDuplicate)
	assert.ErrorIs(t, r.Create(ctx, &entity.User{Email: "b@x.com", Phone: "111", Role: entity.RoleUser}), repository.ErrDuplicate)

	byPhone, err := r.GetByPhone(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byPhone.ID)
	assert.True(t, byPhone.Reset.IsNone())

	_, err = r.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostgres_ResetLifecycle(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	u := &entity.User{Email: "a@x.com", Phone: "111", Password: "old", Role: entity.RoleUser}
	require.NoError(t, r.Create(ctx, u))

	exp := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Microsecond)
	otp := entity.OTPIssued("otp-hash", exp)
	require.NoError(t, r.SetReset(ctx, u.ID, otp))

	tok := entity.TokenIssued("token-hash", exp)
	require.NoError(t, r.SwapReset(ctx, u.ID, otp, tok))
	assert.ErrorIs(t, r.SwapReset(ctx, u.ID, otp, tok), repository.ErrStateChanged)

	found, err := r.GetByResetTokenHash(ctx, "token-hash")
	require.NoError(t, err)
	assert.Equal(t, entity.ResetTokenIssued, found.Reset.Stage)
	assert.True(t, exp.Equal(found.Reset.ExpiresAt))

	require.NoError(t, r.CompleteReset(ctx, u.ID, tok, "new"))
	assert.ErrorIs(t, r.CompleteReset(ctx, u.ID, tok, "again"), repository.ErrStateChanged)

	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Password)
	assert.True(t, got.Reset.IsNone())
}

func TestPostgres_PendingRegistrationAndEmail(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	p := &entity.User{Email: "p@x.com", Pending: true, Role: entity.RoleUser}
	require.NoError(t, r.Create(ctx, p))
	require.NoError(t, r.Create(ctx, &entity.User{Email: "q@x.com", Pending: true, Role: entity.RoleUser}))

	require.NoError(t, r.SetEmailOTP(ctx, p.ID, &entity.EmailOTP{CodeHash: "h", ExpiresAt: time.Now().Add(time.Minute)}))
	assert.ErrorIs(t, r.ClearEmailOTP(ctx, p.ID, "other"), repository.ErrStateChanged)
	require.NoError(t, r.ConfirmEmail(ctx, p.ID, "h"))

	claim := &entity.User{ID: p.ID, Phone: "222", Name: "P", Password: "hash", Role: entity.RoleUser}
	require.NoError(t, r.CompleteRegistration(ctx, claim))
	assert.True(t, claim.EmailVerified)
	assert.False(t, claim.Pending)
	assert.ErrorIs(t, r.CompleteRegistration(ctx, claim), repository.ErrDuplicate)

	users, err := r.ListByRole(ctx, entity.RoleUser)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, r.Delete(ctx, p.ID))
	assert.ErrorIs(t, r.Delete(ctx, p.ID), repository.ErrNotFound)
}
