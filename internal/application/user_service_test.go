package application

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/pkg/apperror"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
)

type memAvatars struct {
	paths []string
}

func (m *memAvatars) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	_, _ = io.ReadAll(r)
	m.paths = append(m.paths, objectPath)
	return "https://cdn.test/" + objectPath, nil
}

type memIndex struct {
	docs map[string]*entity.User
}

func (m *memIndex) Index(_ context.Context, u *entity.User) error {
	m.docs[u.ID] = u
	return nil
}

func (m *memIndex) Delete(_ context.Context, id string) error {
	delete(m.docs, id)
	return nil
}

func (m *memIndex) Search(_ context.Context, q string, _ int) ([]map[string]any, error) {
	var out []map[string]any
	for _, u := range m.docs {
		if strings.Contains(u.Email, q) {
			out = append(out, map[string]any{"id": u.ID, "email": u.Email})
		}
	}
	return out, nil
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _, err := f.svc.Register(ctx, RegisterInput{Email: "a@x.com", Phone: "111", Password: "p1"})
	require.NoError(t, err)

	_, _, err = f.svc.ChangePassword(ctx, u.ID, "bad", "p2", "p2")
	assert.ErrorIs(t, err, ErrOldPassword)
	_, _, err = f.svc.ChangePassword(ctx, u.ID, "p1", "p2", "p3")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	long := strings.Repeat("€", 40)
	_, _, err = f.svc.ChangePassword(ctx, u.ID, "p1", long, long)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, pair, err := f.svc.ChangePassword(ctx, u.ID, "p1", "p2", "p2")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, _, err = f.svc.Login(ctx, "a@x.com", "p2")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	idx := &memIndex{docs: map[string]*entity.User{}}
	f := newFixture(t, WithUserIndex(idx))
	ctx := context.Background()
	a, _, err := f.svc.Register(ctx, RegisterInput{Email: "a@x.com", Phone: "111", Password: "p1", Name: "Ann"})
	require.NoError(t, err)
	f.register(t, "b@x.com", "222", "p1")

	_, err = f.svc.UpdateProfile(ctx, a.ID, UpdateProfileInput{Phone: "222"})
	assert.ErrorIs(t, err, ErrPhoneTaken)

	u, err := f.svc.UpdateProfile(ctx, a.ID, UpdateProfileInput{Name: "Annie"})
	require.NoError(t, err)
	assert.Equal(t, "Annie", u.Name)
	assert.Equal(t, "111", u.Phone)
	assert.Equal(t, "Annie", f.redis.HGet(helpers.SessionKey(a.ID), "name"))
	assert.Equal(t, "Annie", idx.docs[a.ID].Name)

	_, err = f.svc.UpdateProfile(ctx, "missing", UpdateProfileInput{Name: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUploadAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _, err := f.svc.Register(ctx, RegisterInput{Email: "a@x.com", Phone: "111", Password: "p1"})
	require.NoError(t, err)

	_, err = f.svc.UploadAvatar(ctx, u.ID, strings.NewReader("img"), "me.PNG", "image/png")
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	store := &memAvatars{}
	f.svc.Avatars = store
	out, err := f.svc.UploadAvatar(ctx, u.ID, strings.NewReader("img"), "me.PNG", "image/png")
	require.NoError(t, err)
	require.Len(t, store.paths, 1)
	assert.True(t, strings.HasPrefix(store.paths[0], "avatars/"+u.ID+"/"))
	assert.True(t, strings.HasSuffix(store.paths[0], ".png"))
	assert.Equal(t, "https://cdn.test/"+store.paths[0], out.AvatarURL)
}

func TestAdmin_ListAndDelete(t *testing.T) {
	idx := &memIndex{docs: map[string]*entity.User{}}
	f := newFixture(t, WithUserIndex(idx))
	ctx := context.Background()

	_, err := f.svc.ListUsers(ctx)
	assert.ErrorIs(t, err, ErrNoUsers)

	first, _, err := f.svc.Register(ctx, RegisterInput{Email: "a@x.com", Phone: "111", Password: "p1"})
	require.NoError(t, err)
	second, _, err := f.svc.Register(ctx, RegisterInput{Email: "b@x.com", Phone: "222", Password: "p1"})
	require.NoError(t, err)
	root := &entity.User{Email: "root@x.com", Phone: "0", Role: entity.RoleAdmin}
	require.NoError(t, f.repo.Create(ctx, root))

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, second.ID, users[0].ID)
	assert.Equal(t, first.ID, users[1].ID)

	hits, err := f.svc.SearchUsers(ctx, "b@x", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	deleted, err := f.svc.DeleteUser(ctx, "admin", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, deleted.ID)
	assert.False(t, f.redis.Exists(helpers.SessionKey(first.ID)))
	assert.NotContains(t, idx.docs, first.ID)

	_, err = f.svc.DeleteUser(ctx, "admin", first.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.DeleteUser(ctx, "admin", root.ID)
	assert.ErrorIs(t, err, ErrAdminUndeletable)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}
