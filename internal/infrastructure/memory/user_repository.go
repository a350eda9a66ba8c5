// Package memory is an in-process credential store for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/internal/domain/repository"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*entity.User
	seq   map[string]uint64 // insertion order, breaks CreatedAt ties
	next  uint64
	now   func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]*entity.User),
		seq:   make(map[string]uint64),
		now:   time.Now,
	}
}

// clone returns a copy so callers never alias stored records.
func clone(u *entity.User) *entity.User {
	c := *u
	if u.EmailOTP != nil {
		otp := *u.EmailOTP
		c.EmailOTP = &otp
	}
	return &c
}

func (r *UserRepository) find(match func(*entity.User) bool) *entity.User {
	for _, u := range r.users {
		if match(u) {
			return u
		}
	}
	return nil
}

// conflicts reports whether email or a non-empty phone is taken by a user other than id.
func (r *UserRepository) conflicts(id, email, phone string) bool {
	return r.find(func(u *entity.User) bool {
		if u.ID == id {
			return false
		}
		return (email != "" && u.Email == email) || (phone != "" && u.Phone == phone)
	}) != nil
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, ok := r.users[u.ID]; ok || r.conflicts(u.ID, u.Email, u.Phone) {
		return repository.ErrDuplicate
	}
	now := r.now()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Reset = u.Reset.Normalize()
	r.users[u.ID] = clone(u)
	r.next++
	r.seq[u.ID] = r.next
	return nil
}

func (r *UserRepository) get(match func(*entity.User) bool) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u := r.find(match)
	if u == nil {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	return r.get(func(u *entity.User) bool { return u.ID == id })
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.get(func(u *entity.User) bool { return u.Email == email })
}

func (r *UserRepository) GetByPhone(_ context.Context, phone string) (*entity.User, error) {
	if phone == "" {
		return nil, repository.ErrNotFound
	}
	return r.get(func(u *entity.User) bool { return u.Phone == phone })
}

func (r *UserRepository) GetByResetTokenHash(_ context.Context, tokenHash string) (*entity.User, error) {
	if tokenHash == "" {
		return nil, repository.ErrNotFound
	}
	return r.get(func(u *entity.User) bool {
		return u.Reset.Stage == entity.ResetTokenIssued && u.Reset.SecretHash == tokenHash
	})
}

// mutate applies fn to the stored record under the write lock.
func (r *UserRepository) mutate(id string, fn func(u *entity.User) error) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := clone(u)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.now()
	r.users[id] = next
	return clone(next), nil
}

func (r *UserRepository) CompleteRegistration(_ context.Context, in *entity.User) error {
	out, err := r.mutate(in.ID, func(u *entity.User) error {
		if !u.Pending {
			return repository.ErrDuplicate
		}
		if r.conflicts(u.ID, "", in.Phone) {
			return repository.ErrDuplicate
		}
		u.Phone, u.Name, u.Password, u.Role = in.Phone, in.Name, in.Password, in.Role
		u.Pending = false
		return nil
	})
	if err != nil {
		return err
	}
	*in = *out
	return nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, id string, in repository.ProfileUpdate) (*entity.User, error) {
	return r.mutate(id, func(u *entity.User) error {
		if in.Phone != "" && r.conflicts(id, "", in.Phone) {
			return repository.ErrDuplicate
		}
		if in.Name != "" {
			u.Name = in.Name
		}
		if in.Phone != "" {
			u.Phone = in.Phone
		}
		if in.AvatarURL != "" {
			u.AvatarURL = in.AvatarURL
		}
		return nil
	})
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	_, err := r.mutate(id, func(u *entity.User) error {
		u.Password = passwordHash
		return nil
	})
	return err
}

func (r *UserRepository) SetReset(_ context.Context, id string, next entity.ResetState) error {
	_, err := r.mutate(id, func(u *entity.User) error {
		u.Reset = next.Normalize()
		return nil
	})
	return err
}

func sameReset(a, b entity.ResetState) bool {
	a, b = a.Normalize(), b.Normalize()
	return a.Stage == b.Stage && a.SecretHash == b.SecretHash
}

func (r *UserRepository) SwapReset(_ context.Context, id string, expect, next entity.ResetState) error {
	_, err := r.mutate(id, func(u *entity.User) error {
		if !sameReset(u.Reset, expect) {
			return repository.ErrStateChanged
		}
		u.Reset = next.Normalize()
		return nil
	})
	return err
}

func (r *UserRepository) CompleteReset(_ context.Context, id string, expect entity.ResetState, passwordHash string) error {
	_, err := r.mutate(id, func(u *entity.User) error {
		if !sameReset(u.Reset, expect) {
			return repository.ErrStateChanged
		}
		u.Password = passwordHash
		u.Reset = entity.NoReset()
		return nil
	})
	return err
}

func (r *UserRepository) SetEmailOTP(_ context.Context, id string, otp *entity.EmailOTP) error {
	_, err := r.mutate(id, func(u *entity.User) error {
		u.EmailOTP = otp
		return nil
	})
	return err
}

func (r *UserRepository) ClearEmailOTP(_ context.Context, id, codeHash string) error {
	_, err := r.mutate(id, func(u *entity.User) error {
		if u.EmailOTP == nil || u.EmailOTP.CodeHash != codeHash {
			return repository.ErrStateChanged
		}
		u.EmailOTP = nil
		return nil
	})
	return err
}

func (r *UserRepository) ConfirmEmail(_ context.Context, id, codeHash string) error {
	_, err := r.mutate(id, func(u *entity.User) error {
		if u.EmailOTP == nil || u.EmailOTP.CodeHash != codeHash {
			return repository.ErrStateChanged
		}
		u.EmailVerified = true
		u.EmailOTP = nil
		return nil
	})
	return err
}

func (r *UserRepository) ListByRole(_ context.Context, role entity.Role) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.seq[out[i].ID] > r.seq[out[j].ID]
	})
	return out, nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	delete(r.seq, id)
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
