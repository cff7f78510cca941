// Package memory is a process-local credential store for local development
// (STORE_DRIVER=memory) and tests. Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/readly/internal/domain/entity"
	"github.com/oksasatya/readly/internal/domain/repository"
)

type UserRepository struct {
	mu    sync.Mutex
	users map[string]*entity.User
	now   func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: map[string]*entity.User{}, now: time.Now}
}

// WithClock sets the clock used for created_at/updated_at stamps.
func (r *UserRepository) WithClock(now func() time.Time) *UserRepository {
	r.now = now
	return r
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
		if u.VerificationToken != nil && existing.VerificationToken != nil &&
			*existing.VerificationToken == *u.VerificationToken {
			return repository.ErrTokenCollision
		}
	}

	now := r.now()
	u.ID = uuid.NewString()
	if u.Role == "" {
		u.Role = entity.RoleUser
	}
	if u.LastLogin.IsZero() {
		u.LastLogin = now
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.ID] = clone(u)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) ListByRole(_ context.Context, role entity.Role) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entity.User, 0, len(r.users))
	for _, u := range r.users {
		if role == "" || u.Role == role {
			out = append(out, *clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepository) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLogin = at
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) ConsumeVerificationToken(_ context.Context, code string, now time.Time) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.VerificationValid(code, now) {
			u.IsVerified = true
			u.ClearVerificationToken()
			u.UpdatedAt = r.now()
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) SetVerificationToken(_ context.Context, id, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.IsVerified {
		return repository.ErrNotFound
	}
	for otherID, other := range r.users {
		if otherID != id && other.VerificationToken != nil && *other.VerificationToken == code {
			return repository.ErrTokenCollision
		}
	}
	u.SetVerificationToken(code, expiresAt)
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) SetResetToken(_ context.Context, id, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.SetResetToken(token, expiresAt)
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) ConsumeResetToken(_ context.Context, token, passwordHash string, now time.Time) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ResetValid(token, now) {
			u.PasswordHash = passwordHash
			u.ClearResetToken()
			u.UpdatedAt = r.now()
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

// SetRole changes a user's role. Only administrative tooling calls this.
func (r *UserRepository) SetRole(_ context.Context, id string, role entity.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = r.now()
	return nil
}

func clone(u *entity.User) *entity.User {
	c := *u
	if u.VerificationToken != nil {
		v, exp := *u.VerificationToken, *u.VerificationTokenExpiresAt
		c.VerificationToken, c.VerificationTokenExpiresAt = &v, &exp
	}
	if u.ResetPasswordToken != nil {
		v, exp := *u.ResetPasswordToken, *u.ResetPasswordTokenExpiresAt
		c.ResetPasswordToken, c.ResetPasswordTokenExpiresAt = &v, &exp
	}
	return &c
}

var _ repository.UserRepository = (*UserRepository)(nil)
