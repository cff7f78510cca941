package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/readly/internal/domain/entity"
)

var (
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Create when the email already belongs to a user.
	ErrEmailTaken = errors.New("email already registered")
	// ErrTokenCollision is returned by Create and SetVerificationToken when another
	// pending user holds the same verification code.
	ErrTokenCollision = errors.New("verification token already in use")
)

// UserRepository is the credential store.
// Token consumption is a single conditional write: of two concurrent callers presenting
// the same token, at most one gets the user back, the other gets ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// ListByRole returns all users when role is empty.
	ListByRole(ctx context.Context, role entity.Role) ([]entity.User, error)

	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// ConsumeVerificationToken marks the matching user verified and clears the token pair,
	// provided the token expires strictly after now.
	ConsumeVerificationToken(ctx context.Context, code string, now time.Time) (*entity.User, error)
	// SetVerificationToken replaces the pending code of an unverified user.
	// It returns ErrNotFound when the user does not exist or is already verified.
	SetVerificationToken(ctx context.Context, id, code string, expiresAt time.Time) error

	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	// ConsumeResetToken replaces the password hash and clears the reset pair,
	// provided the token expires strictly after now.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*entity.User, error)
}
