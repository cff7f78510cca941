package entity

import (
	"time"
)

// User is the aggregate root for the credential store.
// PasswordHash holds a bcrypt hash and must never leave the server; use Public for responses.
// Each token and its expiry are set and cleared together.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsVerified   bool

	VerificationToken          *string
	VerificationTokenExpiresAt *time.Time

	ResetPasswordToken          *string
	ResetPasswordTokenExpiresAt *time.Time

	LastLogin time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser is the sanitized projection returned to clients.
type PublicUser struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	IsVerified bool      `json:"isVerified"`
	LastLogin  time.Time `json:"lastLogin"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// PublicUsers sanitizes a slice of users.
func PublicUsers(users []User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}

func (u *User) SetVerificationToken(token string, expiresAt time.Time) {
	u.VerificationToken = &token
	u.VerificationTokenExpiresAt = &expiresAt
}

func (u *User) ClearVerificationToken() {
	u.VerificationToken = nil
	u.VerificationTokenExpiresAt = nil
}

func (u *User) SetResetToken(token string, expiresAt time.Time) {
	u.ResetPasswordToken = &token
	u.ResetPasswordTokenExpiresAt = &expiresAt
}

func (u *User) ClearResetToken() {
	u.ResetPasswordToken = nil
	u.ResetPasswordTokenExpiresAt = nil
}

// VerificationValid reports whether code matches a pending verification that expires strictly after now.
func (u *User) VerificationValid(code string, now time.Time) bool {
	return u.VerificationToken != nil && u.VerificationTokenExpiresAt != nil &&
		*u.VerificationToken == code && u.VerificationTokenExpiresAt.After(now)
}

// ResetValid reports whether token matches a pending reset that expires strictly after now.
func (u *User) ResetValid(token string, now time.Time) bool {
	return u.ResetPasswordToken != nil && u.ResetPasswordTokenExpiresAt != nil &&
		*u.ResetPasswordToken == token && u.ResetPasswordTokenExpiresAt.After(now)
}
