package user

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// User is created on first successful login. OAuth logins are only allowed
// for emails already present in the table (pre-approved allowlist).
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AvatarURL    *string   `json:"avatarUrl,omitempty"`
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CreateUserParams struct {
	Email        string
	Name         string
	AvatarURL    *string
	PasswordHash *string
}

func (p *CreateUserParams) Validate() error {
	if p.Email == "" {
		return errors.New("email is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// UpdateProfileParams refreshes name/avatar from the identity provider.
// Email is immutable after creation.
type UpdateProfileParams struct {
	Name      *string
	AvatarURL *string
}
