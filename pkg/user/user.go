package user

import (
	"context"
	"errors"
	"time"
)

var (
	ErrExists         = errors.New("user already exists")
	ErrNotFound       = errors.New("user not found")
	ErrBadCredentials = errors.New("invalid email or password")
	ErrWrongPassword  = errors.New("current password is incorrect")
)

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	// UpdateProfile fails with ErrExists when email belongs to another user.
	UpdateProfile(ctx context.Context, id, name, email string) error
	UpdatePassword(ctx context.Context, id, hash string) error
}

// Sessions tracks which issued tokens are still live. A token names its
// session in the jti claim.
type Sessions interface {
	Create(ctx context.Context, userID, sessionID string, ttl time.Duration) error
	IsValid(ctx context.Context, sessionID string) (bool, error)
	Invalidate(ctx context.Context, sessionID string) error
}
