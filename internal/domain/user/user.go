package user

import (
	"context"
	"fmt"
	"time"

	"github.com/xenking/kart-store/internal/domain"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 7

var (
	// ErrNotFound is returned when a username or user ID does not resolve.
	ErrNotFound = fmt.Errorf("user %w", domain.ErrNotFound)
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = fmt.Errorf("username already taken: %w", domain.ErrInvalidArgument)
	// ErrEmptyUsername is returned when registering without a username.
	ErrEmptyUsername = fmt.Errorf("username required: %w", domain.ErrInvalidArgument)
)

// InvalidPasswordError describes why a registration password was rejected.
type InvalidPasswordError struct {
	Reason string
}

func (e *InvalidPasswordError) Error() string {
	return "invalid password: " + e.Reason
}

// Is matches domain.ErrInvalidArgument.
func (e *InvalidPasswordError) Is(target error) bool {
	return target == domain.ErrInvalidArgument
}

// User is a registered customer. PasswordHash holds a bcrypt digest and is
// never exposed over the wire.
type User struct {
	ID           int64
	Username     string
	PasswordHash []byte
	CartID       int64
	CreatedAt    time.Time
}

// Repository defines persistence operations for users.
type Repository interface {
	// Create assigns ID and CreatedAt. It returns ErrUsernameTaken when the
	// username is already registered.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	// Usernames lists every registered username.
	Usernames(ctx context.Context) ([]string, error)
}
