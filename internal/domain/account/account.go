// Package account implements registration, email verification and login.
package account

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidToken is returned when an activation token matches no profile.
	ErrInvalidToken = errors.New("invalid email token")
	// ErrAccountNotFound is returned when no account exists for an email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNotVerified is returned on login before the email is verified.
	ErrNotVerified = errors.New("email not verified")
	// ErrInvalidCredentials is returned on a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput wraps registration field validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError lists the registration fields that failed validation.
// It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// User is a registered account together with its profile. Email doubles as
// the username.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte

	// Profile.
	Verified   bool
	EmailToken string
}

// Repository defines persistence operations for accounts.
type Repository interface {
	// Create inserts the user and its profile in one transaction and sets
	// user.ID. It returns ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, user *User) error
	// FindByEmail returns ErrAccountNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Activate marks the profile holding token verified. It returns
	// ErrInvalidToken when no profile matches.
	Activate(ctx context.Context, token string) error
}

// Activation is the payload of an activation email.
type Activation struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Token     string `json:"token"`
	Link      string `json:"link,omitempty"`
}

// Notifier delivers activation emails.
type Notifier interface {
	SendActivation(ctx context.Context, a Activation) error
}

// Tokens issues session tokens for authenticated users.
type Tokens interface {
	Issue(userID int64) (string, error)
}
