package auth

import (
	"context"
	"errors"

	"video-membership/internal/models"
)

// ErrInvalidCredentials is the single failure reported for any login
// problem attributable to the caller: unknown email, wrong password, or
// an account record that cannot be verified. Collapsing these prevents
// account enumeration through error responses.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserDirectory is the narrow lookup surface the auth subsystem needs
// from the datastore.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (models.User, bool, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, bool, error)
}

// Authenticate verifies an email/password pair against the directory.
// The key derivation cost is paid whether or not the email resolves to an
// account, keeping the two failure paths comparable in latency.
// Infrastructure faults (directory unavailable) are returned as-is so
// login can surface a retryable error instead of "invalid credentials".
func Authenticate(ctx context.Context, directory UserDirectory, email, password string) (models.User, error) {
	if password == "" {
		VerifyDummyPassword(password)
		return models.User{}, ErrInvalidCredentials
	}
	user, ok, err := directory.FindUserByEmail(ctx, email)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		VerifyDummyPassword(password)
		return models.User{}, ErrInvalidCredentials
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}
