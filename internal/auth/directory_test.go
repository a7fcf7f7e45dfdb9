package auth

import (
	"context"
	"errors"
	"testing"

	"video-membership/internal/models"
)

type stubDirectory struct {
	users map[string]models.User
	err   error
}

func (d *stubDirectory) GetUser(_ context.Context, userID string) (models.User, bool, error) {
	if d.err != nil {
		return models.User{}, false, d.err
	}
	for _, user := range d.users {
		if user.ID == userID {
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

func (d *stubDirectory) FindUserByEmail(_ context.Context, email string) (models.User, bool, error) {
	if d.err != nil {
		return models.User{}, false, d.err
	}
	user, ok := d.users[email]
	return user, ok, nil
}

func TestAuthenticate(t *testing.T) {
	digest, err := HashPassword("supersecret")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	directory := &stubDirectory{users: map[string]models.User{
		"viewer@example.com": {ID: "user-a", Email: "viewer@example.com", PasswordHash: digest},
	}}

	user, err := Authenticate(context.Background(), directory, "viewer@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if user.ID != "user-a" {
		t.Fatalf("expected user-a, got %s", user.ID)
	}
}

func TestAuthenticateFailuresCollapse(t *testing.T) {
	digest, err := HashPassword("supersecret")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	directory := &stubDirectory{users: map[string]models.User{
		"viewer@example.com": {ID: "user-a", Email: "viewer@example.com", PasswordHash: digest},
	}}

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{name: "unknown email", email: "nobody@example.com", password: "supersecret"},
		{name: "wrong password", email: "viewer@example.com", password: "not-it"},
		{name: "empty password", email: "viewer@example.com", password: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Authenticate(context.Background(), directory, tc.email, tc.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthenticateSurfacesDirectoryFaults(t *testing.T) {
	boom := errors.New("directory down")
	directory := &stubDirectory{err: boom}
	_, err := Authenticate(context.Background(), directory, "viewer@example.com", "supersecret")
	if !errors.Is(err, boom) {
		t.Fatalf("expected directory fault to propagate, got %v", err)
	}
}
