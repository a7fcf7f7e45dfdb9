package api

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"video-membership/internal/auth"
	"video-membership/internal/models"
	"video-membership/internal/storage"
)

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type authResponse struct {
	ExpiresAt string       `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339Nano),
	}
}

func newAuthResponse(user models.User, expires time.Time) authResponse {
	return authResponse{
		ExpiresAt: expires.UTC().Format(time.RFC3339Nano),
		User:      newUserResponse(user),
	}
}

func validEmail(address string) bool {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return false
	}
	parsed, err := mail.ParseAddress(trimmed)
	return err == nil && parsed.Address == trimmed
}

// emailLocalPart derives a fallback display name from the address.
func emailLocalPart(address string) string {
	if idx := strings.IndexByte(address, '@'); idx > 0 {
		return address[:idx]
	}
	return address
}

func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, userID string) (time.Time, error) {
	ttl := h.sessionTTL()
	token, err := h.Tokens.Issue(userID, ttl)
	if err != nil {
		return time.Time{}, err
	}
	expiresAt := time.Now().UTC().Add(ttl)
	h.setSessionCookie(w, r, token, expiresAt)
	return expiresAt, nil
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "POST")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.PostFormValue("email")))
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("password_confirm")
	username := strings.TrimSpace(r.PostFormValue("username"))

	var problems []string
	if !validEmail(email) {
		problems = append(problems, "a valid email is required")
	}
	if len(password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	if password != confirm {
		problems = append(problems, "passwords do not match")
	}
	if len(problems) > 0 {
		writeValidationErrors(w, problems...)
		return
	}
	if username == "" {
		username = emailLocalPart(email)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.New("unable to create account"))
		return
	}

	user, err := h.Store.CreateUser(r.Context(), storage.CreateUserParams{
		Email:        email,
		DisplayName:  username,
		PasswordHash: hash,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmailTaken):
			writeValidationErrors(w, "email is not available")
		case isStorageTimeout(err):
			writeError(w, http.StatusServiceUnavailable, errors.New("service unavailable"))
		default:
			h.logger().Error("signup create user failed", "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("unable to create account"))
		}
		return
	}

	expiresAt, err := h.issueSession(w, r, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(user, expiresAt))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "POST")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.PostFormValue("email")))
	password := r.PostFormValue("password")

	user, err := auth.Authenticate(r.Context(), h.Store, email, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, errors.New("incorrect credentials"))
		case isStorageTimeout(err):
			writeError(w, http.StatusServiceUnavailable, errors.New("service unavailable"))
		default:
			h.logger().Error("login lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("unable to sign in"))
		}
		return
	}

	expiresAt, err := h.issueSession(w, r, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(user, expiresAt))
}

// Logout clears the session cookie. It succeeds whether or not the request
// carried a valid session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "POST")
		return
	}
	h.ClearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, "GET")
		return
	}
	identity, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:          identity.UserID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
	})
}
