package api

import (
	"context"
	"errors"
	"net/http"

	"video-membership/internal/auth"
)

type contextKey string

const authContextKey contextKey = "authContext"

// ContextWithAuth stores the resolved auth context on the request context.
func ContextWithAuth(ctx context.Context, ac auth.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// AuthFromContext retrieves the auth context; absence means anonymous.
func AuthFromContext(ctx context.Context) auth.AuthContext {
	if ac, ok := ctx.Value(authContextKey).(auth.AuthContext); ok {
		return ac
	}
	return auth.Anonymous()
}

// ResolveIdentity maps the request's session token to an auth context. It
// never fails the request: a missing, malformed, forged, or expired token,
// a directory miss, a directory fault, and a lookup timeout all resolve to
// anonymous. The directory lookup is bounded so a slow backend cannot stall
// public traffic.
func (h *Handler) ResolveIdentity(r *http.Request) auth.AuthContext {
	if h.Tokens == nil || h.Store == nil {
		return auth.Anonymous()
	}
	token := ExtractToken(r)
	if token == "" {
		return auth.Anonymous()
	}
	claims, ok := h.Tokens.Verify(token)
	if !ok {
		return auth.Anonymous()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.resolveTimeout())
	defer cancel()

	user, exists, err := h.Store.GetUser(ctx, claims.UserID)
	if err != nil {
		h.logger().Warn("identity lookup failed", "error", err)
		return auth.Anonymous()
	}
	if !exists {
		return auth.Anonymous()
	}
	return auth.Authenticated(auth.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
}

// requireAuthenticatedUser enforces the authentication guard, writing 401
// when the caller is anonymous.
func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, err := auth.RequireAuthenticated(AuthFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return auth.Identity{}, false
	}
	return identity, true
}

// requireOwner enforces the ownership guard. Authentication failures map to
// 401 and authorization failures to 403; the two are never merged.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request, ownerID string) (auth.Identity, bool) {
	ac := AuthFromContext(r.Context())
	if err := auth.RequireOwner(ac, ownerID); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, auth.ErrAuthenticationRequired) {
			status = http.StatusUnauthorized
		}
		writeError(w, status, err)
		return auth.Identity{}, false
	}
	identity, _ := ac.Identity()
	return identity, true
}
