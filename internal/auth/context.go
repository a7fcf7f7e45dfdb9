package auth

import "errors"

var (
	// ErrAuthenticationRequired signals that a privileged action was
	// attempted without a resolved identity (HTTP 401).
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrForbidden signals that the resolved identity does not own the
	// targeted resource (HTTP 403). Callers must keep the two denial
	// kinds distinguishable.
	ErrForbidden = errors.New("forbidden")
)

// Identity carries the fields of a resolved, authenticated caller.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

// AuthContext is the per-request resolved identity: either authenticated
// with an Identity or anonymous. The zero value is anonymous, so a
// missing context never grants access. It is constructed fresh for each
// request and never shared or cached across requests.
type AuthContext struct {
	identity      Identity
	authenticated bool
}

// Authenticated builds an AuthContext for a resolved identity.
func Authenticated(identity Identity) AuthContext {
	return AuthContext{identity: identity, authenticated: true}
}

// Anonymous builds the anonymous AuthContext.
func Anonymous() AuthContext {
	return AuthContext{}
}

// IsAuthenticated reports whether the request carries a resolved identity.
func (c AuthContext) IsAuthenticated() bool {
	return c.authenticated
}

// Identity returns the resolved identity when authenticated.
func (c AuthContext) Identity() (Identity, bool) {
	if !c.authenticated {
		return Identity{}, false
	}
	return c.identity, true
}

// RequireAuthenticated rejects anonymous contexts with
// ErrAuthenticationRequired and otherwise yields the identity.
func RequireAuthenticated(ctx AuthContext) (Identity, error) {
	identity, ok := ctx.Identity()
	if !ok {
		return Identity{}, ErrAuthenticationRequired
	}
	return identity, nil
}

// RequireOwner allows the operation only when the context is
// authenticated as the resource owner. It is resource-agnostic: every
// owned type passes its owner identifier through the same check.
func RequireOwner(ctx AuthContext, ownerID string) error {
	identity, err := RequireAuthenticated(ctx)
	if err != nil {
		return err
	}
	if ownerID == "" || identity.UserID != ownerID {
		return ErrForbidden
	}
	return nil
}
