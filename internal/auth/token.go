package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RoleMember is the single role claim carried by issued tokens. The
// platform distinguishes only authenticated versus anonymous callers.
const RoleMember = "member"

// MinTokenSecretLength guards against trivially brute-forceable signing
// secrets making it into a running process.
const MinTokenSecretLength = 32

// TokenClaims is the payload asserted by a session token.
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"exp"`
}

// TokenService issues and verifies stateless session tokens. Tokens are a
// base64url JSON claims segment joined to an HMAC-SHA256 signature; the
// signing secret and algorithm are the entire trust root, so rotating the
// secret invalidates every outstanding session. There is deliberately no
// server-side revocation store.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService constructs a token service around the process-wide
// signing secret. The secret is treated as immutable after startup and is
// safe for concurrent use.
func NewTokenService(secret []byte) (*TokenService, error) {
	if len(secret) < MinTokenSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinTokenSecretLength)
	}
	return &TokenService{secret: append([]byte(nil), secret...), now: time.Now}, nil
}

// Issue signs a token asserting the user identity until now+ttl.
func (s *TokenService) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("userID is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}
	claims := TokenClaims{
		UserID:    userID,
		Role:      RoleMember,
		ExpiresAt: s.now().Add(ttl).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + s.sign(encoded), nil
}

// Verify checks the signature first, then the expiry. Malformed, forged,
// and expired tokens are indistinguishable to the caller: all report
// ok=false, and the resolver treats every failure as an anonymous caller.
func (s *TokenService) Verify(token string) (TokenClaims, bool) {
	encoded, signature, found := strings.Cut(token, ".")
	if !found || encoded == "" {
		return TokenClaims{}, false
	}
	expected := s.sign(encoded)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return TokenClaims{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return TokenClaims{}, false
	}
	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return TokenClaims{}, false
	}
	if claims.UserID == "" {
		return TokenClaims{}, false
	}
	if !s.now().Before(time.Unix(claims.ExpiresAt, 0)) {
		return TokenClaims{}, false
	}
	return claims, true
}

func (s *TokenService) sign(encodedPayload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
