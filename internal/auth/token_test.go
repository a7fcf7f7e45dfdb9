package auth

import (
	"strings"
	"testing"
	"time"
)

func testTokenService(t *testing.T, secret string) *TokenService {
	t.Helper()
	service, err := NewTokenService([]byte(secret))
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	return service
}

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	service := testTokenService(t, testSecret)
	token, err := service.Issue("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	claims, ok := service.Verify(token)
	if !ok {
		t.Fatal("expected freshly issued token to verify")
	}
	if claims.UserID != "user-123" {
		t.Fatalf("expected user-123, got %s", claims.UserID)
	}
	if claims.Role != RoleMember {
		t.Fatalf("expected role %s, got %s", RoleMember, claims.Role)
	}
}

func TestTokenExpiry(t *testing.T) {
	service := testTokenService(t, testSecret)
	issuedAt := time.Now()
	service.now = func() time.Time { return issuedAt }
	token, err := service.Issue("user-123", time.Minute)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// One second past expiry behaves like a missing token.
	service.now = func() time.Time { return issuedAt.Add(time.Minute + time.Second) }
	if _, ok := service.Verify(token); ok {
		t.Fatal("expected expired token to be invalid")
	}

	service.now = func() time.Time { return issuedAt.Add(30 * time.Second) }
	if _, ok := service.Verify(token); !ok {
		t.Fatal("expected unexpired token to verify")
	}
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	issuer := testTokenService(t, testSecret)
	verifier := testTokenService(t, "fedcba9876543210fedcba9876543210")
	token, err := issuer.Issue("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, ok := verifier.Verify(token); ok {
		t.Fatal("expected token signed with a different secret to be invalid")
	}
}

func TestTokenRejectsTamperedPayload(t *testing.T) {
	service := testTokenService(t, testSecret)
	token, err := service.Issue("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	payload, signature, _ := strings.Cut(token, ".")
	forged := payload + "x." + signature
	if _, ok := service.Verify(forged); ok {
		t.Fatal("expected tampered payload to be invalid")
	}
}

func TestTokenRejectsMalformedInput(t *testing.T) {
	service := testTokenService(t, testSecret)
	for _, token := range []string{"", "garbage", "a.b.c", ":::.###", "only-one-segment"} {
		if _, ok := service.Verify(token); ok {
			t.Fatalf("expected %q to be invalid", token)
		}
	}
}

func TestIssueValidation(t *testing.T) {
	service := testTokenService(t, testSecret)
	if _, err := service.Issue("", time.Hour); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if _, err := service.Issue("user-123", 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenService([]byte("short")); err == nil {
		t.Fatal("expected error for short secret")
	}
}
