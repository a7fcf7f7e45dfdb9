package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"video-membership/internal/api"
	"video-membership/internal/auth"
	"video-membership/internal/storage"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	tokens, err := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	srv, err := New(api.NewHandler(store, tokens), cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return srv
}

func postForm(handler http.Handler, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		r.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec
}

func TestSignupLoginFlowThroughChain(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.Handler()

	signup := postForm(handler, "/auth/signup", url.Values{
		"email":            {"viewer@example.com"},
		"password":         {"correct horse"},
		"password_confirm": {"correct horse"},
	})
	if signup.Code != http.StatusOK {
		t.Fatalf("expected 200 signup, got %d (%s)", signup.Code, signup.Body.String())
	}

	var session *http.Cookie
	for _, cookie := range signup.Result().Cookies() {
		if cookie.Name == api.SessionCookieName {
			session = cookie
		}
	}
	if session == nil {
		t.Fatal("expected session cookie from signup")
	}

	// The cookie authenticates subsequent requests through the middleware.
	me := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	me.AddCookie(session)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, me)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /auth/user, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "viewer@example.com") {
		t.Fatalf("expected identity, got %s", rec.Body.String())
	}
}

func TestAnonymousAccessThroughChain(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.Handler()

	listing := httptest.NewRecorder()
	handler.ServeHTTP(listing, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	if listing.Code != http.StatusOK {
		t.Fatalf("expected public listing to succeed, got %d", listing.Code)
	}

	mutation := postForm(handler, "/api/videos", url.Values{
		"title": {"First"},
		"url":   {"https://youtu.be/dQw4w9WgXcQ"},
	})
	if mutation.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous mutation, got %d", mutation.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.Handler()

	generated := httptest.NewRecorder()
	handler.ServeHTTP(generated, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if generated.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected generated request id header")
	}

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set("X-Request-Id", "req-preserved")
	echoed := httptest.NewRecorder()
	handler.ServeHTTP(echoed, r)
	if echoed.Header().Get("X-Request-Id") != "req-preserved" {
		t.Fatalf("expected preserved request id, got %q", echoed.Header().Get("X-Request-Id"))
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected nosniff, got %q", rec.Header().Get("X-Content-Type-Options"))
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("expected DENY, got %q", rec.Header().Get("X-Frame-Options"))
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("expected content security policy header")
	}
}

func TestCORSPolicyEnforcement(t *testing.T) {
	srv := newTestServer(t, Config{CORS: CORSConfig{AllowedOrigins: []string{"https://app.example.com"}}})
	handler := srv.Handler()

	allowed := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	allowed.Header.Set("Origin", "https://app.example.com")
	okRec := httptest.NewRecorder()
	handler.ServeHTTP(okRec, allowed)
	if okRec.Code != http.StatusOK {
		t.Fatalf("expected allowed origin to pass, got %d", okRec.Code)
	}
	if okRec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("expected allow-origin header, got %q", okRec.Header().Get("Access-Control-Allow-Origin"))
	}

	blocked := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	blocked.Header.Set("Origin", "https://evil.example.com")
	blockedRec := httptest.NewRecorder()
	handler.ServeHTTP(blockedRec, blocked)
	if blockedRec.Code != http.StatusForbidden {
		t.Fatalf("expected blocked origin to be rejected, got %d", blockedRec.Code)
	}
}

func TestInvalidCORSOriginRejectedAtStartup(t *testing.T) {
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	tokens, err := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	if _, err := New(api.NewHandler(store, tokens), Config{
		CORS: CORSConfig{AllowedOrigins: []string{"not a url"}},
	}); err == nil {
		t.Fatal("expected error for malformed origin")
	}
}
