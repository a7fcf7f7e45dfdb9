package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"video-membership/internal/auth"
	"video-membership/internal/progress"
	"video-membership/internal/storage"
)

const (
	defaultSessionTTL     = 24 * time.Hour
	defaultResolveTimeout = 2 * time.Second
	defaultVideoListLimit = 100
)

type Handler struct {
	Store               storage.Repository
	Tokens              *auth.TokenService
	Resume              progress.Cache
	SessionTTL          time.Duration
	ResolveTimeout      time.Duration
	SessionCookiePolicy SessionCookiePolicy
	Logger              *slog.Logger
}

func NewHandler(store storage.Repository, tokens *auth.TokenService) *Handler {
	return &Handler{
		Store:      store,
		Tokens:     tokens,
		Resume:     progress.NoopCache{},
		SessionTTL: defaultSessionTTL,
	}
}

func (h *Handler) sessionTTL() time.Duration {
	if h.SessionTTL > 0 {
		return h.SessionTTL
	}
	return defaultSessionTTL
}

func (h *Handler) resolveTimeout() time.Duration {
	if h.ResolveTimeout > 0 {
		return h.ResolveTimeout
	}
	return defaultResolveTimeout
}

func (h *Handler) resumeCache() progress.Cache {
	if h.Resume != nil {
		return h.Resume
	}
	return progress.NoopCache{}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// ExtractToken pulls the session token from the request, preferring the
// Authorization header over the session cookie.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func isStorageTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

type componentStatus struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) componentHealth(ctx context.Context) ([]componentStatus, string, int) {
	overallStatus := "ok"
	statusCode := http.StatusOK
	recordComponent := func(component string, err error) componentStatus {
		status := "ok"
		message := ""
		if err != nil {
			status = "degraded"
			message = err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
		return componentStatus{Component: component, Status: status, Error: message}
	}

	components := make([]componentStatus, 0, 2)
	if h.Store != nil {
		components = append(components, recordComponent("datastore", h.Store.Ping(ctx)))
	}
	components = append(components, recordComponent("resume_cache", h.resumeCache().Ping(ctx)))

	return components, overallStatus, statusCode
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, "GET")
		return
	}
	components, status, code := h.componentHealth(r.Context())
	writeJSON(w, code, map[string]interface{}{
		"status":     status,
		"components": components,
	})
}
