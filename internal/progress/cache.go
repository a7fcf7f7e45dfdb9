// Package progress caches per-viewer playback positions so players can
// offer resume without a database round trip on every page view.
package progress

import "context"

// Cache stores the most recent playback position for a viewer and video.
// Implementations are advisory: watch events in the repository remain the
// source of truth and callers fall back to them on a miss.
type Cache interface {
	ResumeTime(ctx context.Context, userID, hostID string) (float64, bool, error)
	SetResumeTime(ctx context.Context, userID, hostID string, seconds float64) error
	ClearResumeTime(ctx context.Context, userID, hostID string) error
	Ping(ctx context.Context) error
	Close() error
}

// NoopCache satisfies Cache without storing anything. It is used when no
// Redis endpoint is configured.
type NoopCache struct{}

func (NoopCache) ResumeTime(context.Context, string, string) (float64, bool, error) {
	return 0, false, nil
}

func (NoopCache) SetResumeTime(context.Context, string, string, float64) error { return nil }

func (NoopCache) ClearResumeTime(context.Context, string, string) error { return nil }

func (NoopCache) Ping(context.Context) error { return nil }

func (NoopCache) Close() error { return nil }
