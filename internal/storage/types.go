package storage

import "errors"

var (
	// ErrEmailTaken is returned when signup targets an email that is
	// already registered. Postgres enforces this with a unique index;
	// the JSON store checks under its write lock.
	ErrEmailTaken = errors.New("email already registered")
	// ErrVideoExists is returned when a video with the same host ID is
	// already in the catalog.
	ErrVideoExists = errors.New("video already added")
	// ErrNotFound is returned by mutations targeting a missing record.
	ErrNotFound = errors.New("not found")
)

// CreateUserParams captures the attributes set when registering a user.
// Password must already be hashed by the caller; the store never sees
// plaintext credentials.
type CreateUserParams struct {
	Email        string
	DisplayName  string
	PasswordHash string
}

// CreateVideoParams captures a new catalog entry.
type CreateVideoParams struct {
	HostID      string
	HostService string
	Title       string
	URL         string
	OwnerID     string
}

// VideoUpdate describes the mutable fields of a video. Nil fields are
// left unchanged.
type VideoUpdate struct {
	Title  *string
	URL    *string
	HostID *string
}

// CreatePlaylistParams captures a new playlist.
type CreatePlaylistParams struct {
	OwnerID string
	Title   string
	HostIDs []string
}

// CreateWatchEventParams captures a reported playback progress span.
type CreateWatchEventParams struct {
	HostID    string
	UserID    string
	Path      string
	StartTime float64
	EndTime   float64
	Duration  float64
	Complete  bool
}
