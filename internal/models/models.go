package models

import "time"

// User is an account identity record. ID is the externally visible
// identifier; it is distinct from any storage-internal key and never
// changes after signup.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Video is a hosted video referenced by the platform. HostID is the
// provider-side identifier extracted from the submitted URL and is unique
// across the catalog; DBID is the stable internal identifier.
type Video struct {
	DBID        string    `json:"dbId"`
	HostID      string    `json:"hostId"`
	HostService string    `json:"hostService"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Playlist is an ordered collection of videos owned by a single user.
// HostIDs reference Video.HostID values.
type Playlist struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	HostIDs   []string  `json:"hostIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// completionThreshold is the watched fraction beyond which playback is
// considered finished and resume restarts from the beginning.
const completionThreshold = 0.97

// WatchEvent records a span of playback progress reported by a client.
type WatchEvent struct {
	EventID   string    `json:"eventId"`
	HostID    string    `json:"hostId"`
	UserID    string    `json:"userId"`
	Path      string    `json:"path"`
	StartTime float64   `json:"startTime"`
	EndTime   float64   `json:"endTime"`
	Duration  float64   `json:"duration"`
	Complete  bool      `json:"complete"`
	CreatedAt time.Time `json:"createdAt"`
}

// Finished reports whether the event represents a completed viewing,
// either flagged explicitly or by crossing the completion threshold.
func (e WatchEvent) Finished() bool {
	if e.Complete {
		return true
	}
	return e.Duration > 0 && e.EndTime >= e.Duration*completionThreshold
}

// ResumeTime returns the playback offset a subsequent session should
// start from: zero for finished viewings, the last end time otherwise.
func (e WatchEvent) ResumeTime() float64 {
	if e.Finished() {
		return 0
	}
	if e.EndTime < 0 {
		return 0
	}
	return e.EndTime
}
