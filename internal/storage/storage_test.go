package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	return store
}

func createTestUser(t *testing.T, store *Storage, email string) string {
	t.Helper()
	user, err := store.CreateUser(context.Background(), CreateUserParams{
		Email:        email,
		DisplayName:  "Test User",
		PasswordHash: "pbkdf2$sha256$120000$c2FsdA$aGFzaA",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	return user.ID
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, CreateUserParams{
		Email:        "  Viewer@Example.COM ",
		DisplayName:  "Viewer",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.Email != "viewer@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.ID == "" {
		t.Fatal("expected generated user ID")
	}

	found, ok, err := store.FindUserByEmail(ctx, "VIEWER@example.com")
	if err != nil || !ok {
		t.Fatalf("FindUserByEmail = (%v, %v, %v)", found, ok, err)
	}
	if found.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, found.ID)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	createTestUser(t, store, "viewer@example.com")

	_, err := store.CreateUser(ctx, CreateUserParams{
		Email:        "Viewer@example.com",
		DisplayName:  "Second",
		PasswordHash: "hash",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateUserRollsBackWhenPersistFails(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	persistErr := errors.New("disk full")
	store.persistOverride = func(dataset) error { return persistErr }

	_, err := store.CreateUser(ctx, CreateUserParams{
		Email:        "viewer@example.com",
		DisplayName:  "Viewer",
		PasswordHash: "hash",
	})
	if !errors.Is(err, persistErr) {
		t.Fatalf("expected persist error, got %v", err)
	}

	store.persistOverride = nil
	if _, ok, _ := store.FindUserByEmail(ctx, "viewer@example.com"); ok {
		t.Fatal("expected failed create to leave no user behind")
	}
}

func TestVideoLifecycle(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	ownerID := createTestUser(t, store, "owner@example.com")

	first, err := store.CreateVideo(ctx, CreateVideoParams{
		HostID:      "dQw4w9WgXcQ",
		HostService: "youtube",
		Title:       "First",
		URL:         "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		OwnerID:     ownerID,
	})
	if err != nil {
		t.Fatalf("CreateVideo returned error: %v", err)
	}

	if _, err := store.CreateVideo(ctx, CreateVideoParams{
		HostID:  "dQw4w9WgXcQ",
		Title:   "Duplicate",
		URL:     first.URL,
		OwnerID: ownerID,
	}); !errors.Is(err, ErrVideoExists) {
		t.Fatalf("expected ErrVideoExists, got %v", err)
	}

	title := "Renamed"
	updated, err := store.UpdateVideo(ctx, first.HostID, VideoUpdate{Title: &title})
	if err != nil {
		t.Fatalf("UpdateVideo returned error: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("expected updated title, got %q", updated.Title)
	}
	if !updated.UpdatedAt.After(first.CreatedAt) && !updated.UpdatedAt.Equal(first.CreatedAt) {
		t.Fatal("expected UpdatedAt to advance")
	}

	videos, err := store.ListVideos(ctx, 0)
	if err != nil {
		t.Fatalf("ListVideos returned error: %v", err)
	}
	if len(videos) != 1 || videos[0].HostID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected video list: %+v", videos)
	}

	if err := store.DeleteVideo(ctx, first.HostID); err != nil {
		t.Fatalf("DeleteVideo returned error: %v", err)
	}
	if err := store.DeleteVideo(ctx, first.HostID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUpdateVideoCanChangeHostID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	ownerID := createTestUser(t, store, "owner@example.com")

	video, err := store.CreateVideo(ctx, CreateVideoParams{
		HostID:  "aaaaaaaaaaa",
		Title:   "Video",
		URL:     "https://youtu.be/aaaaaaaaaaa",
		OwnerID: ownerID,
	})
	if err != nil {
		t.Fatalf("CreateVideo returned error: %v", err)
	}

	newHostID := "bbbbbbbbbbb"
	updated, err := store.UpdateVideo(ctx, video.HostID, VideoUpdate{HostID: &newHostID})
	if err != nil {
		t.Fatalf("UpdateVideo returned error: %v", err)
	}
	if updated.HostID != newHostID {
		t.Fatalf("expected new host ID, got %q", updated.HostID)
	}
	if _, ok, _ := store.GetVideo(ctx, "aaaaaaaaaaa"); ok {
		t.Fatal("expected old host ID to be removed")
	}
	if _, ok, _ := store.GetVideo(ctx, newHostID); !ok {
		t.Fatal("expected video reachable under new host ID")
	}
}

func TestPlaylistLifecycle(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	ownerID := createTestUser(t, store, "owner@example.com")
	otherID := createTestUser(t, store, "other@example.com")

	playlist, err := store.CreatePlaylist(ctx, CreatePlaylistParams{
		OwnerID: ownerID,
		Title:   "Favorites",
		HostIDs: []string{"aaaaaaaaaaa"},
	})
	if err != nil {
		t.Fatalf("CreatePlaylist returned error: %v", err)
	}
	if _, err := store.CreatePlaylist(ctx, CreatePlaylistParams{
		OwnerID: otherID,
		Title:   "Other",
	}); err != nil {
		t.Fatalf("CreatePlaylist returned error: %v", err)
	}

	mine, err := store.ListPlaylists(ctx, ownerID)
	if err != nil {
		t.Fatalf("ListPlaylists returned error: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != playlist.ID {
		t.Fatalf("unexpected owner playlists: %+v", mine)
	}

	updated, err := store.SetPlaylistHostIDs(ctx, playlist.ID, []string{"aaaaaaaaaaa", "bbbbbbbbbbb"})
	if err != nil {
		t.Fatalf("SetPlaylistHostIDs returned error: %v", err)
	}
	if len(updated.HostIDs) != 2 {
		t.Fatalf("expected two host IDs, got %v", updated.HostIDs)
	}

	if _, err := store.SetPlaylistHostIDs(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaylistResultsAreIsolatedCopies(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	ownerID := createTestUser(t, store, "owner@example.com")

	playlist, err := store.CreatePlaylist(ctx, CreatePlaylistParams{
		OwnerID: ownerID,
		Title:   "Favorites",
		HostIDs: []string{"aaaaaaaaaaa"},
	})
	if err != nil {
		t.Fatalf("CreatePlaylist returned error: %v", err)
	}

	fetched, ok, err := store.GetPlaylist(ctx, playlist.ID)
	if err != nil || !ok {
		t.Fatalf("GetPlaylist = (%v, %v, %v)", fetched, ok, err)
	}
	fetched.HostIDs[0] = "mutated"

	again, _, _ := store.GetPlaylist(ctx, playlist.ID)
	if again.HostIDs[0] != "aaaaaaaaaaa" {
		t.Fatal("expected stored playlist to be unaffected by caller mutation")
	}
}

func TestLatestWatchEvent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	userID := createTestUser(t, store, "viewer@example.com")

	older, err := store.CreateWatchEvent(ctx, CreateWatchEventParams{
		HostID:   "dQw4w9WgXcQ",
		UserID:   userID,
		EndTime:  10,
		Duration: 100,
	})
	if err != nil {
		t.Fatalf("CreateWatchEvent returned error: %v", err)
	}
	// Force distinct timestamps so the latest lookup is deterministic.
	later := older
	later.EventID = "fixed-event-id"
	later.EndTime = 42
	later.CreatedAt = older.CreatedAt.Add(time.Second)
	store.mu.Lock()
	store.data.WatchEvents[later.EventID] = later
	store.mu.Unlock()

	event, ok, err := store.LatestWatchEvent(ctx, "dQw4w9WgXcQ", userID)
	if err != nil || !ok {
		t.Fatalf("LatestWatchEvent = (%v, %v, %v)", event, ok, err)
	}
	if event.EndTime != 42 {
		t.Fatalf("expected latest event, got end time %v", event.EndTime)
	}

	if _, ok, _ := store.LatestWatchEvent(ctx, "dQw4w9WgXcQ", "someone-else"); ok {
		t.Fatal("expected no event for other user")
	}
}

func TestStorageSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	ctx := context.Background()

	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	user, err := store.CreateUser(ctx, CreateUserParams{
		Email:        "viewer@example.com",
		DisplayName:  "Viewer",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	reopened, err := NewStorage(path)
	if err != nil {
		t.Fatalf("reopen NewStorage returned error: %v", err)
	}
	found, ok, err := reopened.GetUser(ctx, user.ID)
	if err != nil || !ok {
		t.Fatalf("GetUser after reopen = (%v, %v, %v)", found, ok, err)
	}
	if found.Email != "viewer@example.com" {
		t.Fatalf("unexpected email after reopen: %q", found.Email)
	}
}
