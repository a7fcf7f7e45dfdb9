package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"video-membership/internal/models"
)

type dataset struct {
	Users       map[string]models.User       `json:"users"`
	Videos      map[string]models.Video      `json:"videos"`
	Playlists   map[string]models.Playlist   `json:"playlists"`
	WatchEvents map[string]models.WatchEvent `json:"watchEvents"`
}

// Storage is a JSON-file backed Repository. All reads and writes go
// through an in-memory dataset guarded by a RWMutex; mutations are
// persisted atomically via a temp file and rename.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

func newDataset() dataset {
	return dataset{
		Users:       make(map[string]models.User),
		Videos:      make(map[string]models.Video),
		Playlists:   make(map[string]models.Playlist),
		WatchEvents: make(map[string]models.WatchEvent),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.Video)
	}
	if s.data.Playlists == nil {
		s.data.Playlists = make(map[string]models.Playlist)
	}
	if s.data.WatchEvents == nil {
		s.data.WatchEvents = make(map[string]models.WatchEvent)
	}
}

func NewStorage(path string) (*Storage, error) {
	store := &Storage{filePath: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

func (s *Storage) persist() error {
	if s.persistOverride != nil {
		if err := s.persistOverride(s.data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

// Ping reports whether the backing file's directory is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(filepath.Dir(s.filePath))
	return err
}

// Close satisfies callers that treat storage backends uniformly.
func (s *Storage) Close() error {
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *Storage) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalizedEmail := normalizeEmail(params.Email)
	if normalizedEmail == "" {
		return models.User{}, errors.New("email is required")
	}
	for _, user := range s.data.Users {
		if user.Email == normalizedEmail {
			return models.User{}, ErrEmailTaken
		}
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		return models.User{}, errors.New("displayName is required")
	}
	if params.PasswordHash == "" {
		return models.User{}, errors.New("passwordHash is required")
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	user := models.User{
		ID:           id,
		Email:        normalizedEmail,
		DisplayName:  displayName,
		PasswordHash: params.PasswordHash,
		CreatedAt:    now,
	}

	s.data.Users[id] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, id)
		return models.User{}, err
	}

	return user, nil
}

func (s *Storage) GetUser(ctx context.Context, userID string) (models.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.data.Users[userID]
	return user, ok, nil
}

func (s *Storage) FindUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	normalized := normalizeEmail(email)
	for _, user := range s.data.Users {
		if user.Email == normalized {
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

func (s *Storage) CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hostID := strings.TrimSpace(params.HostID)
	if hostID == "" {
		return models.Video{}, errors.New("hostID is required")
	}
	if _, exists := s.data.Videos[hostID]; exists {
		return models.Video{}, ErrVideoExists
	}

	now := time.Now().UTC()
	video := models.Video{
		DBID:        uuid.NewString(),
		HostID:      hostID,
		HostService: params.HostService,
		Title:       strings.TrimSpace(params.Title),
		URL:         params.URL,
		OwnerID:     params.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.data.Videos[hostID] = video
	if err := s.persist(); err != nil {
		delete(s.data.Videos, hostID)
		return models.Video{}, err
	}

	return video, nil
}

func (s *Storage) ListVideos(ctx context.Context, limit int) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	videos := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		videos = append(videos, video)
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt.Equal(videos[j].CreatedAt) {
			return videos[i].HostID < videos[j].HostID
		}
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	if limit > 0 && len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

func (s *Storage) GetVideo(ctx context.Context, hostID string) (models.Video, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	video, ok := s.data.Videos[hostID]
	return video, ok, nil
}

func (s *Storage) UpdateVideo(ctx context.Context, hostID string, update VideoUpdate) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[hostID]
	if !ok {
		return models.Video{}, ErrNotFound
	}

	previous := video
	previousKey := hostID

	if update.Title != nil {
		video.Title = strings.TrimSpace(*update.Title)
	}
	if update.URL != nil {
		video.URL = *update.URL
	}
	if update.HostID != nil && *update.HostID != hostID {
		newHostID := strings.TrimSpace(*update.HostID)
		if newHostID == "" {
			return models.Video{}, errors.New("hostID is required")
		}
		if _, exists := s.data.Videos[newHostID]; exists {
			return models.Video{}, ErrVideoExists
		}
		video.HostID = newHostID
	}
	video.UpdatedAt = time.Now().UTC()

	if video.HostID != previousKey {
		delete(s.data.Videos, previousKey)
	}
	s.data.Videos[video.HostID] = video
	if err := s.persist(); err != nil {
		if video.HostID != previousKey {
			delete(s.data.Videos, video.HostID)
		}
		s.data.Videos[previousKey] = previous
		return models.Video{}, err
	}

	return video, nil
}

func (s *Storage) DeleteVideo(ctx context.Context, hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[hostID]
	if !ok {
		return ErrNotFound
	}

	delete(s.data.Videos, hostID)
	if err := s.persist(); err != nil {
		s.data.Videos[hostID] = video
		return err
	}

	return nil
}

func (s *Storage) CreatePlaylist(ctx context.Context, params CreatePlaylistParams) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Playlist{}, errors.New("title is required")
	}
	if params.OwnerID == "" {
		return models.Playlist{}, errors.New("ownerID is required")
	}

	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:        uuid.NewString(),
		OwnerID:   params.OwnerID,
		Title:     title,
		HostIDs:   append([]string(nil), params.HostIDs...),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.data.Playlists[playlist.ID] = playlist
	if err := s.persist(); err != nil {
		delete(s.data.Playlists, playlist.ID)
		return models.Playlist{}, err
	}

	return playlist, nil
}

func (s *Storage) ListPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlists := make([]models.Playlist, 0)
	for _, playlist := range s.data.Playlists {
		if ownerID != "" && playlist.OwnerID != ownerID {
			continue
		}
		cloned := playlist
		cloned.HostIDs = append([]string(nil), playlist.HostIDs...)
		playlists = append(playlists, cloned)
	}
	sort.Slice(playlists, func(i, j int) bool {
		if playlists[i].UpdatedAt.Equal(playlists[j].UpdatedAt) {
			return playlists[i].ID < playlists[j].ID
		}
		return playlists[i].UpdatedAt.After(playlists[j].UpdatedAt)
	})
	return playlists, nil
}

func (s *Storage) GetPlaylist(ctx context.Context, playlistID string) (models.Playlist, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlist, ok := s.data.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, false, nil
	}
	cloned := playlist
	cloned.HostIDs = append([]string(nil), playlist.HostIDs...)
	return cloned, true, nil
}

func (s *Storage) SetPlaylistHostIDs(ctx context.Context, playlistID string, hostIDs []string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.data.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, ErrNotFound
	}

	previous := playlist
	playlist.HostIDs = append([]string(nil), hostIDs...)
	playlist.UpdatedAt = time.Now().UTC()

	s.data.Playlists[playlistID] = playlist
	if err := s.persist(); err != nil {
		s.data.Playlists[playlistID] = previous
		return models.Playlist{}, err
	}

	cloned := playlist
	cloned.HostIDs = append([]string(nil), playlist.HostIDs...)
	return cloned, nil
}

func (s *Storage) CreateWatchEvent(ctx context.Context, params CreateWatchEventParams) (models.WatchEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if params.HostID == "" {
		return models.WatchEvent{}, errors.New("hostID is required")
	}
	if params.UserID == "" {
		return models.WatchEvent{}, errors.New("userID is required")
	}

	event := models.WatchEvent{
		EventID:   uuid.NewString(),
		HostID:    params.HostID,
		UserID:    params.UserID,
		Path:      params.Path,
		StartTime: params.StartTime,
		EndTime:   params.EndTime,
		Duration:  params.Duration,
		Complete:  params.Complete,
		CreatedAt: time.Now().UTC(),
	}

	s.data.WatchEvents[event.EventID] = event
	if err := s.persist(); err != nil {
		delete(s.data.WatchEvents, event.EventID)
		return models.WatchEvent{}, err
	}

	return event, nil
}

func (s *Storage) LatestWatchEvent(ctx context.Context, hostID, userID string) (models.WatchEvent, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest models.WatchEvent
	found := false
	for _, event := range s.data.WatchEvents {
		if event.HostID != hostID || event.UserID != userID {
			continue
		}
		if !found || event.CreatedAt.After(latest.CreatedAt) {
			latest = event
			found = true
		}
	}
	return latest, found, nil
}
