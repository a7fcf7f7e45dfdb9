package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"video-membership/internal/models"
	"video-membership/internal/storage"
	"video-membership/internal/videohost"
)

const playlistHydrationConcurrency = 4

type playlistResponse struct {
	ID        string   `json:"id"`
	OwnerID   string   `json:"ownerId"`
	Title     string   `json:"title"`
	HostIDs   []string `json:"hostIds"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

type playlistDetailResponse struct {
	playlistResponse
	Videos []videoResponse `json:"videos"`
}

func newPlaylistResponse(playlist models.Playlist) playlistResponse {
	hostIDs := playlist.HostIDs
	if hostIDs == nil {
		hostIDs = []string{}
	}
	return playlistResponse{
		ID:        playlist.ID,
		OwnerID:   playlist.OwnerID,
		Title:     playlist.Title,
		HostIDs:   hostIDs,
		CreatedAt: playlist.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: playlist.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// Playlists serves the collection routes: GET lists playlists, POST creates
// one for the authenticated caller.
func (h *Handler) Playlists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ownerID := ""
		if r.URL.Query().Get("mine") == "1" {
			identity, ok := h.requireAuthenticatedUser(w, r)
			if !ok {
				return
			}
			ownerID = identity.UserID
		}
		playlists, err := h.Store.ListPlaylists(r.Context(), ownerID)
		if err != nil {
			h.logger().Error("list playlists failed", "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("unable to list playlists"))
			return
		}
		payload := make([]playlistResponse, 0, len(playlists))
		for _, playlist := range playlists {
			payload = append(payload, newPlaylistResponse(playlist))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"playlists": payload})
	case http.MethodPost:
		identity, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		title := strings.TrimSpace(r.PostFormValue("title"))
		if title == "" {
			writeValidationErrors(w, "title is required")
			return
		}
		playlist, err := h.Store.CreatePlaylist(r.Context(), storage.CreatePlaylistParams{
			OwnerID: identity.UserID,
			Title:   title,
		})
		if err != nil {
			if isStorageTimeout(err) {
				writeError(w, http.StatusServiceUnavailable, errors.New("service unavailable"))
				return
			}
			h.logger().Error("create playlist failed", "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("unable to create playlist"))
			return
		}
		writeJSON(w, http.StatusCreated, newPlaylistResponse(playlist))
	default:
		writeMethodNotAllowed(w, r, "GET, POST")
	}
}

// PlaylistSubtree serves /api/playlists/{id} and its video subresources.
func (h *Handler) PlaylistSubtree(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/playlists/"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, errors.New("playlist not found"))
		return
	}
	playlistID := parts[0]

	playlist, exists, err := h.Store.GetPlaylist(r.Context(), playlistID)
	if err != nil {
		h.logger().Error("playlist lookup failed", "playlistID", playlistID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("unable to load playlist"))
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, errors.New("playlist not found"))
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, r, "GET")
			return
		}
		h.playlistDetail(w, r, playlist)
	case len(parts) == 2 && parts[1] == "videos":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, r, "POST")
			return
		}
		h.addPlaylistVideo(w, r, playlist)
	case len(parts) == 3 && parts[1] == "videos":
		if r.Method != http.MethodDelete {
			writeMethodNotAllowed(w, r, "DELETE")
			return
		}
		h.removePlaylistVideo(w, r, playlist, parts[2])
	default:
		writeError(w, http.StatusNotFound, errors.New("not found"))
	}
}

// playlistDetail hydrates the member videos concurrently. Host IDs whose
// video has been removed from the catalog are skipped rather than failing
// the whole response.
func (h *Handler) playlistDetail(w http.ResponseWriter, r *http.Request, playlist models.Playlist) {
	videos := make([]*models.Video, len(playlist.HostIDs))

	group, ctx := errgroup.WithContext(r.Context())
	group.SetLimit(playlistHydrationConcurrency)
	for i, hostID := range playlist.HostIDs {
		i, hostID := i, hostID
		group.Go(func() error {
			video, exists, err := h.Store.GetVideo(ctx, hostID)
			if err != nil {
				return err
			}
			if exists {
				videos[i] = &video
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		h.logger().Error("playlist hydration failed", "playlistID", playlist.ID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("unable to load playlist"))
		return
	}

	payload := playlistDetailResponse{
		playlistResponse: newPlaylistResponse(playlist),
		Videos:           make([]videoResponse, 0, len(videos)),
	}
	for _, video := range videos {
		if video != nil {
			payload.Videos = append(payload.Videos, newVideoResponse(*video))
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) addPlaylistVideo(w http.ResponseWriter, r *http.Request, playlist models.Playlist) {
	identity, ok := h.requireOwner(w, r, playlist.OwnerID)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	title := strings.TrimSpace(r.PostFormValue("title"))
	rawURL := strings.TrimSpace(r.PostFormValue("url"))

	var problems []string
	if title == "" {
		problems = append(problems, "title is required")
	}
	hostID, err := videohost.ExtractID(rawURL)
	if err != nil {
		problems = append(problems, "a valid video url is required")
	}
	if len(problems) > 0 {
		writeValidationErrors(w, problems...)
		return
	}

	// Reuse the catalog entry when the video was already added.
	if _, exists, err := h.Store.GetVideo(r.Context(), hostID); err != nil {
		h.logger().Error("video lookup failed", "hostID", hostID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("unable to add video"))
		return
	} else if !exists {
		if _, err := h.Store.CreateVideo(r.Context(), storage.CreateVideoParams{
			HostID:      hostID,
			HostService: videohost.ServiceYouTube,
			Title:       title,
			URL:         rawURL,
			OwnerID:     identity.UserID,
		}); err != nil && !errors.Is(err, storage.ErrVideoExists) {
			if isStorageTimeout(err) {
				writeError(w, http.StatusServiceUnavailable, errors.New("service unavailable"))
				return
			}
			h.logger().Error("create video failed", "hostID", hostID, "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("unable to add video"))
			return
		}
	}

	updated, err := h.appendToPlaylist(r, playlist, hostID)
	if err != nil {
		h.logger().Error("playlist append failed", "playlistID", playlist.ID, "hostID", hostID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("unable to add video"))
		return
	}
	writeJSON(w, http.StatusCreated, newPlaylistResponse(updated))
}

func (h *Handler) appendToPlaylist(r *http.Request, playlist models.Playlist, hostID string) (models.Playlist, error) {
	for _, existing := range playlist.HostIDs {
		if existing == hostID {
			return playlist, nil
		}
	}
	return h.Store.SetPlaylistHostIDs(r.Context(), playlist.ID, append(playlist.HostIDs, hostID))
}

func (h *Handler) removePlaylistVideo(w http.ResponseWriter, r *http.Request, playlist models.Playlist, hostID string) {
	if _, ok := h.requireOwner(w, r, playlist.OwnerID); !ok {
		return
	}

	remaining := make([]string, 0, len(playlist.HostIDs))
	found := false
	for _, existing := range playlist.HostIDs {
		if existing == hostID {
			found = true
			continue
		}
		remaining = append(remaining, existing)
	}
	if !found {
		writeError(w, http.StatusNotFound, errors.New("video is not in the playlist"))
		return
	}

	if _, err := h.Store.SetPlaylistHostIDs(r.Context(), playlist.ID, remaining); err != nil {
		if isStorageTimeout(err) {
			writeError(w, http.StatusServiceUnavailable, errors.New("service unavailable"))
			return
		}
		h.logger().Error("playlist remove failed", "playlistID", playlist.ID, "hostID", hostID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("unable to update playlist"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
