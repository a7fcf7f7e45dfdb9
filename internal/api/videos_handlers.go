package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"video-membership/internal/models"
	"video-membership/internal/storage"
	"video-membership/internal/videohost"
)

type videoResponse struct {
	HostID      string   `json:"hostId"`
	HostService string   `json:"hostService"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	OwnerID     string   `json:"ownerId"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	ResumeTime  *float64 `json:"resumeTime,omitempty"`
	// PlaylistAttached reports whether the requested playlist append
	// succeeded. Only present when a playlist_id was supplied.
	PlaylistAttached *bool `json:"playlistAttached,omitempty"`
}

func newVideoResponse(video models.Video) videoResponse {
	return videoResponse{
		HostID:      video.HostID,
		HostService: video.HostService,
		Title:       video.Title,
		URL:         video.URL,
		OwnerID:     video.OwnerID,
		CreatedAt:   video.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   video.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// Videos serves the collection routes: GET lists the catalog, POST adds a
// video for the authenticated caller.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		videos, err := h.Store.ListVideos(r.Context(), defaultVideoListLimit)
		if err != nil {
			h.logger().Error("list videos failed", "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("unable to list videos"))
			return
		}
		payload := make([]videoResponse, 0, len(videos))
		for _, video := range videos {
			payload = append(payload, newVideoResponse(video))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"videos": payload})
	case http.MethodPost:
		h.createVideo(w, r)
	default:
		writeMethodNotAllowed(w, r, "GET, POST")
	}
}

func (h *Handler) createVideo(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	title := strings.TrimSpace(r.PostFormValue("title"))
	rawURL := strings.TrimSpace(r.PostFormValue("url"))
	playlistID := strings.TrimSpace(r.PostFormValue("playlist_id"))

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

	var playlist models.Playlist
	if playlistID != "" {
		found, exists, err := h.Store.GetPlaylist(r.Context(), playlistID)
		if err != nil {
			h.logger().Error("playlist lookup failed", "playlistID", playlistID, "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("unable to add video"))
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, errors.New("playlist not found"))
			return
		}
		if _, ok := h.requireOwner(w, r, found.OwnerID); !ok {
			return
		}
		playlist = found
	}

	video, err := h.Store.CreateVideo(r.Context(), storage.CreateVideoParams{
		HostID:      hostID,
		HostService: videohost.ServiceYouTube,
		Title:       title,
		URL:         rawURL,
		OwnerID:     identity.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrVideoExists):
			writeValidationErrors(w, "video is already in the catalog")
		case isStorageTimeout(err):
			writeError(w, http.StatusServiceUnavailable, errors.New("service unavailable"))
		default:
			h.logger().Error("create video failed", "hostID", hostID, "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("unable to add video"))
		}
		return
	}

	response := newVideoResponse(video)
	if playlistID != "" {
		attached := true
		if _, err := h.appendToPlaylist(r, playlist, video.HostID); err != nil {
			h.logger().Error("playlist append failed", "playlistID", playlistID, "hostID", video.HostID, "error", err)
			attached = false
		}
		response.PlaylistAttached = &attached
	}

	writeJSON(w, http.StatusCreated, response)
}

// VideoByHostID serves /api/videos/{hostID}: GET is public, PUT and DELETE
// require ownership.
func (h *Handler) VideoByHostID(w http.ResponseWriter, r *http.Request) {
	hostID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/videos/"), "/")
	if hostID == "" || strings.Contains(hostID, "/") {
		writeError(w, http.StatusNotFound, errors.New("video not found"))
		return
	}

	video, exists, err := h.Store.GetVideo(r.Context(), hostID)
	if err != nil {
		h.logger().Error("video lookup failed", "hostID", hostID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("unable to load video"))
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, errors.New("video not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		payload := newVideoResponse(video)
		if identity, ok := AuthFromContext(r.Context()).Identity(); ok {
			if seconds, found := h.lookupResumeTime(r, identity.UserID, hostID); found {
				payload.ResumeTime = &seconds
			}
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodPut:
		h.updateVideo(w, r, video)
	case http.MethodDelete:
		h.deleteVideo(w, r, video)
	default:
		writeMethodNotAllowed(w, r, "GET, PUT, DELETE")
	}
}

func (h *Handler) updateVideo(w http.ResponseWriter, r *http.Request, video models.Video) {
	if _, ok := h.requireOwner(w, r, video.OwnerID); !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	title := strings.TrimSpace(r.PostFormValue("title"))
	rawURL := strings.TrimSpace(r.PostFormValue("url"))

	update := storage.VideoUpdate{}
	if title != "" {
		update.Title = &title
	}
	if rawURL != "" {
		hostID, err := videohost.ExtractID(rawURL)
		if err != nil {
			writeValidationErrors(w, "a valid video url is required")
			return
		}
		update.URL = &rawURL
		update.HostID = &hostID
	}

	updated, err := h.Store.UpdateVideo(r.Context(), video.HostID, update)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrVideoExists):
			writeValidationErrors(w, "video is already in the catalog")
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, errors.New("video not found"))
		case isStorageTimeout(err):
			writeError(w, http.StatusServiceUnavailable, errors.New("service unavailable"))
		default:
			h.logger().Error("update video failed", "hostID", video.HostID, "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("unable to update video"))
		}
		return
	}
	writeJSON(w, http.StatusOK, newVideoResponse(updated))
}

func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request, video models.Video) {
	if _, ok := h.requireOwner(w, r, video.OwnerID); !ok {
		return
	}
	if err := h.Store.DeleteVideo(r.Context(), video.HostID); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, errors.New("video not found"))
		case isStorageTimeout(err):
			writeError(w, http.StatusServiceUnavailable, errors.New("service unavailable"))
		default:
			h.logger().Error("delete video failed", "hostID", video.HostID, "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("unable to delete video"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
