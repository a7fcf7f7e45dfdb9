package api

import (
	"errors"
	"net/http"
	"strings"

	"video-membership/internal/storage"
)

type watchEventRequest struct {
	HostID    string  `json:"hostId"`
	Path      string  `json:"path"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Duration  float64 `json:"duration"`
	Complete  bool    `json:"complete"`
}

type watchEventResponse struct {
	EventID    string  `json:"eventId"`
	HostID     string  `json:"hostId"`
	ResumeTime float64 `json:"resumeTime"`
	Finished   bool    `json:"finished"`
}

// WatchEvents records playback progress for the authenticated caller and
// writes the resume position through to the cache on a best-effort basis.
func (h *Handler) WatchEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "POST")
		return
	}
	identity, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	var req watchEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var problems []string
	if strings.TrimSpace(req.HostID) == "" {
		problems = append(problems, "hostId is required")
	}
	if req.Duration < 0 || req.StartTime < 0 || req.EndTime < 0 {
		problems = append(problems, "times must not be negative")
	}
	if len(problems) > 0 {
		writeValidationErrors(w, problems...)
		return
	}

	if _, exists, err := h.Store.GetVideo(r.Context(), req.HostID); err != nil {
		h.logger().Error("video lookup failed", "hostID", req.HostID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("unable to record watch event"))
		return
	} else if !exists {
		writeError(w, http.StatusNotFound, errors.New("video not found"))
		return
	}

	event, err := h.Store.CreateWatchEvent(r.Context(), storage.CreateWatchEventParams{
		HostID:    req.HostID,
		UserID:    identity.UserID,
		Path:      req.Path,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Duration:  req.Duration,
		Complete:  req.Complete,
	})
	if err != nil {
		if isStorageTimeout(err) {
			writeError(w, http.StatusServiceUnavailable, errors.New("service unavailable"))
			return
		}
		h.logger().Error("create watch event failed", "hostID", req.HostID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("unable to record watch event"))
		return
	}

	if err := h.resumeCache().SetResumeTime(r.Context(), identity.UserID, event.HostID, event.ResumeTime()); err != nil {
		h.logger().Warn("resume cache write failed", "hostID", event.HostID, "error", err)
	}

	writeJSON(w, http.StatusCreated, watchEventResponse{
		EventID:    event.EventID,
		HostID:     event.HostID,
		ResumeTime: event.ResumeTime(),
		Finished:   event.Finished(),
	})
}

// WatchEventResume serves /api/watch-events/{hostID}/resume for the
// authenticated caller, consulting the cache before the repository.
func (h *Handler) WatchEventResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, "GET")
		return
	}
	identity, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/watch-events/"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "resume" {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	hostID := parts[0]

	seconds, found := h.lookupResumeTime(r, identity.UserID, hostID)
	if !found {
		seconds = 0
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hostId":     hostID,
		"resumeTime": seconds,
	})
}

// lookupResumeTime consults the cache first and falls back to the latest
// recorded watch event. Cache faults degrade to the repository path.
func (h *Handler) lookupResumeTime(r *http.Request, userID, hostID string) (float64, bool) {
	seconds, found, err := h.resumeCache().ResumeTime(r.Context(), userID, hostID)
	if err != nil {
		h.logger().Warn("resume cache read failed", "hostID", hostID, "error", err)
	} else if found {
		return seconds, true
	}

	event, exists, err := h.Store.LatestWatchEvent(r.Context(), hostID, userID)
	if err != nil {
		h.logger().Warn("watch event lookup failed", "hostID", hostID, "error", err)
		return 0, false
	}
	if !exists {
		return 0, false
	}
	return event.ResumeTime(), true
}
