// Package videohost resolves hosted-video identifiers from share URLs.
package videohost

import (
	"errors"
	"net/url"
	"strings"
)

// ServiceYouTube is the only host service currently supported.
const ServiceYouTube = "youtube"

// ErrInvalidURL is returned when no video identifier can be recovered
// from the supplied URL.
var ErrInvalidURL = errors.New("invalid video url")

const youtubeIDLength = 11

func isYouTubeID(candidate string) bool {
	if len(candidate) != youtubeIDLength {
		return false
	}
	for _, r := range candidate {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// ExtractID recovers the YouTube video identifier from a watch, share,
// embed, or shorts URL. A bare identifier is accepted as-is.
func ExtractID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidURL
	}
	if isYouTubeID(trimmed) {
		return trimmed, nil
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", ErrInvalidURL
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch host {
	case "youtu.be":
		if id := firstPathSegment(parsed.Path); isYouTubeID(id) {
			return id, nil
		}
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := parsed.Query().Get("v"); isYouTubeID(id) {
			return id, nil
		}
		segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		if len(segments) >= 2 {
			switch segments[0] {
			case "embed", "shorts", "live", "v":
				if isYouTubeID(segments[1]) {
					return segments[1], nil
				}
			}
		}
	}
	return "", ErrInvalidURL
}

func firstPathSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}
