// Package storage persists users, videos, playlists, and watch events.
// Two drivers implement the same Repository contract: a JSON-file store
// for development and single-instance deployments, and a Postgres store
// for everything else.
package storage

import (
	"context"

	"video-membership/internal/auth"
	"video-membership/internal/models"
)

// Repository exposes the datastore operations required by the API
// handlers and the identity resolver. All methods honor context
// cancellation; lookups report absence as (zero, false, nil) rather than
// an error.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, bool, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, bool, error)

	CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error)
	ListVideos(ctx context.Context, limit int) ([]models.Video, error)
	GetVideo(ctx context.Context, hostID string) (models.Video, bool, error)
	UpdateVideo(ctx context.Context, hostID string, update VideoUpdate) (models.Video, error)
	DeleteVideo(ctx context.Context, hostID string) error

	CreatePlaylist(ctx context.Context, params CreatePlaylistParams) (models.Playlist, error)
	ListPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error)
	GetPlaylist(ctx context.Context, playlistID string) (models.Playlist, bool, error)
	SetPlaylistHostIDs(ctx context.Context, playlistID string, hostIDs []string) (models.Playlist, error)

	CreateWatchEvent(ctx context.Context, params CreateWatchEventParams) (models.WatchEvent, error)
	LatestWatchEvent(ctx context.Context, hostID, userID string) (models.WatchEvent, bool, error)
}

var _ Repository = (*Storage)(nil)
var _ Repository = (*postgresRepository)(nil)

// The identity resolver and login flow consume repositories through the
// narrower auth.UserDirectory interface.
var _ auth.UserDirectory = (Repository)(nil)
