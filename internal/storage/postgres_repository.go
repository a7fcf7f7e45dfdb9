package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"video-membership/internal/models"
)

type postgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository and applies the
// schema migration before returning.
func NewPostgresRepository(ctx context.Context, dsn string, opts ...PostgresOption) (Repository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	repo := &postgresRepository{pool: pool, cfg: cfg}
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Close drains the connection pool, honouring the supplied deadline.
func (r *postgresRepository) CloseWithContext(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) Close() error {
	if r != nil && r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *postgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	normalizedEmail := normalizeEmail(params.Email)
	if normalizedEmail == "" {
		return models.User{}, errors.New("email is required")
	}
	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		return models.User{}, errors.New("displayName is required")
	}
	if params.PasswordHash == "" {
		return models.User{}, errors.New("passwordHash is required")
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        normalizedEmail,
		DisplayName:  displayName,
		PasswordHash: params.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) GetUser(ctx context.Context, userID string) (models.User, bool, error) {
	var user models.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE id = $1`,
		userID).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("select user: %w", err)
	}
	return user, true, nil
}

func (r *postgresRepository) FindUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	var user models.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = $1`,
		normalizeEmail(email)).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("select user by email: %w", err)
	}
	return user, true, nil
}

func (r *postgresRepository) CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error) {
	hostID := strings.TrimSpace(params.HostID)
	if hostID == "" {
		return models.Video{}, errors.New("hostID is required")
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
	_, err := r.pool.Exec(ctx,
		`INSERT INTO videos (id, host_id, host_service, title, url, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		video.DBID, video.HostID, video.HostService, video.Title, video.URL, video.OwnerID, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Video{}, ErrVideoExists
		}
		return models.Video{}, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) ListVideos(ctx context.Context, limit int) ([]models.Video, error) {
	query := `SELECT id, host_id, host_service, title, url, owner_id, created_at, updated_at
		FROM videos ORDER BY created_at DESC, host_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		var video models.Video
		if err := rows.Scan(&video.DBID, &video.HostID, &video.HostService, &video.Title, &video.URL, &video.OwnerID, &video.CreatedAt, &video.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

func (r *postgresRepository) GetVideo(ctx context.Context, hostID string) (models.Video, bool, error) {
	var video models.Video
	err := r.pool.QueryRow(ctx,
		`SELECT id, host_id, host_service, title, url, owner_id, created_at, updated_at
		 FROM videos WHERE host_id = $1`,
		hostID).Scan(&video.DBID, &video.HostID, &video.HostService, &video.Title, &video.URL, &video.OwnerID, &video.CreatedAt, &video.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, false, nil
	}
	if err != nil {
		return models.Video{}, false, fmt.Errorf("select video: %w", err)
	}
	return video, true, nil
}

func (r *postgresRepository) UpdateVideo(ctx context.Context, hostID string, update VideoUpdate) (models.Video, error) {
	video, ok, err := r.GetVideo(ctx, hostID)
	if err != nil {
		return models.Video{}, err
	}
	if !ok {
		return models.Video{}, ErrNotFound
	}

	if update.Title != nil {
		video.Title = strings.TrimSpace(*update.Title)
	}
	if update.URL != nil {
		video.URL = *update.URL
	}
	if update.HostID != nil {
		newHostID := strings.TrimSpace(*update.HostID)
		if newHostID == "" {
			return models.Video{}, errors.New("hostID is required")
		}
		video.HostID = newHostID
	}
	video.UpdatedAt = time.Now().UTC()

	tag, err := r.pool.Exec(ctx,
		`UPDATE videos SET host_id = $1, title = $2, url = $3, updated_at = $4 WHERE id = $5`,
		video.HostID, video.Title, video.URL, video.UpdatedAt, video.DBID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Video{}, ErrVideoExists
		}
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

func (r *postgresRepository) DeleteVideo(ctx context.Context, hostID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE host_id = $1`, hostID)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) CreatePlaylist(ctx context.Context, params CreatePlaylistParams) (models.Playlist, error) {
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
	hostIDs := playlist.HostIDs
	if hostIDs == nil {
		hostIDs = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO playlists (id, owner_id, title, host_ids, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		playlist.ID, playlist.OwnerID, playlist.Title, hostIDs, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) ListPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	query := `SELECT id, owner_id, title, host_ids, created_at, updated_at
		FROM playlists ORDER BY updated_at DESC, id`
	args := []any{}
	if ownerID != "" {
		query = `SELECT id, owner_id, title, host_ids, created_at, updated_at
			FROM playlists WHERE owner_id = $1 ORDER BY updated_at DESC, id`
		args = append(args, ownerID)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]models.Playlist, 0)
	for rows.Next() {
		var playlist models.Playlist
		if err := rows.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Title, &playlist.HostIDs, &playlist.CreatedAt, &playlist.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

func (r *postgresRepository) GetPlaylist(ctx context.Context, playlistID string) (models.Playlist, bool, error) {
	var playlist models.Playlist
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, host_ids, created_at, updated_at FROM playlists WHERE id = $1`,
		playlistID).Scan(&playlist.ID, &playlist.OwnerID, &playlist.Title, &playlist.HostIDs, &playlist.CreatedAt, &playlist.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Playlist{}, false, nil
	}
	if err != nil {
		return models.Playlist{}, false, fmt.Errorf("select playlist: %w", err)
	}
	return playlist, true, nil
}

func (r *postgresRepository) SetPlaylistHostIDs(ctx context.Context, playlistID string, hostIDs []string) (models.Playlist, error) {
	updated := time.Now().UTC()
	stored := append([]string(nil), hostIDs...)
	if stored == nil {
		stored = []string{}
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE playlists SET host_ids = $1, updated_at = $2 WHERE id = $3`,
		stored, updated, playlistID)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Playlist{}, ErrNotFound
	}
	playlist, _, err := r.GetPlaylist(ctx, playlistID)
	if err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

func (r *postgresRepository) CreateWatchEvent(ctx context.Context, params CreateWatchEventParams) (models.WatchEvent, error) {
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
	_, err := r.pool.Exec(ctx,
		`INSERT INTO watch_events (id, host_id, user_id, path, start_time, end_time, duration, complete, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.EventID, event.HostID, event.UserID, event.Path, event.StartTime, event.EndTime, event.Duration, event.Complete, event.CreatedAt)
	if err != nil {
		return models.WatchEvent{}, fmt.Errorf("insert watch event: %w", err)
	}
	return event, nil
}

func (r *postgresRepository) LatestWatchEvent(ctx context.Context, hostID, userID string) (models.WatchEvent, bool, error) {
	var event models.WatchEvent
	err := r.pool.QueryRow(ctx,
		`SELECT id, host_id, user_id, path, start_time, end_time, duration, complete, created_at
		 FROM watch_events WHERE host_id = $1 AND user_id = $2
		 ORDER BY created_at DESC LIMIT 1`,
		hostID, userID).Scan(&event.EventID, &event.HostID, &event.UserID, &event.Path, &event.StartTime, &event.EndTime, &event.Duration, &event.Complete, &event.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.WatchEvent{}, false, nil
	}
	if err != nil {
		return models.WatchEvent{}, false, fmt.Errorf("select watch event: %w", err)
	}
	return event, true, nil
}
