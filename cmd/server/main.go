// Command server starts the video membership API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"video-membership/internal/api"
	"video-membership/internal/auth"
	"video-membership/internal/observability/logging"
	"video-membership/internal/progress"
	"video-membership/internal/server"
	"video-membership/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	sessionSecret := flag.String("session-secret", "", "secret used to sign session tokens (at least 32 bytes)")
	sessionDuration := flag.Duration("session-duration", 0, "lifetime of issued session tokens")
	resolveTimeout := flag.Duration("resolve-timeout", 0, "timeout for identity lookups during request resolution")
	resumeRedisAddr := flag.String("resume-redis-addr", "", "Redis address for the resume position cache")
	resumeRedisAddrs := flag.String("resume-redis-addrs", "", "comma separated Redis addresses for the resume position cache")
	resumeRedisUsername := flag.String("resume-redis-username", "", "Redis username for the resume position cache")
	resumeRedisPassword := flag.String("resume-redis-password", "", "Redis password for the resume position cache")
	resumeRedisMasterName := flag.String("resume-redis-sentinel-master", "", "Redis sentinel master name for the resume position cache")
	resumeRedisPoolSize := flag.Int("resume-redis-pool-size", 0, "maximum Redis connections for the resume position cache")
	resumeRedisPrefix := flag.String("resume-redis-prefix", "", "key prefix for resume cache entries")
	resumeRedisTTL := flag.Duration("resume-redis-ttl", 0, "expiry applied to resume cache entries")
	corsOrigins := flag.String("cors-origins", "", "comma separated origins allowed to call the API cross-origin")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log output format (json or text)")
	flag.Parse()

	logger := logging.New(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("VIDEO_MEMBERSHIP_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("VIDEO_MEMBERSHIP_LOG_FORMAT")),
	})

	serverMode := modeValue(*mode, os.Getenv("VIDEO_MEMBERSHIP_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("VIDEO_MEMBERSHIP_ADDR"))

	secret := firstNonEmpty(*sessionSecret, os.Getenv("VIDEO_MEMBERSHIP_SESSION_SECRET"))
	if secret == "" {
		logger.Error("session secret is required", "env", "VIDEO_MEMBERSHIP_SESSION_SECRET")
		os.Exit(1)
	}
	tokens, err := auth.NewTokenService([]byte(secret))
	if err != nil {
		logger.Error("invalid session secret", "error", err)
		os.Exit(1)
	}

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("VIDEO_MEMBERSHIP_STORAGE_DRIVER"), postgresDefaultDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}
	if serverMode == "production" {
		if err := validateProductionDatastore(driver, postgresDefaultDSN); err != nil {
			logger.Error("production datastore validation failed", "error", err)
			os.Exit(1)
		}
	}

	var store storage.Repository
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("VIDEO_MEMBERSHIP_DATA"))
		store, err = storage.NewStorage(dataFile)
	case "postgres":
		if postgresDefaultDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		var pgOptions []storage.PostgresOption
		maxConns := resolveInt(*postgresMaxConns, "VIDEO_MEMBERSHIP_POSTGRES_MAX_CONNS")
		minConns := resolveInt(*postgresMinConns, "VIDEO_MEMBERSHIP_POSTGRES_MIN_CONNS")
		if maxConns > 0 || minConns > 0 {
			pgOptions = append(pgOptions, storage.WithPoolLimits(int32(maxConns), int32(minConns)))
		}
		maxLifetime := resolveDuration(*postgresMaxConnLifetime, "VIDEO_MEMBERSHIP_POSTGRES_MAX_CONN_LIFETIME", 0)
		maxIdle := resolveDuration(*postgresMaxConnIdle, "VIDEO_MEMBERSHIP_POSTGRES_MAX_CONN_IDLE", 0)
		if maxLifetime > 0 || maxIdle > 0 {
			pgOptions = append(pgOptions, storage.WithConnLifetimes(maxLifetime, maxIdle))
		}
		if healthInterval := resolveDuration(*postgresHealthInterval, "VIDEO_MEMBERSHIP_POSTGRES_HEALTH_INTERVAL", 0); healthInterval > 0 {
			pgOptions = append(pgOptions, storage.WithHealthCheckInterval(healthInterval))
		}
		if acquireTimeout := resolveDuration(*postgresAcquireTimeout, "VIDEO_MEMBERSHIP_POSTGRES_ACQUIRE_TIMEOUT", 0); acquireTimeout > 0 {
			pgOptions = append(pgOptions, storage.WithAcquireTimeout(acquireTimeout))
		}
		if appName := firstNonEmpty(*postgresAppName, os.Getenv("VIDEO_MEMBERSHIP_POSTGRES_APP_NAME")); appName != "" {
			pgOptions = append(pgOptions, storage.WithApplicationName(appName))
		}
		connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
		store, err = storage.NewPostgresRepository(connectCtx, postgresDefaultDSN, pgOptions...)
		cancelConnect()
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	resumeCacheCfg := progress.RedisCacheConfig{
		Addr:       firstNonEmpty(*resumeRedisAddr, os.Getenv("VIDEO_MEMBERSHIP_RESUME_REDIS_ADDR")),
		Addrs:      splitAndTrim(firstNonEmpty(*resumeRedisAddrs, os.Getenv("VIDEO_MEMBERSHIP_RESUME_REDIS_ADDRS"))),
		Username:   firstNonEmpty(*resumeRedisUsername, os.Getenv("VIDEO_MEMBERSHIP_RESUME_REDIS_USERNAME")),
		Password:   firstNonEmpty(*resumeRedisPassword, os.Getenv("VIDEO_MEMBERSHIP_RESUME_REDIS_PASSWORD")),
		MasterName: firstNonEmpty(*resumeRedisMasterName, os.Getenv("VIDEO_MEMBERSHIP_RESUME_REDIS_SENTINEL_MASTER")),
		PoolSize:   resolveInt(*resumeRedisPoolSize, "VIDEO_MEMBERSHIP_RESUME_REDIS_POOL_SIZE"),
		KeyPrefix:  firstNonEmpty(*resumeRedisPrefix, os.Getenv("VIDEO_MEMBERSHIP_RESUME_REDIS_PREFIX")),
		TTL:        resolveDuration(*resumeRedisTTL, "VIDEO_MEMBERSHIP_RESUME_REDIS_TTL", 0),
	}
	resumeCache, err := configureResumeCache(resumeCacheCfg)
	if err != nil {
		logger.Error("failed to configure resume cache", "error", err)
		os.Exit(1)
	}

	cookiePolicy := api.DefaultSessionCookiePolicy()
	if serverMode == "production" {
		cookiePolicy.SecureMode = api.SessionCookieSecureAlways
	}

	handler := api.NewHandler(store, tokens)
	handler.Resume = resumeCache
	handler.SessionTTL = resolveDuration(*sessionDuration, "VIDEO_MEMBERSHIP_SESSION_DURATION", 0)
	handler.ResolveTimeout = resolveDuration(*resolveTimeout, "VIDEO_MEMBERSHIP_RESOLVE_TIMEOUT", 0)
	handler.SessionCookiePolicy = cookiePolicy
	handler.Logger = logging.WithComponent(logger, "api")

	tlsCfg := server.TLSConfig{
		CertFile: firstNonEmpty(*tlsCert, os.Getenv("VIDEO_MEMBERSHIP_TLS_CERT")),
		KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("VIDEO_MEMBERSHIP_TLS_KEY")),
	}

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS:  tlsCfg,
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("VIDEO_MEMBERSHIP_CORS_ORIGINS"))),
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("video membership API listening", "addr", listenAddr, "mode", serverMode, "storage_driver", driver)
		if tlsCfg.CertFile != "" && tlsCfg.KeyFile != "" {
			logger.Info("TLS enabled", "cert_file", tlsCfg.CertFile)
		}
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	if err := resumeCache.Close(); err != nil {
		logger.Warn("failed to close resume cache", "error", err)
	}

	if closer, ok := store.(interface{ CloseWithContext(context.Context) error }); ok {
		if err := closer.CloseWithContext(ctx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	} else if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}

	logger.Info("server stopped")
}

func configureResumeCache(cfg progress.RedisCacheConfig) (progress.Cache, error) {
	if strings.TrimSpace(cfg.Addr) == "" && len(cfg.Addrs) == 0 {
		return progress.NoopCache{}, nil
	}
	return progress.NewRedisCache(cfg)
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		listenAddr = defaultListenForMode(mode)
	}
	return listenAddr
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func defaultListenForMode(mode string) string {
	if mode == "production" {
		return ":80"
	}
	return ":8080"
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "json", nil
}

func validateProductionDatastore(driver, resolvedPostgresDSN string) error {
	if driver != "postgres" {
		return fmt.Errorf("production mode requires the postgres datastore driver, got %q", driver)
	}
	if strings.TrimSpace(resolvedPostgresDSN) == "" {
		return fmt.Errorf("postgres storage selected without DSN")
	}
	return nil
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/store.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("VIDEO_MEMBERSHIP_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}
