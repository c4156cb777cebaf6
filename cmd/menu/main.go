package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ohbang/internal/api"
	"ohbang/internal/config"
	"ohbang/internal/database"
	"ohbang/internal/domain"
	"ohbang/internal/events"
	"ohbang/internal/logging"
	"ohbang/internal/metrics"
	"ohbang/internal/models"
	"ohbang/internal/remote"
	"ohbang/internal/repository"
	"ohbang/internal/service"
	"ohbang/internal/store"
	"ohbang/internal/syncer"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, prefs := initPreferences(ctx, cfg, logger)
	defer func() { _ = repository.Close(redisClient) }()

	bus := events.NewEventBus()
	menuStore := store.NewMenuStore(db, bus, logging.Component(logger, "store"))
	menuService := service.NewMenuService(menuStore, newSynchronizer(cfg, menuStore, logger), prefs, logging.Component(logger, "service"))

	startMetrics(ctx, cfg, logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		go backupService.Start(ctx)
	}

	syncDone := make(chan syncer.Result, 1)
	go menuService.Load(ctx, func(res syncer.Result) {
		syncDone <- res
	})

	if !cfg.API.Enabled {
		// без API выполняем одну синхронизацию и выходим
		res := <-syncDone
		logSyncResult(logger, res)
		return res.Err
	}

	apiServer := api.NewHTTPServer(cfg.API, menuService, logging.Component(logger, "http"))
	go func() {
		if err := apiServer.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	synced := false
	select {
	case res := <-syncDone:
		synced = true
		logSyncResult(logger, res)
	case <-ctx.Done():
	}

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)

	// база закрывается только после завершения синхронизации
	if !synced {
		<-syncDone
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, logging.Component(baseLogger, "menu-main"), closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}
	return db, nil
}

// initPreferences uses Redis when configured and reachable, with an
// in-memory fallback either way.
func initPreferences(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.PreferenceRepository) {
	fallback := repository.NewMemoryPreferenceRepository()
	if cfg.Redis.Address == "" {
		logger.Info().Msg("Redis not configured, preferences kept in memory")
		return nil, fallback
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if errPing := repository.Ping(ctx, redisClient); errPing != nil {
		logger.Warn().Err(errPing).Msg("Redis unavailable")
	}

	primary := repository.NewRedisPreferenceRepository(redisClient, 0)
	return redisClient, repository.NewFailoverPreferenceRepository(primary, fallback, logging.Component(logger, "prefs"))
}

func newSynchronizer(cfg *config.Config, st domain.MenuStore, logger *zerolog.Logger) *syncer.Synchronizer {
	client := remote.NewClient(cfg.Remote.URL, cfg.Remote.TimeoutDuration(), logging.Component(logger, "remote"))

	opts := []syncer.Option{syncer.WithPolicy(cfg.Sync.Policy)}
	if cfg.Sync.RequireNetwork {
		opts = append(opts, syncer.WithProbe(remote.NewProber(cfg.Sync.ProbeAddress, cfg.Sync.ProbeTimeoutDuration())))
	}
	return syncer.New(st, client, logging.Component(logger, "syncer"), opts...)
}

func logSyncResult(logger *zerolog.Logger, res syncer.Result) {
	if res.Err != nil {
		logger.Error().Err(res.Err).Msg("initial menu sync failed")
		return
	}
	logger.Info().
		Bool("fetched", res.Fetched).
		Int("items", res.Items).
		Str("pref", models.PrefLastSyncAt).
		Msg("initial menu sync complete")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
