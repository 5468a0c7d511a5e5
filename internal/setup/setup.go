package setup

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tagscout/tagscout/internal/redis"
	"github.com/tagscout/tagscout/internal/scan"
	"github.com/tagscout/tagscout/internal/setup/config"
	"github.com/tagscout/tagscout/internal/setup/telemetry"
	"github.com/tagscout/tagscout/pkg/utils"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config       // Application configuration
	ConfigDir    string               // Directory the config file was loaded from
	Logger       *zap.Logger          // Main application logger
	LogManager   *telemetry.Manager   // Log management system
	RedisManager *redis.Manager       // Redis connection manager, nil with the memory backend
	Registry     *prometheus.Registry // Metrics registry served on /metrics
	EnvStore     *config.EnvStore     // Dotenv credentials file
	DedupCache   scan.DedupCache      // Process-lifetime dedup cache
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(logDir, &cfg.Debug)

	logger, err := logManager.GetLogger()
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration",
		zap.String("configDir", configDir),
		zap.String("dedupBackend", cfg.Dedup.Backend))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		Config:     cfg,
		ConfigDir:  configDir,
		Logger:     logger,
		LogManager: logManager,
		Registry:   registry,
		EnvStore:   config.NewEnvStore(cfg.EnvFile),
		DedupCache: scan.NewMemoryCache(),
	}

	if cfg.Dedup.Backend == config.DedupBackendRedis {
		redisManager := redis.NewManager(&cfg.Redis, logger)

		// Redis may still be starting when the scanner boots
		if _, err := utils.WithRetry(ctx, func() (struct{}, error) {
			return struct{}{}, redisManager.Ping(ctx, redis.DedupDBIndex)
		}, app.RetryOptions()); err != nil {
			redisManager.Close()
			return nil, err
		}

		client, err := redisManager.GetClient(redis.DedupDBIndex)
		if err != nil {
			redisManager.Close()
			return nil, err
		}

		app.RedisManager = redisManager
		app.DedupCache = scan.NewRedisCache(client, logManager.GetInstanceID(), logger)
	}

	return app, nil
}

// RetryOptions converts the retry config for utils.WithRetry.
func (s *App) RetryOptions() utils.RetryOptions {
	return utils.RetryOptions{
		MaxElapsedTime:  2 * time.Minute,
		InitialInterval: time.Duration(s.Config.Retry.Delay) * time.Millisecond,
		MaxInterval:     time.Duration(s.Config.Retry.MaxDelay) * time.Millisecond,
		MaxRetries:      s.Config.Retry.MaxRetries,
	}
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(_ context.Context) {
	// Close Redis connections first since nothing writes after the scan stops
	if s.RedisManager != nil {
		s.RedisManager.Close()
	}

	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.LogManager.Close(); err != nil {
		log.Printf("Failed to close log files: %v", err)
	}
}
