package cmd

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"example.com/backstage/services/pickaudit/config"
	"example.com/backstage/services/pickaudit/internal/cache"
	"example.com/backstage/services/pickaudit/internal/database"
	"example.com/backstage/services/pickaudit/internal/messaging"
	"example.com/backstage/services/pickaudit/internal/metrics"
	"example.com/backstage/services/pickaudit/internal/repositories"
	"example.com/backstage/services/pickaudit/internal/search"
	"example.com/backstage/services/pickaudit/internal/services"
	"example.com/backstage/services/pickaudit/internal/tracing"
)

// app holds everything the api and worker commands share
type app struct {
	cfg        config.Config
	db         *gorm.DB
	readOnlyDB *gorm.DB
	cache      *cache.RedisCache
	tracer     tracing.Tracer
	bus        *messaging.ServiceBusClient
	publisher  messaging.Publisher
	metrics    *metrics.Metrics
	analyses   *services.AnalysisService
	datasets   *services.DatasetService
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return cfg, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// newApp connects the database and the optional backends. Redis,
// Elasticsearch, New Relic and Service Bus failures only disable the
// feature.
func newApp(source string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, metrics: metrics.NewMetrics()}

	a.db, a.readOnlyDB, err = database.Connect(cfg.DB, gormLogLevel(cfg.Logging.Level))
	if err != nil {
		return nil, err
	}
	a.metrics.SetHealth("database", pingDB(a.db))

	a.cache, err = cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}
	if cfg.Redis.Enabled {
		a.metrics.SetHealth("redis", a.cache.Enabled())
	}

	a.tracer, err = tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		a.tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}

	var index services.DeliveryIndex
	if cfg.Elastic.URL != "" {
		elasticClient, err := search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
		} else {
			index = elasticClient
		}
	}

	a.publisher = messaging.NoopPublisher{}
	if cfg.Azure.QueueConnStr != "" {
		a.bus, err = messaging.NewServiceBusClient(cfg.Azure, source)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Service Bus client, events will not be published")
		} else {
			a.publisher = a.bus
		}
	}

	datasetRepo := repositories.NewDatasetRepository(a.db, a.readOnlyDB)
	runRepo := repositories.NewAnalysisRepository(a.db, a.readOnlyDB)

	var reportCache services.Cache
	if a.cache.Enabled() {
		reportCache = a.cache
	}

	a.analyses = services.NewAnalysisService(datasetRepo, runRepo, reportCache, index, a.publisher, a.tracer, a.metrics, cfg.Analysis)
	a.datasets = services.NewDatasetService(datasetRepo, a.publisher, a.metrics)
	return a, nil
}

func pingDB(db *gorm.DB) bool {
	sqlDB, err := db.DB()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx) == nil
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Service Bus client")
		}
	}
	if err := a.cache.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close Redis")
	}
	a.tracer.Close()
	database.Close(a.db, a.readOnlyDB)
}
