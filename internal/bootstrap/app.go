package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ragchat-api/internal/cache"
	"ragchat-api/internal/config"
	"ragchat-api/internal/logging"
	"ragchat-api/internal/metrics"
	"ragchat-api/internal/pkg/jwtutil"
	"ragchat-api/internal/pkg/password"
	mysqlClient "ragchat-api/internal/platform/mysql"
	rabbitmqClient "ragchat-api/internal/platform/rabbitmq"
	redisClient "ragchat-api/internal/platform/redis"
	"ragchat-api/internal/repository"
	"ragchat-api/internal/worker"
)

// App owns every long-lived resource of the API process.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Codec        *jwtutil.Codec
	Hasher       *password.BcryptHasher
	Registry     *prometheus.Registry
	AuthMetrics  *metrics.AuthMetrics
	HistoryCache *cache.HistoryCache
	Publisher    *rabbitmqClient.MessagePublisher

	MessageWorker *worker.MessagePersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := logging.New(cfg.App.Env, cfg.App.LogLevel)

	codec, err := jwtutil.NewCodec(jwtutil.Options{
		Secret:    cfg.Auth.JWTSecret,
		Algorithm: cfg.Auth.JWTAlgorithm,
		TTL:       cfg.Auth.TokenTTL(),
		Leeway:    cfg.Auth.Leeway(),
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build token codec failed: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		Config:      cfg,
		Logger:      logger,
		Codec:       codec,
		Hasher:      password.NewBcryptHasher(cfg.Auth.BcryptCost),
		Registry:    registry,
		AuthMetrics: metrics.NewAuthMetrics(registry),
		StartedAt:   time.Now(),
	}

	if err := app.connect(ctx); err != nil {
		if closeErr := app.Close(); closeErr != nil {
			logger.Warn("release partial resources failed", slog.Any("error", closeErr))
		}
		return nil, err
	}
	return app, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	db, err := mysqlClient.New(ctx, mysqlClient.Options{DSN: cfg.MySQLDSN()})
	if err != nil {
		return err
	}
	a.MySQL = db
	if err := mysqlClient.Migrate(ctx, db); err != nil {
		return err
	}

	redisCli, err := redisClient.New(ctx, redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	a.Redis = redisCli
	a.HistoryCache = cache.NewHistoryCache(redisCli, cfg.Redis.HistoryTTL(), cfg.Redis.HistoryDirtyTTL())

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MessagePersistQueue)
	if err != nil {
		return err
	}
	a.MQConn = mqConn
	a.Publisher = rabbitmqClient.NewMessagePublisher(mqConn, cfg.RabbitMQ.MessagePersistQueue)

	messageWorker := worker.NewMessagePersistWorker(
		mqConn,
		repository.NewMessageRepository(db),
		a.HistoryCache,
		cfg.RabbitMQ.MessagePersistQueue,
		a.Logger,
	)
	if err := messageWorker.Start(ctx); err != nil {
		return fmt.Errorf("start message worker failed: %w", err)
	}
	a.MessageWorker = messageWorker

	a.Logger.Info("dependencies ready",
		slog.String("mysql", cfg.MySQL.Host),
		slog.String("redis", cfg.Redis.Addr),
		slog.String("queue", cfg.RabbitMQ.MessagePersistQueue),
	)
	return nil
}

// Close stops the worker before closing the connections it depends on.
func (a *App) Close() error {
	var errs []error
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rabbitmq: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.MySQL != nil {
		if err := mysqlClient.Close(a.MySQL); err != nil {
			errs = append(errs, fmt.Errorf("close mysql: %w", err))
		}
	}
	return errors.Join(errs...)
}
