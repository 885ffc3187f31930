package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/bazi/pkg/config"
	"github.com/papercomputeco/bazi/pkg/eventstream"
	"github.com/papercomputeco/bazi/pkg/eventstream/kafka"
	"github.com/papercomputeco/bazi/pkg/storage"
	"github.com/papercomputeco/bazi/pkg/storage/inmemory"
	"github.com/papercomputeco/bazi/pkg/storage/postgres"
	"github.com/papercomputeco/bazi/pkg/storage/sqlite"
)

// OpenDriver returns the storage driver selected by cfg, or nil when
// archiving is disabled. dir is the resolved .bazi/ directory used for the
// default SQLite path.
func OpenDriver(ctx context.Context, cfg config.StorageConfig, dir string, logger *slog.Logger) (storage.Driver, error) {
	switch cfg.Driver {
	case "", "none":
		logger.Debug("reading archive disabled")
		return nil, nil

	case "memory":
		logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case "sqlite":
		path := config.SQLitePath(cfg.SQLitePath, dir)
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		logger.Info("using SQLite storage", "path", path)
		return driver, nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.New("storage.driver is postgres but storage.postgres_dsn is empty")
		}
		driver, err := postgres.NewDriver(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		logger.Info("using PostgreSQL storage")
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// OpenPublisher returns a Kafka publisher when brokers are configured, and
// nil otherwise.
func OpenPublisher(cfg config.EventsConfig, logger *slog.Logger) (eventstream.Publisher, error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nil, nil
	}

	pub, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   cfg.Topic,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("publishing reading events", "brokers", brokers, "topic", cfg.Topic)
	return pub, nil
}

// Archive bundles the storage driver, the event publisher and the pool that
// feeds them. Any of the three may be nil when disabled.
type Archive struct {
	Driver    storage.Driver
	Publisher eventstream.Publisher
	Pool      *Pool
}

// Open builds the archive described by cfg. The pool is only started when
// there is somewhere to send readings.
func Open(ctx context.Context, cfg *config.Config, dir string, logger *slog.Logger) (*Archive, error) {
	driver, err := OpenDriver(ctx, cfg.Storage, dir, logger)
	if err != nil {
		return nil, err
	}

	pub, err := OpenPublisher(cfg.Events, logger)
	if err != nil {
		if driver != nil {
			_ = driver.Close()
		}
		return nil, err
	}

	a := &Archive{Driver: driver, Publisher: pub}
	if driver == nil && pub == nil {
		return a, nil
	}

	a.Pool, err = NewPool(&Config{
		Driver:    driver,
		Publisher: pub,
		Logger:    logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	return a, nil
}

// Close drains the pool and then closes the publisher and the driver.
func (a *Archive) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
	}

	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Driver != nil {
		errs = append(errs, a.Driver.Close())
	}
	return errors.Join(errs...)
}
