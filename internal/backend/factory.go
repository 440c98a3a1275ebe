// Package backend builds the local and remote ledger stores selected by
// configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/log"
	"budget/internal/ports"
	"budget/internal/remote/amqp"
	"budget/internal/remote/google"
	"budget/internal/remote/memory"
	"budget/internal/remote/redis"
	"budget/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(log.FieldComponent, log.ComponentBackend),
	}
}

type closer interface{ Close() error }

// Create implements Factory.Create. On error every store opened so far is
// closed again.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []closer
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	local, c, err := f.createLocal(config)
	if err != nil {
		return nil, err
	}
	if c != nil {
		closers = append(closers, c)
	}

	remote, c, err := f.createRemote(ctx, config)
	if err != nil {
		if cerr := cleanup(); cerr != nil {
			f.logger.Warn("Cleanup after failed backend creation", log.FieldError, cerr)
		}
		return nil, err
	}
	if c != nil {
		closers = append(closers, c)
	}

	return &Result{Local: local, Remote: remote, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) createLocal(config Config) (ports.LocalStore, closer, error) {
	switch config.Local {
	case SQLiteLocal:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath, config.Profile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite store",
			"db_path", config.SQLiteDBPath,
			"profile", config.Profile)
		return store, store, nil
	case FileLocal:
		store, err := storage.NewFileStore(config.LedgerFilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		f.logger.Info("Initialized file store", "path", config.LedgerFilePath)
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported local backend: %s", config.Local)
	}
}

func (f *DefaultFactory) createRemote(ctx context.Context, config Config) (ports.RemoteStore, closer, error) {
	switch config.Remote {
	case NoRemote:
		f.logger.Info("Remote sync disabled")
		return nil, nil, nil
	case MemoryRemote:
		store := memory.New()
		f.logger.Info("Initialized in-process remote")
		return store, store, nil
	case RedisRemote:
		store, err := redis.NewFromURL(ctx, config.RedisURL, config.RedisKeyPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Redis remote: %w", err)
		}
		f.logger.Info("Initialized Redis remote", "prefix", config.RedisKeyPrefix)
		return store, store, nil
	case AMQPRemote:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize AMQP remote: %w", err)
		}
		f.logger.Info("Initialized AMQP remote", "exchange", config.AMQPExchange)
		return client, client, nil
	case SheetsRemote:
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleSheetName,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
			PollInterval:       config.SheetsPollInterval,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Google Sheets remote: %w", err)
		}
		f.logger.Info("Initialized Google Sheets remote", "sheet", config.GoogleSheetName)
		return client, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported remote backend: %s", config.Remote)
	}
}
