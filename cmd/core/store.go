package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	memory_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	mongo_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/mongo"
	mysql_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/resilient"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/metrics"
	"github.com/JoeShih716/go-bank-ledger/pkg/mongo"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

// openStore 依 store.driver 建立儲存層，外部資料庫會再包一層 circuit breaker
func openStore(ctx context.Context, cfg config.Config, logger *logging.Logger, collector *metrics.Collector) (usecase.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return openMemoryStore(cfg, logger)

	case config.DriverMySQL:
		client, err := mysql.NewClient(ctx, cfg.MySQL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		store := mysql_adapter.NewStore(client)
		if err := store.AutoMigrate(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("migrate mysql: %w", err)
		}
		logger.Info("using mysql store", zap.String("host", cfg.MySQL.Host), zap.String("db", cfg.MySQL.DBName))
		closer := func() {
			if err := client.Close(); err != nil {
				logger.Warn("close mysql", zap.Error(err))
			}
		}
		return resilient.NewStore("mysql", store, cfg.Store.Breaker, logger, collector), closer, nil

	case config.DriverMongo:
		client, err := mongo.NewClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := mongo_adapter.EnsureIndexes(ctx, client.Database()); err != nil {
			_ = client.Close(context.WithoutCancel(ctx))
			return nil, nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		logger.Info("using mongo store", zap.String("db", cfg.Mongo.Database))
		closer := func() {
			if err := client.Close(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("close mongo", zap.Error(err))
			}
		}
		store := mongo_adapter.NewStore(client.Database(), logger)
		return resilient.NewStore("mongo", store, cfg.Store.Breaker, logger, collector), closer, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openMemoryStore(cfg config.Config, logger *logging.Logger) (usecase.Store, func(), error) {
	if cfg.Store.WALPath == "" {
		logger.Warn("memory store without WAL, data is lost on restart")
		store, err := memory_adapter.NewStore(nil)
		return store, func() {}, err
	}

	walFile, err := wal.Open(cfg.Store.WALPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open wal: %w", err)
	}
	store, err := memory_adapter.NewStore(walFile)
	if err != nil {
		_ = walFile.Close()
		return nil, nil, fmt.Errorf("recover from wal: %w", err)
	}
	logger.Info("using memory store", zap.String("wal", walFile.Path()))
	closer := func() {
		if err := walFile.Close(); err != nil {
			logger.Warn("close wal", zap.Error(err))
		}
	}
	return store, closer, nil
}
