package app

import (
	"context"

	"github.com/fiffu/manzil/config"
	"github.com/fiffu/manzil/lib/storage"
	"github.com/fiffu/manzil/lib/subscription"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Sugar().Panicw("failed to connect database", "path", cfg.DatabasePath, "err", err)
	}
	log.Info("Database started")

	log.Info("Starting migrations")
	if err := migrate(db); err != nil {
		log.Sugar().Panicw("migrations failed", "err", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&storage.Entry{},
		&subscription.Reconciliation{},
	)
}

func NewClientStorage(db *gorm.DB) *storage.ClientStorage {
	return storage.NewClientStorage(db)
}

func NewLedger(db *gorm.DB) *subscription.Ledger {
	return subscription.NewLedger(db)
}
