package migration

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/journalpay/internal/catalog"
	"github.com/smallbiznis/journalpay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
		log = log.Named("migration")
		if !cfg.DBAutoMigrate {
			return nil
		}
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if _, err := RunMigrations(sqlDB, log); err != nil {
				return err
			}
		} else {
			log.Warn("embedded migrations only target postgres, skipping", zap.String("db_type", cfg.DBType))
		}
		return catalog.EnsureServices(context.Background(), conn, genID)
	}),
)
