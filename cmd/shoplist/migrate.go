package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"shoplist-go/internal/config"
	"shoplist-go/internal/db"
	"shoplist-go/pkg/logger"
)

func newMigrateCmd(log logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations to the postgres store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(log)
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.StoreDriverPostgres {
				return fmt.Errorf("migrate only applies to STORE_DRIVER=%s, got %q", config.StoreDriverPostgres, cfg.StoreDriver)
			}

			dbConn, err := db.NewPostgres(cfg.DB, log)
			if err != nil {
				return err
			}
			sqlDB, err := dbConn.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			applied, err := db.Migrate(dbConn, log)
			if err != nil {
				return err
			}
			log.Info("db.migrate: done", "applied", applied)
			return nil
		},
	}
}
