package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/models"
)

// newMigrateCommand applies schema migrations, the explicit operation
// replacing the teacher's doc/sql/StoryToVideo.sql exec-on-boot step.
func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := models.OpenMySQL(cfg.MySQL.DSN)
			if err != nil {
				return wrapStartup(fmt.Errorf("open mysql: %w", err))
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("migration complete", zap.Int("tables", len(models.AllTables())))
			return nil
		},
	}
}
