package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/backstage/services/pickaudit/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, readOnlyDB, err := database.Connect(cfg.DB, gormLogLevel(cfg.Logging.Level))
		if err != nil {
			return err
		}
		defer database.Close(db, readOnlyDB)

		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info().Msg("Migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
