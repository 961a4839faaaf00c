package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scimkit/scimserver/internal/config"
	"github.com/scimkit/scimserver/internal/repository"
)

var (
	cfg *config.Config
	db  *repository.Database
)

var rootCmd = &cobra.Command{
	Use:   "scimserver",
	Short: "SCIM 2.0 provisioning server management tool",
	Long:  `Runs the SCIM HTTP server and manages its database schema.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err = repository.NewDatabase(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(serveCmd)
}

func exitWithError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
