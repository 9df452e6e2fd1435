package main

import (
	"github.com/spf13/cobra"

	"titanhub/internal/config"
	"titanhub/internal/db"
	"titanhub/internal/services"
	"titanhub/internal/store/gormstore"
)

func newMigrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage != config.StoragePostgres {
				return errNeedsPostgres("migrate")
			}
			log := newLogger(cfg)
			conn, err := db.Open(cmd.Context(), db.Options{
				DSN:          cfg.DatabaseURL,
				ConnectTries: cfg.ConnectTries,
				SlowQuery:    cfg.SlowQuery,
			}, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(conn) }()
			if err := db.Migrate(conn); err != nil {
				return err
			}
			log.Info("migration complete")
			return nil
		},
	}
}

// newReconcileCmd recounts every discussion's comments once, for use after
// manual data fixes.
func newReconcileCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute all discussion comment counts and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage != config.StoragePostgres {
				return errNeedsPostgres("reconcile")
			}
			log := newLogger(cfg)
			conn, err := db.Open(cmd.Context(), db.Options{
				DSN:          cfg.DatabaseURL,
				ConnectTries: cfg.ConnectTries,
				SlowQuery:    cfg.SlowQuery,
			}, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(conn) }()
			n, err := services.ReconcileAll(cmd.Context(), gormstore.New(conn))
			if err != nil {
				return err
			}
			log.Info("comment counts reconciled", "discussions", n)
			return nil
		},
	}
}
