package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/ledgersync/internal/backup"
	"github.com/MrJamesThe3rd/ledgersync/internal/config"
	"github.com/MrJamesThe3rd/ledgersync/internal/database"
	ledgerStore "github.com/MrJamesThe3rd/ledgersync/internal/ledger/store"
)

// app carries what subcommands share. The database is only opened by commands that need it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
	store  *ledgerStore.Store
}

func (a *app) open() (*ledgerStore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	db, err := database.New(a.cfg.ConnectionString(), a.cfg.Pool())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	a.db = db
	a.store = ledgerStore.New(db, nil)

	return a.store, nil
}

func (a *app) backups() (*backup.Service, error) {
	store, err := a.open()
	if err != nil {
		return nil, err
	}

	return backup.NewService(store, a.cfg.Backup.Dir, a.cfg.Backup.Keep, a.logger), nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "Maintain the ledgersync database and its backups",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	root.AddCommand(
		newMigrateCmd(a),
		newDuplicatesCmd(a),
		newBackupCmd(a),
		newTokenCmd(a),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
