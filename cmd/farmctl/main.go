package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"farm-store/config"
	"farm-store/internal/docstore"
	"farm-store/internal/redisclient"
	"farm-store/internal/store"
	"farm-store/internal/util"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "farmctl",
		Short:         "Operator tools for the farm store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createUserCmd())
	rootCmd.AddCommand(exportOrdersCmd())
	rootCmd.AddCommand(showOrderCmd())
	rootCmd.AddCommand(trackingLinkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs: configuration and the ledger.
type env struct {
	cfg   *config.Config
	store *store.Store
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, store: db}, nil
}

func (e *env) Close() {
	e.store.Close()
	util.SyncLogger()
}

// docs opens the configured document backend. The returned func releases it.
func (e *env) docs() (docstore.Store, func(), error) {
	if e.cfg.Store.Backend == "redis" {
		rc, err := redisclient.NewClient(e.cfg.Redis.Addr, e.cfg.Redis.Password, e.cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return rc, func() { rc.Close() }, nil
	}
	fs, err := docstore.NewFileStore(e.cfg.Store.Dir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := e.store.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied")
			return nil
		},
	}
}
