package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/crudkit/internal/catalog"
	"github.com/odyssey-erp/crudkit/internal/platform/db"
)

type dbConfig struct {
	DSN            string        `envconfig:"PG_DSN"`
	MaxConns       int32         `envconfig:"PG_MAX_CONNS" default:"4"`
	ConnectTimeout time.Duration `envconfig:"PG_CONNECT_TIMEOUT" default:"5s"`
}

// openPool connects without the web settings, so migrate and seed need neither Redis nor secrets.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	var cfg dbConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	pool, err := db.New(ctx, db.Options{DSN: cfg.DSN, MaxConns: cfg.MaxConns, ConnectTimeout: cfg.ConnectTimeout})
	if err != nil {
		return nil, err
	}
	if err := catalog.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog tables in PG_DSN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "catalog schema is up to date")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty catalog in PG_DSN with sample rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			stores, err := catalog.NewPostgresStores(pool)
			if err != nil {
				return err
			}
			n, err := catalog.Seed(cmd.Context(), stores)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog already has authors; nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d books\n", n)
			return nil
		},
	}
}
