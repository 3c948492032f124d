package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/purchasing/internal/clock"
	"github.com/smallbiznis/purchasing/internal/config"
	"github.com/smallbiznis/purchasing/internal/events"
	"github.com/smallbiznis/purchasing/internal/lock"
	"github.com/smallbiznis/purchasing/internal/logger"
	"github.com/smallbiznis/purchasing/internal/migration"
	"github.com/smallbiznis/purchasing/internal/payment"
	"github.com/smallbiznis/purchasing/internal/purchaseorder"
	"github.com/smallbiznis/purchasing/internal/reconciliation"
	"github.com/smallbiznis/purchasing/internal/supplier"
	"github.com/smallbiznis/purchasing/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "purchasingctl",
		Short:         "Operator tooling for the purchasing service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Duration("timeout", time.Minute, "Overall deadline for the command")

	rootCmd.AddCommand(recomputeCmd())
	rootCmd.AddCommand(nextNumberCmd())
	rootCmd.AddCommand(drainOutboxCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp boots the domain modules without the HTTP server or the poller,
// populates targets and runs fn while the app is started.
func withApp(cmd *cobra.Command, fn func(ctx context.Context) error, targets ...any) error {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	app := fx.New(
		fx.NopLogger,
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		migration.Module,
		events.Module,
		supplier.Module,
		purchaseorder.Module,
		payment.Module,
		reconciliation.Module,
		fx.Populate(targets...),
	)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx)
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
