package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/purchasing/internal/events"
	purchaseorderdomain "github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
	reconciliationdomain "github.com/smallbiznis/purchasing/internal/reconciliation/domain"
	reconciliationservice "github.com/smallbiznis/purchasing/internal/reconciliation/service"
	"github.com/spf13/cobra"
)

func recomputeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompute <order-id>...",
		Short: "Recompute the payment status of one or more orders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]snowflake.ID, 0, len(args))
			for _, arg := range args {
				id, err := snowflake.ParseString(arg)
				if err != nil || id == 0 {
					return fmt.Errorf("invalid order id %q", arg)
				}
				ids = append(ids, id)
			}

			var svc *reconciliationservice.Service
			return withApp(cmd, func(ctx context.Context) error {
				results, err := svc.RecomputeMany(ctx, ids, reconciliationdomain.TriggerManual)
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, result := range results {
					if encErr := enc.Encode(result); encErr != nil {
						return encErr
					}
				}
				return err
			}, &svc)
		},
	}
	return cmd
}

func nextNumberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next-number",
		Short: "Print the name the next generated order would get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc purchaseorderdomain.Service
			return withApp(cmd, func(ctx context.Context) error {
				name, err := svc.PreviewNextName(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
				return nil
			}, &svc)
		},
	}
}

func drainOutboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drain-outbox",
		Short: "Dispatch pending outbox events until none are left",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			maxBatches, err := cmd.Flags().GetInt("max-batches")
			if err != nil {
				return err
			}

			var dispatcher *events.Dispatcher
			return withApp(cmd, func(ctx context.Context) error {
				return drainOutbox(ctx, dispatcher, maxBatches, cmd.OutOrStdout())
			}, &dispatcher)
		},
	}
	cmd.Flags().Int("max-batches", 100, "Stop after this many batches")
	return cmd
}

type outboxDrainer interface {
	ProcessPending(ctx context.Context) (int, error)
	Unpublished(ctx context.Context) (int64, error)
}

// drainOutbox runs batches until one publishes nothing, then fails if any
// event is still unpublished.
func drainOutbox(ctx context.Context, d outboxDrainer, maxBatches int, out io.Writer) error {
	total := 0
	for i := 0; i < maxBatches; i++ {
		n, err := d.ProcessPending(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			total += n
			continue
		}

		fmt.Fprintf(out, "dispatched %d events\n", total)
		left, err := d.Unpublished(ctx)
		if err != nil {
			return err
		}
		if left > 0 {
			return fmt.Errorf("%d outbox events remain unpublished", left)
		}
		return nil
	}
	return errors.New("outbox still has pending events")
}
