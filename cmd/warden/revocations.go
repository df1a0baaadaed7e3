package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"warden/cmd/internal/app"
)

// NewRevocationsCmd creates the revocations command group.
func NewRevocationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revocations",
		Short: "Maintain the token revocation store",
	}

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete revocation entries whose window has closed",
		Long: `Delete revocation entries that expired more than --older-than ago.
The redis backend expires entries by TTL and needs no purge. The memory
backend is private to a running server, which purges it on its own schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.ResolvedRevocationBackend() == app.RevocationMemory {
				cmd.Printf("backend %q lives inside the server process; nothing to purge from here\n", app.RevocationMemory)
				return nil
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			stores, err := app.OpenStores(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer stores.Close()

			if stores.Purger == nil {
				cmd.Printf("backend %q expires entries itself; nothing to purge\n", stores.Backend)
				return nil
			}

			before := time.Now().Add(-olderThan)
			n, err := app.PurgeRevocations(ctx, stores.Purger, before, nil, log)
			if err != nil {
				return err
			}
			cmd.Printf("purged %d revocation entries expired before %s\n", n, before.UTC().Format(time.RFC3339))
			return nil
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 0, "only purge entries expired at least this long ago")
	cmd.AddCommand(purge)

	return cmd
}
