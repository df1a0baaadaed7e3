package main

import (
	"github.com/spf13/cobra"

	"warden/cmd/internal/app"
)

// NewRootCmd creates the root command for the warden CLI.
func NewRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "warden",
		Short: "warden - credential and session lifecycle service",
		Long: `warden registers identities, exchanges credentials for opaque
bearer tokens and revokes them on logout.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.LoadDotEnv(envFile)
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before reading WARDEN_* variables")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewRevocationsCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API on WARDEN_HTTP_ADDR. Without WARDEN_DATABASE_URL
all state is kept in memory and lost on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context())
		},
	}
}
