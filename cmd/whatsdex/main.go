// Package main is the entrypoint for the WhatsDeX WhatsApp bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=v1.0.0".
var Version = "dev"

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		exitCode = 1
	}
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "whatsdex",
		Short:         "WhatsDeX WhatsApp bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./config.yaml when present)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Connect to WhatsApp and serve messages (default)",
			RunE:  runE,
		},
		migrateCmd(),
		commandsCmd(),
		versionCmd(),
	)
	return root
}

func runE(cmd *cobra.Command, _ []string) error {
	if code := run(cmd.Context()); code != 0 {
		return fmt.Errorf("exited with code %d", code)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "whatsdex %s\n", Version)
		},
	}
}
