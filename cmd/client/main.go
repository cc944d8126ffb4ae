// Package main is the relaychat terminal client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"relaychat/internal/app/client"
	"relaychat/internal/pkg/logx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		url       string
		downloads string
		token     string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:          "relaychat",
		Short:        "Connect to a relaychat server from the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logx.InitGlobalLogger(true, logLevel)

			if err := os.MkdirAll(downloads, 0o755); err != nil {
				return fmt.Errorf("failed to create download directory: %w", err)
			}

			conn, err := client.Dial(cmd.Context(), url, token)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
				return err
			}

			client.PrintHelp(os.Stdout)

			return client.New(conn, downloads, os.Stdout).Run(cmd.Context(), os.Stdin)
		},
	}

	cmd.Flags().StringVar(&url, "url", "ws://127.0.0.1:1111/app", "relay WebSocket URL")
	cmd.Flags().StringVar(&downloads, "downloads", ".", "directory received files are saved to")
	cmd.Flags().StringVar(&token, "token", "", "session token from POST /api/auth/login")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	return cmd
}
