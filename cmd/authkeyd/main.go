// Package main provides the entry point for the authkeyd service with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/authkeyd/cmd/authkeyd/commands"
)

var version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "authkeyd",
		Usage:   "Authentication, authorization, and KEK custody service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "generate-session-secret",
				Usage: "Generate a signing secret for session and resource tokens",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunGenerateSessionSecret()
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
