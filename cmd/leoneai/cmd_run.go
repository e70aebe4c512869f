package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"LeoneAI/internal/di"

	"github.com/spf13/cobra"
)

// runCmd starts feeds, pollers and the local API until interrupted
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the client with live feeds and the local API",
	RunE:  runApp,
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}
