package main

import (
	"context"
	"fmt"
	"os"

	"LeoneAI/internal/di"
	"LeoneAI/pkg/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "leoneai",
	Short:         "LeoneAI trading client",
	Long:          "Headless LeoneAI client: session management, live market feeds and a local JSON API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/leoneai.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath, envFile)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

// withConsole builds the CLI dependencies, restores the persisted session
// and runs fn.
func withConsole(ctx context.Context, fn func(ctx context.Context, c *di.Console) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	console, cleanup, err := di.InitializeConsole(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()
	defer console.Session.Close()

	if err := console.Session.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return fn(ctx, console)
}
