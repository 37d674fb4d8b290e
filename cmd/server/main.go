package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirerelay/internal/app"
	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/log"
)

var (
	configFile string
	overrides  config.Config
)

// rootCmd starts the relay when called without subcommands.
var rootCmd = &cobra.Command{
	Use:          "wirerelay",
	Short:        "Text chat relay with nicknames and channels",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&overrides.Addr, "addr", "", "TCP listen address")
	rootCmd.PersistentFlags().StringVar(&overrides.HTTPAddr, "http-addr", "", "Admin HTTP listen address")
	rootCmd.PersistentFlags().StringVar(&overrides.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	bootLog := log.New("info")

	cfg, path, err := config.Load(bootLog, configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.UpdateFrom(overrides)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(cfg.LogLevel)
	logger.Info().
		Str("config", path).
		Str("addr", cfg.Addr).
		Str("http_addr", cfg.HTTPAddr).
		Msg("starting wirerelay")

	if err := app.New(cfg, logger).Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
