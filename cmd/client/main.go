package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirerelay/internal/client"
	"github.com/vovakirdan/wirerelay/internal/log"
)

var (
	serverAddr  string
	dialTimeout time.Duration
	noColor     bool
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:          "wirerelay-client",
	Short:        "Interactive client for the wirerelay server",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.NewWithWriter(logLevel, os.Stderr)

		dialer := net.Dialer{Timeout: dialTimeout}
		conn, err := dialer.DialContext(cmd.Context(), "tcp", serverAddr)
		if err != nil {
			return fmt.Errorf("connection failed: %w", err)
		}
		fmt.Println("Connected to server on " + serverAddr)

		c := client.New(conn, os.Stdout, logger, client.Options{
			Color: !noColor && !color.NoColor,
		})
		return c.Run(cmd.Context(), os.Stdin)
	},
}

func init() {
	rootCmd.Flags().StringVar(&serverAddr, "addr", "127.0.0.1:9910", "Server address")
	rootCmd.Flags().DurationVar(&dialTimeout, "dial-timeout", 5*time.Second, "Connection timeout")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level for client diagnostics")
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
