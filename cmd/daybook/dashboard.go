package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start the WebSocket dashboard server",
	Long: `Start a standalone WebSocket dashboard server.

The server broadcasts sync and dataset events to connected clients. It is
normally started by the daemon with --dashboard; this command runs it on
its own, which is mainly useful for client development.

WebSocket messages:
- status_change: sync engine changed phase (idle, syncing, error)
- store_change: the dataset was mutated
- sync_complete: a sync cycle finished

Connect with a WebSocket client:
  ws://localhost:8321/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := flagDashboardPort
		if port == 0 {
			port = cfg.Daemon.DashboardPort
		}

		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
		})

		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}

		fmt.Printf("Dashboard server started on http://localhost:%d\n", port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		return server.Stop()
	},
}

var flagDashboardPort int

func init() {
	dashboardCmd.Flags().IntVarP(&flagDashboardPort, "port", "p", 0, "port to listen on (default from config)")

	rootCmd.AddCommand(dashboardCmd)
}
