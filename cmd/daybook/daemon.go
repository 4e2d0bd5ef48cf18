package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/daybook-app/daybook/internal/dashboard"
	"github.com/daybook-app/daybook/internal/engine"
)

var (
	flagDaemonInterval  time.Duration
	flagDaemonInbox     string
	flagDaemonDashboard bool
	flagDaemonPort      int
	flagDaemonLogFile   string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync daemon (foreground)",
	Long: `Run the sync daemon in the foreground.

The daemon syncs the local dataset to the remote document service after
every mutation (coalesced) and on a periodic interval. It can also watch
an inbox directory for exported dataset files and serve a WebSocket
dashboard for real-time observation.

  daybook daemon
  daybook daemon --interval 1m --inbox ~/daybook-inbox
  daybook daemon --dashboard --port 9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closeLog := daemonLogger()
		defer closeLog()

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		rc := newRemote(logger)
		if !rc.Configured() {
			fmt.Println("Remote sync not configured; daemon will only watch the inbox.")
		}

		interval := flagDaemonInterval
		if interval == 0 {
			interval = cfg.Daemon.SyncInterval
		}
		port := flagDaemonPort
		if port == 0 {
			port = cfg.Daemon.DashboardPort
		}
		inbox := flagDaemonInbox
		if inbox == "" {
			inbox = cfg.Daemon.InboxDir
		}

		var broadcaster engine.Broadcaster
		var server *dashboard.Server
		if flagDaemonDashboard {
			server = dashboard.NewServer(&dashboard.Config{
				Port:   port,
				Logger: logger,
			})
			if err := server.Start(); err != nil {
				return fmt.Errorf("failed to start dashboard: %w", err)
			}
			defer server.Stop()
			broadcaster = dashboard.NewHandler(server, logger)

			fmt.Printf("Dashboard: ws://localhost:%d/ws\n", port)
		}

		d, err := engine.NewDaemon(st, rc, &engine.DaemonConfig{
			SyncInterval: interval,
			InboxDir:     inbox,
			Logger:       logger,
		}, broadcaster)
		if err != nil {
			return err
		}

		fmt.Println("Daemon running. Press Ctrl+C to stop.")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return d.Start(ctx)
	},
}

// daemonLogger returns the daemon's logger, rotating through a log file
// when one is configured.
func daemonLogger() (*log.Logger, func()) {
	logFile := flagDaemonLogFile
	if logFile == "" {
		logFile = cfg.Daemon.LogFile
	}
	if logFile == "" {
		return log.New(os.Stderr, "[daemon] ", log.LstdFlags), func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}
	writer := io.MultiWriter(os.Stderr, rotator)
	return log.New(writer, "[daemon] ", log.LstdFlags), func() { rotator.Close() }
}

func init() {
	daemonCmd.Flags().DurationVar(&flagDaemonInterval, "interval", 0, "periodic sync interval (default from config)")
	daemonCmd.Flags().StringVar(&flagDaemonInbox, "inbox", "", "inbox directory to watch for dataset imports")
	daemonCmd.Flags().BoolVar(&flagDaemonDashboard, "dashboard", false, "serve the WebSocket dashboard")
	daemonCmd.Flags().IntVarP(&flagDaemonPort, "port", "p", 0, "dashboard port (default from config)")
	daemonCmd.Flags().StringVar(&flagDaemonLogFile, "log-file", "", "rotating log file (default from config)")

	rootCmd.AddCommand(daemonCmd)
}
