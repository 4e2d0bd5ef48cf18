package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/netclient"
	"github.com/daybook-app/daybook/internal/remote"
	"github.com/daybook-app/daybook/internal/storage"
	"github.com/daybook-app/daybook/internal/store"
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
)

// cfg holds the configuration loaded by PersistentPreRunE so all
// subcommands can use it.
var cfg *appConfig

var rootCmd = &cobra.Command{
	Use:   "daybook",
	Short: "Daybook is a local-first personal log tracker",
	Long: `Daybook tracks food and activity entries in a local dataset that syncs
to a remote document service when configured.

All commands work offline; deletions are remembered and reconciled with
the remote on the next successful sync.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		loaded, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: ~/.daybook)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: config dir)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
}

// resolveConfigDir returns the config directory: --config-dir flag,
// DAYBOOK_CONFIG_DIR env, then ~/.daybook.
func resolveConfigDir() (string, error) {
	if flagConfigDir != "" {
		return flagConfigDir, nil
	}
	if v := os.Getenv("DAYBOOK_CONFIG_DIR"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".daybook"), nil
}

// resolveDataDir returns the data directory: --data-dir flag, config
// data_dir, then the config directory itself.
func resolveDataDir() (string, error) {
	if flagDataDir != "" {
		return flagDataDir, nil
	}
	if cfg != nil && cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	return resolveConfigDir()
}

// openStore opens the local database, loads persisted state into a live
// store, and wires persistence back. The returned close function must be
// called before exit.
func openStore() (*store.Store, func(), error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, nil, err
	}

	db, err := storage.Open(filepath.Join(dataDir, "daybook.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local database: %w", err)
	}

	dataset, tombstones, err := db.LoadState()
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to load local state: %w", err)
	}

	st := store.New(dataset, tombstones, store.WithPersister(db))
	return st, func() { db.Close() }, nil
}

// newRemote builds the remote document client from config. The client
// reports unconfigured until login has stored credentials.
func newRemote(logger *log.Logger) *remote.Client {
	var opts []netclient.Option
	if logger != nil {
		opts = append(opts, netclient.WithLogger(logger))
	}
	return remote.New(remote.Config{
		BaseURL:    cfg.Remote.BaseURL,
		DocumentID: cfg.Remote.DocumentID,
		BackupID:   cfg.Remote.BackupID,
		Token:      cfg.Remote.Token,
	}, netclient.New(opts...))
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
