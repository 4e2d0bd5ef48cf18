package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/engine"
	"github.com/daybook-app/daybook/internal/netclient"
	"github.com/daybook-app/daybook/internal/remote"
	"github.com/daybook-app/daybook/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push the local dataset to the remote",
	Long: `Run one sync cycle: push the local dataset to the remote document
service and confirm pending deletions.

The push overwrites the remote document with the local state (last writer
wins). Transient network failures are retried with backoff before the
cycle is reported as failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		rc := newRemote(nil)
		if !rc.Configured() {
			return remote.ErrNotConfigured
		}

		eng := engine.New(st, rc, &engine.Config{Logger: log.New(io.Discard, "", 0)})

		start := time.Now()
		if err := eng.SyncOnce(cmd.Context()); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Printf("%s in %v\n", ui.RenderSyncStatus("sync complete"), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset and sync configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusCmd.RunE(cmd, args)
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace local data with the remote document",
	Long: `Load the remote document and replace the local dataset with it.

Records deleted locally but not yet synced stay deleted: pending deletions
are applied to the incoming document so a pull cannot resurrect them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		rc := newRemote(nil)
		if !rc.Configured() {
			return remote.ErrNotConfigured
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		dataset, err := rc.Load(ctx)
		if err != nil {
			var httpErr *netclient.HTTPError
			if errors.As(err, &httpErr) && httpErr.Status == 404 {
				return fmt.Errorf("remote document does not exist yet (run 'daybook sync' first)")
			}
			return fmt.Errorf("pull failed: %w", err)
		}

		st.ReplaceDataset(dataset)

		counts := st.Snapshot().Counts()
		total := 0
		for _, n := range counts {
			total += n
		}
		fmt.Printf("Pulled %d records from remote\n", total)
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(pullCmd)
}
