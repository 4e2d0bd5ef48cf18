package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/remote"
)

var flagRestoreYes bool

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy the remote document to the backup slot",
	Long: `Copy the current local dataset to the remote backup document.

The backup is a verbatim snapshot; restore it later with
'daybook restore'.`,
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

		if err := rc.Backup(ctx, st.Snapshot()); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Backed up dataset to remote document %q\n", cfg.Remote.BackupID)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the dataset from the remote backup",
	Long: `Load the remote backup document and replace the local dataset with it.

Pending deletions are applied to the restored data so records deleted on
this machine stay deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagRestoreYes {
			var confirm bool
			if err := huh.NewConfirm().
				Title("Replace local data with the remote backup?").
				Value(&confirm).Run(); err != nil || !confirm {
				return err
			}
		}

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

		dataset, err := rc.RestoreFromBackup(ctx)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		st.ReplaceDataset(dataset)
		fmt.Println("Restored dataset from remote backup")
		return nil
	},
}

func init() {
	restoreCmd.Flags().BoolVarP(&flagRestoreYes, "yes", "y", false, "skip confirmation")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}
