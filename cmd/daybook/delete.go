package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var flagDeleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <entry-id>...",
	Short: "Delete log entries",
	Long: `Delete one or more log entries by id.

Deletions are remembered locally and propagated to the remote on the next
sync, so a deleted entry cannot be resurrected by a concurrent device.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagDeleteYes {
			var confirm bool
			msg := fmt.Sprintf("Delete %d entries?", len(args))
			if len(args) == 1 {
				msg = fmt.Sprintf("Delete entry %s?", args[0])
			}
			if err := huh.NewConfirm().Title(msg).Value(&confirm).Run(); err != nil || !confirm {
				return err
			}
		}

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		for _, id := range args {
			st.DeleteEntry(id)
		}

		fmt.Printf("Deleted %d entries\n", len(args))
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&flagDeleteYes, "yes", "y", false, "skip confirmation")
	rootCmd.AddCommand(deleteCmd)
}
