package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the dataset as JSON",
	Long: `Export the full dataset as JSON to a file, or stdout if no file is
given. The export can be imported on another machine with 'daybook import'
or dropped into a running daemon's inbox directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		data, err := st.Export()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		fmt.Printf("Exported dataset to %s\n", args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a dataset from JSON",
	Long: `Replace the local dataset with the contents of an exported JSON file.

The import is all or nothing: if the file fails validation, the local
dataset is left untouched. Pending deletions are discarded because the
imported file is taken as the new authoritative state.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read import file: %w", err)
		}

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := st.Import(data); err != nil {
			var impErr *store.ImportError
			if errors.As(err, &impErr) {
				return fmt.Errorf("import rejected, local data unchanged: %w", impErr.Err)
			}
			return err
		}

		counts := st.Snapshot().Counts()
		total := 0
		for _, n := range counts {
			total += n
		}
		fmt.Printf("Imported %d records from %s\n", total, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
