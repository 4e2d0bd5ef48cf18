package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/schema"
	"github.com/daybook-app/daybook/internal/ui"
)

var flagCategorySentiment string

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage food and activity categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <food|activity> <name>",
	Short: "Add a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryType := schema.EntryType(args[0])
		if !entryType.Valid() {
			return fmt.Errorf("unknown category type %q (want food or activity)", args[0])
		}

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		c, err := st.AddCategory(entryType, args[1], schema.Sentiment(flagCategorySentiment))
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(c)
		}
		fmt.Printf("Added %s category %s (%s)\n", entryType, c.ID, c.Name)
		return nil
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list <food|activity>",
	Short: "List categories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryType := schema.EntryType(args[0])
		if !entryType.Valid() {
			return fmt.Errorf("unknown category type %q (want food or activity)", args[0])
		}

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		d := st.Snapshot()
		categories := d.FoodCategories
		if entryType == schema.EntryActivity {
			categories = d.ActivityCategories
		}

		if flagJSON {
			return printJSON(categories)
		}
		fmt.Println(ui.RenderCategoryTable(categories))
		return nil
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <food|activity> <id>",
	Short: "Delete a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryType := schema.EntryType(args[0])
		if !entryType.Valid() {
			return fmt.Errorf("unknown category type %q (want food or activity)", args[0])
		}

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		st.DeleteCategory(entryType, args[1])
		fmt.Printf("Deleted %s category %s\n", entryType, args[1])
		return nil
	},
}

func init() {
	categoryAddCmd.Flags().StringVarP(&flagCategorySentiment, "sentiment", "s", "neutral", "sentiment (positive, neutral, or limit)")

	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryDeleteCmd)
	rootCmd.AddCommand(categoryCmd)
}
