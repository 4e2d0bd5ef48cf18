package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/schema"
	"github.com/daybook-app/daybook/internal/ui"
)

var (
	flagItemSentiment  string
	flagItemCategories []string
	flagItemLimit      int
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage food and activity items",
}

var itemAddCmd = &cobra.Command{
	Use:   "add <food|activity> <name>",
	Short: "Add an item",
	Long: `Add a food or activity item that entries can reference.

  daybook item add food "coffee" --sentiment limit --limit 7
  daybook item add activity "run" --sentiment positive`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryType := schema.EntryType(args[0])
		if !entryType.Valid() {
			return fmt.Errorf("unknown item type %q (want food or activity)", args[0])
		}

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		item, err := st.AddItem(entryType, args[1], flagItemCategories,
			schema.Sentiment(flagItemSentiment), flagItemLimit)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(item)
		}
		fmt.Printf("Added %s item %s (%s)\n", entryType, item.ID, item.Name)
		return nil
	},
}

var itemListCmd = &cobra.Command{
	Use:   "list <food|activity>",
	Short: "List items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryType := schema.EntryType(args[0])
		if !entryType.Valid() {
			return fmt.Errorf("unknown item type %q (want food or activity)", args[0])
		}

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		d := st.Snapshot()
		items := d.FoodItems
		if entryType == schema.EntryActivity {
			items = d.ActivityItems
		}

		if flagJSON {
			return printJSON(items)
		}
		fmt.Println(ui.RenderItemTable(items))
		return nil
	},
}

var itemDeleteCmd = &cobra.Command{
	Use:   "delete <food|activity> <id>",
	Short: "Delete an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryType := schema.EntryType(args[0])
		if !entryType.Valid() {
			return fmt.Errorf("unknown item type %q (want food or activity)", args[0])
		}

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		st.DeleteItem(entryType, args[1])
		fmt.Printf("Deleted %s item %s\n", entryType, args[1])
		return nil
	},
}

func init() {
	itemAddCmd.Flags().StringVarP(&flagItemSentiment, "sentiment", "s", "neutral", "sentiment (positive, neutral, or limit)")
	itemAddCmd.Flags().StringSliceVarP(&flagItemCategories, "category", "c", nil, "category ids")
	itemAddCmd.Flags().IntVarP(&flagItemLimit, "limit", "l", 0, "weekly limit (0 for none)")

	itemCmd.AddCommand(itemAddCmd)
	itemCmd.AddCommand(itemListCmd)
	itemCmd.AddCommand(itemDeleteCmd)
	rootCmd.AddCommand(itemCmd)
}
