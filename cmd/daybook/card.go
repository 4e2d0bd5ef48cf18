package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/ui"
)

var (
	flagCardKind     string
	flagCardPosition int
	flagCardSettings string
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Manage dashboard cards",
}

var cardAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a dashboard card",
	Long: `Add a card to the dashboard layout.

  daybook card add "This week" --kind weekly-summary --position 0
  daybook card add "Coffee" --kind item-counter --settings '{"itemId":"abc"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var settings json.RawMessage
		if flagCardSettings != "" {
			if !json.Valid([]byte(flagCardSettings)) {
				return fmt.Errorf("settings must be valid JSON")
			}
			settings = json.RawMessage(flagCardSettings)
		}

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		card, err := st.AddDashboardCard(args[0], flagCardKind, flagCardPosition, settings)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(card)
		}
		fmt.Printf("Added card %s (%s)\n", card.ID, card.Title)
		return nil
	},
}

var cardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dashboard cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		cards := st.Snapshot().DashboardCards
		if flagJSON {
			return printJSON(cards)
		}
		fmt.Println(ui.RenderCardTable(cards))
		return nil
	},
}

var cardDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a dashboard card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		st.DeleteDashboardCard(args[0])
		fmt.Printf("Deleted card %s\n", args[0])
		return nil
	},
}

func init() {
	cardAddCmd.Flags().StringVarP(&flagCardKind, "kind", "k", "weekly-summary", "card kind")
	cardAddCmd.Flags().IntVarP(&flagCardPosition, "position", "p", 0, "layout position")
	cardAddCmd.Flags().StringVar(&flagCardSettings, "settings", "", "card settings as JSON")

	cardCmd.AddCommand(cardAddCmd)
	cardCmd.AddCommand(cardListCmd)
	cardCmd.AddCommand(cardDeleteCmd)
	rootCmd.AddCommand(cardCmd)
}
