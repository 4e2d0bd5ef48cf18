package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/schema"
	"github.com/daybook-app/daybook/internal/ui"
)

var (
	flagListType string
	flagListDate string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List log entries",
	Long: `List log entries, newest first.

  daybook list                    # all entries
  daybook list --type food        # food entries only
  daybook list --date yesterday   # entries for one day`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		d := st.Snapshot()

		var date string
		if flagListDate != "" {
			date, err = parseDate(flagListDate)
			if err != nil {
				return err
			}
		}

		var entries []*schema.Entry
		for _, e := range d.Entries {
			if flagListType != "" && string(e.Type) != flagListType {
				continue
			}
			if date != "" && e.Date != date {
				continue
			}
			entries = append(entries, e)
		}

		if flagJSON {
			return printJSON(entries)
		}
		fmt.Println(ui.RenderEntryTable(d, entries))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset and sync configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		d := st.Snapshot()
		counts := d.Counts()
		pending := st.Tombstones().Total()

		configured := cfg.Remote.BaseURL != "" && cfg.Remote.Token != ""

		if flagJSON {
			return printJSON(map[string]interface{}{
				"counts":           counts,
				"pendingDeletions": pending,
				"remoteConfigured": configured,
				"remoteBaseURL":    cfg.Remote.BaseURL,
				"remoteDocumentID": cfg.Remote.DocumentID,
			})
		}

		fields := []string{
			ui.RenderField("Entries", fmt.Sprintf("%d", counts[schema.KindEntries])),
			ui.RenderField("Items", fmt.Sprintf("%d food, %d activity",
				counts[schema.KindFoodItems], counts[schema.KindActivityItems])),
			ui.RenderField("Categories", fmt.Sprintf("%d food, %d activity",
				counts[schema.KindFoodCategories], counts[schema.KindActivityCategories])),
			ui.RenderField("Dashboard cards", fmt.Sprintf("%d", counts[schema.KindDashboardCards])),
			ui.RenderField("Pending deletions", fmt.Sprintf("%d", pending)),
		}
		fmt.Print(ui.RenderHeader("Daybook", fields))

		if configured {
			fmt.Printf("\nRemote: %s (document %q)\n", cfg.Remote.BaseURL, cfg.Remote.DocumentID)
		} else {
			fmt.Println("\nRemote sync not configured. Run 'daybook login' to set it up.")
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&flagListType, "type", "T", "", "filter by entry type (food or activity)")
	listCmd.Flags().StringVarP(&flagListDate, "date", "d", "", "filter by date (YYYY-MM-DD or natural language)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
}
