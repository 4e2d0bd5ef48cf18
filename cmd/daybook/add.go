package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/schema"
	"github.com/daybook-app/daybook/internal/store"
	"github.com/daybook-app/daybook/internal/ui"
)

var (
	flagAddDate        string
	flagAddTime        string
	flagAddNotes       string
	flagAddCategories  []string
	flagAddInteractive bool
)

var addCmd = &cobra.Command{
	Use:   "add <food|activity> [item]",
	Short: "Add a log entry",
	Long: `Add a food or activity entry to the log.

The item argument is matched against item ids first, then item names
(case-insensitive). Dates accept YYYY-MM-DD or natural language:

  daybook add food coffee
  daybook add food coffee --date yesterday --time 08:30
  daybook add activity run --date "last monday" --notes "5k"
  daybook add food --interactive`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryType := schema.EntryType(args[0])
		if !entryType.Valid() {
			return fmt.Errorf("unknown entry type %q (want food or activity)", args[0])
		}

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		params := store.AddEntryParams{
			Type:              entryType,
			Notes:             flagAddNotes,
			CategoryOverrides: flagAddCategories,
		}

		if flagAddInteractive {
			if err := runAddForm(st, &params); err != nil {
				return err
			}
		} else {
			if len(args) < 2 {
				return fmt.Errorf("item argument required (or use --interactive)")
			}
			itemID, err := resolveItem(st.Snapshot(), entryType, args[1])
			if err != nil {
				return err
			}
			params.ItemID = itemID

			params.Date, err = parseDate(flagAddDate)
			if err != nil {
				return err
			}
			params.Time, err = parseClock(flagAddTime)
			if err != nil {
				return err
			}
		}

		entry, err := st.AddEntry(params)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(entry)
		}
		fmt.Printf("Added %s entry %s on %s\n", entry.Type, entry.ID, entry.Date)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&flagAddDate, "date", "d", "", "entry date (YYYY-MM-DD or natural language, default today)")
	addCmd.Flags().StringVarP(&flagAddTime, "time", "t", "", "entry time (HH:MM)")
	addCmd.Flags().StringVarP(&flagAddNotes, "notes", "n", "", "free-form notes")
	addCmd.Flags().StringSliceVarP(&flagAddCategories, "category", "c", nil, "category id overrides")
	addCmd.Flags().BoolVarP(&flagAddInteractive, "interactive", "i", false, "fill in the entry with an interactive form")

	rootCmd.AddCommand(addCmd)
}

// resolveItem matches ref against item ids, then names (case-insensitive).
func resolveItem(d *schema.Dataset, t schema.EntryType, ref string) (string, error) {
	items := d.FoodItems
	if t == schema.EntryActivity {
		items = d.ActivityItems
	}

	if _, ok := items[ref]; ok {
		return ref, nil
	}
	for id, item := range items {
		if strings.EqualFold(item.Name, ref) {
			return id, nil
		}
	}
	return "", fmt.Errorf("no %s item matching %q (add one with 'daybook item add')", t, ref)
}

// parseDate turns a flag value into YYYY-MM-DD. Empty means today; anything
// that is not already in canonical form goes through the natural language
// parser.
func parseDate(s string) (string, error) {
	if s == "" {
		return time.Now().Format("2006-01-02"), nil
	}
	if schema.ValidDate(s) {
		return s, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(s, time.Now())
	if err != nil || result == nil {
		return "", fmt.Errorf("could not understand date %q", s)
	}
	return result.Time.Format("2006-01-02"), nil
}

// parseClock validates an optional HH:MM value.
func parseClock(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if !schema.ValidTime(s) {
		return "", fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	return s, nil
}

// runAddForm fills params through an interactive form.
func runAddForm(st *store.Store, params *store.AddEntryParams) error {
	d := st.Snapshot()
	items := d.FoodItems
	if params.Type == schema.EntryActivity {
		items = d.ActivityItems
	}
	if len(items) == 0 {
		return fmt.Errorf("no %s items defined yet (add one with 'daybook item add')", params.Type)
	}

	opts := make([]huh.Option[string], 0, len(items))
	for id, item := range items {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", item.Name, ui.RenderSentiment(item.Sentiment)), id))
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Key < opts[j].Key })

	var date, clock string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Which %s?", params.Type)).
				Options(opts...).
				Value(&params.ItemID),
			huh.NewInput().
				Title("Date").
				Placeholder("today").
				Value(&date),
			huh.NewInput().
				Title("Time (HH:MM, optional)").
				Value(&clock),
			huh.NewInput().
				Title("Notes (optional)").
				Value(&params.Notes),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	var err error
	params.Date, err = parseDate(date)
	if err != nil {
		return err
	}
	params.Time, err = parseClock(clock)
	return err
}
