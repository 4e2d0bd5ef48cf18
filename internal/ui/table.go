package ui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/daybook-app/daybook/internal/schema"
)

var (
	headerRowStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cellStyle      = lipgloss.NewStyle()
)

// RenderEntryTable renders log entries sorted by date then time, newest
// first. Item names are resolved from the dataset; a missing item shows its
// raw id.
func RenderEntryTable(d *schema.Dataset, entries []*schema.Entry) string {
	if len(entries) == 0 {
		return "No entries found."
	}

	sorted := append([]*schema.Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].Time > sorted[j].Time
	})

	rows := make([][]string, len(sorted))
	for i, e := range sorted {
		rows[i] = []string{e.ID, e.Date, e.Time, string(e.Type), itemName(d, e), e.Notes}
	}
	return renderTable([]string{"ID", "Date", "Time", "Type", "Item", "Notes"}, rows)
}

// RenderItemTable renders items sorted by name.
func RenderItemTable(items map[string]*schema.Item) string {
	if len(items) == 0 {
		return "No items found."
	}

	sorted := make([]*schema.Item, 0, len(items))
	for _, item := range items {
		sorted = append(sorted, item)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	rows := make([][]string, len(sorted))
	for i, item := range sorted {
		limit := ""
		if item.WeeklyLimit > 0 {
			limit = fmt.Sprintf("%d/week", item.WeeklyLimit)
		}
		rows[i] = []string{item.ID, item.Name, RenderSentiment(item.Sentiment), limit}
	}
	return renderTable([]string{"ID", "Name", "Sentiment", "Limit"}, rows)
}

// RenderCategoryTable renders categories sorted by name.
func RenderCategoryTable(categories map[string]*schema.Category) string {
	if len(categories) == 0 {
		return "No categories found."
	}

	sorted := make([]*schema.Category, 0, len(categories))
	for _, c := range categories {
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	rows := make([][]string, len(sorted))
	for i, c := range sorted {
		rows[i] = []string{c.ID, c.Name, RenderSentiment(c.Sentiment)}
	}
	return renderTable([]string{"ID", "Name", "Sentiment"}, rows)
}

// RenderCardTable renders dashboard cards sorted by position.
func RenderCardTable(cards map[string]*schema.DashboardCard) string {
	if len(cards) == 0 {
		return "No dashboard cards found."
	}

	sorted := make([]*schema.DashboardCard, 0, len(cards))
	for _, c := range cards {
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	rows := make([][]string, len(sorted))
	for i, c := range sorted {
		rows[i] = []string{c.ID, fmt.Sprintf("%d", c.Position), c.Title, c.Kind}
	}
	return renderTable([]string{"ID", "Pos", "Title", "Kind"}, rows)
}

func itemName(d *schema.Dataset, e *schema.Entry) string {
	var items map[string]*schema.Item
	if e.Type == schema.EntryFood {
		items = d.FoodItems
	} else {
		items = d.ActivityItems
	}
	if item, ok := items[e.ItemID]; ok {
		return item.Name
	}
	return e.ItemID
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerRowStyle
			}
			return cellStyle
		})
	return t.Render()
}
