// Package schema defines the Daybook data model: the six entity collections,
// the exportable Dataset envelope, and the tombstone sets that track local
// deletions until they are confirmed remotely.
//
// All entities are flat records identified by a unique string id. Collections
// are maps keyed by id; display ordering is a presentation concern and is not
// encoded here. References between entities (entry -> item, item -> category)
// are by id only and are not eagerly validated: dangling references are
// tolerated and filtered defensively by consumers.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Version is the current dataset schema version marker.
// Imports accept only documents carrying this version.
const Version = 1

// EntryType distinguishes food log entries from activity log entries.
type EntryType string

const (
	EntryFood     EntryType = "food"
	EntryActivity EntryType = "activity"
)

// Valid reports whether the entry type is one of the known values.
func (t EntryType) Valid() bool {
	return t == EntryFood || t == EntryActivity
}

// Sentiment classifies a category or item for scoring purposes.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentLimit    Sentiment = "limit"
)

// Valid reports whether the sentiment is one of the known values.
func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentLimit
}

// Entry is a single logged occurrence of a food or activity item.
type Entry struct {
	ID string `json:"id"`

	// Type selects which item collection ItemID refers to.
	Type EntryType `json:"type"`

	// ItemID references an Item by id. The reference is not enforced;
	// an entry may outlive its item.
	ItemID string `json:"itemId"`

	// Date is the entry date in YYYY-MM-DD form, stored as provided.
	// No timezone normalization happens inside the store.
	Date string `json:"date"`

	// Time is the entry time in HH:MM form, or empty when not recorded.
	Time string `json:"time,omitempty"`

	Notes string `json:"notes,omitempty"`

	// CategoryOverrides replaces the item's category associations for this
	// entry only, when non-empty.
	CategoryOverrides []string `json:"categoryOverrides,omitempty"`
}

// Item is a food or activity the user can log entries against.
type Item struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type EntryType `json:"type"`

	// CategoryIDs associates the item with zero or more categories.
	CategoryIDs []string `json:"categoryIds,omitempty"`

	Sentiment Sentiment `json:"sentiment,omitempty"`

	// WeeklyLimit is scoring metadata carried opaquely by the store.
	// Zero means no limit.
	WeeklyLimit int `json:"weeklyLimit,omitempty"`
}

// Category groups items and carries a sentiment classification.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Sentiment Sentiment `json:"sentiment"`
}

// DashboardCard describes one card on the user's dashboard. Settings are an
// opaque payload interpreted by the presentation layer.
type DashboardCard struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Kind     string          `json:"kind"`
	Position int             `json:"position"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// Dataset is the full exportable/importable unit: the six collections plus
// the schema version marker.
type Dataset struct {
	Version            int                       `json:"version"`
	Entries            map[string]*Entry         `json:"entries"`
	FoodItems          map[string]*Item          `json:"foodItems"`
	ActivityItems      map[string]*Item          `json:"activityItems"`
	FoodCategories     map[string]*Category      `json:"foodCategories"`
	ActivityCategories map[string]*Category      `json:"activityCategories"`
	DashboardCards     map[string]*DashboardCard `json:"dashboardCards"`
}

// NewDataset returns an empty dataset at the current schema version.
func NewDataset() *Dataset {
	return &Dataset{
		Version:            Version,
		Entries:            make(map[string]*Entry),
		FoodItems:          make(map[string]*Item),
		ActivityItems:      make(map[string]*Item),
		FoodCategories:     make(map[string]*Category),
		ActivityCategories: make(map[string]*Category),
		DashboardCards:     make(map[string]*DashboardCard),
	}
}

// Clone returns a deep copy of the dataset. The copy shares nothing with the
// receiver, so callers may hold it across later mutations.
func (d *Dataset) Clone() *Dataset {
	out := NewDataset()
	out.Version = d.Version
	for id, e := range d.Entries {
		c := *e
		c.CategoryOverrides = append([]string(nil), e.CategoryOverrides...)
		out.Entries[id] = &c
	}
	for id, it := range d.FoodItems {
		c := *it
		c.CategoryIDs = append([]string(nil), it.CategoryIDs...)
		out.FoodItems[id] = &c
	}
	for id, it := range d.ActivityItems {
		c := *it
		c.CategoryIDs = append([]string(nil), it.CategoryIDs...)
		out.ActivityItems[id] = &c
	}
	for id, cat := range d.FoodCategories {
		c := *cat
		out.FoodCategories[id] = &c
	}
	for id, cat := range d.ActivityCategories {
		c := *cat
		out.ActivityCategories[id] = &c
	}
	for id, card := range d.DashboardCards {
		c := *card
		c.Settings = append(json.RawMessage(nil), card.Settings...)
		out.DashboardCards[id] = &c
	}
	return out
}

// Encode serializes the dataset to JSON suitable for export, local
// persistence, and the remote document body.
func (d *Dataset) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode dataset: %w", err)
	}
	return data, nil
}

// Counts returns the number of records in each collection, keyed by kind.
func (d *Dataset) Counts() map[Kind]int {
	return map[Kind]int{
		KindEntries:            len(d.Entries),
		KindFoodItems:          len(d.FoodItems),
		KindActivityItems:      len(d.ActivityItems),
		KindFoodCategories:     len(d.FoodCategories),
		KindActivityCategories: len(d.ActivityCategories),
		KindDashboardCards:     len(d.DashboardCards),
	}
}

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// ValidDate reports whether s is a YYYY-MM-DD date string.
func ValidDate(s string) bool { return dateRe.MatchString(s) }

// ValidTime reports whether s is an HH:MM time string.
func ValidTime(s string) bool { return timeRe.MatchString(s) }

// ParseDataset parses and structurally validates an exported dataset
// document. Validation is all-or-nothing: any structural problem fails the
// whole parse and the caller's state must remain untouched.
func ParseDataset(data []byte) (*Dataset, error) {
	var d Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("invalid dataset document: %w", err)
	}
	if d.Version != Version {
		return nil, fmt.Errorf("unsupported dataset version %d (want %d)", d.Version, Version)
	}

	// Replace nil collections with empty maps so downstream code never
	// needs a nil check, then verify map keys agree with record ids.
	if d.Entries == nil {
		d.Entries = make(map[string]*Entry)
	}
	if d.FoodItems == nil {
		d.FoodItems = make(map[string]*Item)
	}
	if d.ActivityItems == nil {
		d.ActivityItems = make(map[string]*Item)
	}
	if d.FoodCategories == nil {
		d.FoodCategories = make(map[string]*Category)
	}
	if d.ActivityCategories == nil {
		d.ActivityCategories = make(map[string]*Category)
	}
	if d.DashboardCards == nil {
		d.DashboardCards = make(map[string]*DashboardCard)
	}

	for id, e := range d.Entries {
		if e == nil || e.ID == "" || e.ID != id {
			return nil, fmt.Errorf("entries: record %q has missing or mismatched id", id)
		}
		if !e.Type.Valid() {
			return nil, fmt.Errorf("entries: record %q has invalid type %q", id, e.Type)
		}
		if !ValidDate(e.Date) {
			return nil, fmt.Errorf("entries: record %q has invalid date %q", id, e.Date)
		}
		if e.Time != "" && !ValidTime(e.Time) {
			return nil, fmt.Errorf("entries: record %q has invalid time %q", id, e.Time)
		}
	}
	if err := checkItems("foodItems", d.FoodItems); err != nil {
		return nil, err
	}
	if err := checkItems("activityItems", d.ActivityItems); err != nil {
		return nil, err
	}
	if err := checkCategories("foodCategories", d.FoodCategories); err != nil {
		return nil, err
	}
	if err := checkCategories("activityCategories", d.ActivityCategories); err != nil {
		return nil, err
	}
	for id, card := range d.DashboardCards {
		if card == nil || card.ID == "" || card.ID != id {
			return nil, fmt.Errorf("dashboardCards: record %q has missing or mismatched id", id)
		}
		if card.Title == "" {
			return nil, fmt.Errorf("dashboardCards: record %q has empty title", id)
		}
	}

	return &d, nil
}

func checkItems(collection string, items map[string]*Item) error {
	for id, it := range items {
		if it == nil || it.ID == "" || it.ID != id {
			return fmt.Errorf("%s: record %q has missing or mismatched id", collection, id)
		}
		if it.Name == "" {
			return fmt.Errorf("%s: record %q has empty name", collection, id)
		}
		if it.Sentiment != "" && !it.Sentiment.Valid() {
			return fmt.Errorf("%s: record %q has invalid sentiment %q", collection, id, it.Sentiment)
		}
	}
	return nil
}

func checkCategories(collection string, cats map[string]*Category) error {
	for id, c := range cats {
		if c == nil || c.ID == "" || c.ID != id {
			return fmt.Errorf("%s: record %q has missing or mismatched id", collection, id)
		}
		if c.Name == "" {
			return fmt.Errorf("%s: record %q has empty name", collection, id)
		}
		if !c.Sentiment.Valid() {
			return fmt.Errorf("%s: record %q has invalid sentiment %q", collection, id, c.Sentiment)
		}
	}
	return nil
}
