// Package store implements the authoritative in-memory dataset: atomic
// mutations, a referentially stable snapshot, synchronous change
// notification, and the tombstone ledger that tracks deletions until the
// sync engine confirms them remotely.
//
// The store is the single source of truth for the rest of the program. Every
// mutation runs to completion under one mutex: the dataset change, the
// tombstone update, and local persistence commit together before the next
// mutation is accepted. Listeners fire synchronously once the mutex is
// released, so they may read the store. Nothing in the store ever touches
// the network.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/daybook-app/daybook/internal/schema"
)

// Persister saves the dataset and tombstone sets to local durable storage.
// It is called after every committed mutation while the store mutex is held,
// so implementations must not call back into the store.
type Persister interface {
	SaveState(dataset *schema.Dataset, tombstones schema.Tombstones) error
}

// Store holds the dataset and tombstone ledger.
type Store struct {
	mu         sync.Mutex
	dataset    *schema.Dataset
	tombstones schema.Tombstones

	// snapshot caches the last clone handed out so repeated Snapshot calls
	// between mutations return the same pointer, enabling cheap change
	// detection by observers.
	snapshot *schema.Dataset

	persister Persister
	logger    *log.Logger

	nextListener int
	listeners    map[int]func()
	order        []int

	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithPersister sets the local persistence sink. Without one the store is
// purely in-memory.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithLogger sets the store's logger. Defaults to stderr with a "[store] "
// prefix.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDGenerator overrides id generation. Tests use this for deterministic
// ids.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// New creates a store seeded with the given dataset and tombstones, either of
// which may be nil for empty defaults (fresh install, or corrupt local state
// treated as no prior data).
func New(dataset *schema.Dataset, tombstones schema.Tombstones, opts ...Option) *Store {
	if dataset == nil {
		dataset = schema.NewDataset()
	}
	if tombstones == nil {
		tombstones = schema.NewTombstones()
	}
	s := &Store{
		dataset:    dataset,
		tombstones: tombstones,
		listeners:  make(map[int]func()),
		newID:      uuid.NewString,
		logger:     log.New(os.Stderr, "[store] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener invoked synchronously after each committed
// mutation, in registration order. The store mutex is not held during the
// call, so listeners may call Snapshot or Tombstones. The returned function
// removes the listener.
func (s *Store) Subscribe(listener func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener
	s.order = append(s.order, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// Snapshot returns the current dataset by value. The result is a deep copy
// that callers must treat as read-only; between mutations repeated calls
// return the same pointer.
func (s *Store) Snapshot() *schema.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() *schema.Dataset {
	if s.snapshot == nil {
		s.snapshot = s.dataset.Clone()
	}
	return s.snapshot
}

// Tombstones returns a copy of the tombstone ledger for the sync engine to
// consume.
func (s *Store) Tombstones() schema.Tombstones {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tombstones.Clone()
}

// ClearTombstones removes exactly the given ids from the kind's tombstone
// set. Called by the sync engine after a remote write that incorporated those
// deletions succeeded, and by nothing else.
func (s *Store) ClearTombstones(kind schema.Kind, ids []string) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tombstones.Clear(kind, ids)
	s.persistLocked()
}

// commitLocked invalidates the cached snapshot, persists, and returns the
// current listeners in registration order. Must be called with the mutex
// held, after a successful mutation; the caller invokes notify with the
// result once the mutex is released, since a listener may re-enter the
// store (the daemon's store listener takes a snapshot).
func (s *Store) commitLocked() []func() {
	s.snapshot = nil
	s.persistLocked()
	fns := make([]func(), 0, len(s.order))
	for _, id := range s.order {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func (s *Store) notify(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveState(s.dataset, s.tombstones); err != nil {
		// Persistence failures must not corrupt or roll back the in-memory
		// state; the next mutation retries the full save.
		s.logger.Printf("Warning: failed to persist state: %v", err)
	}
}

// AddEntryParams carries the caller-supplied fields for a new log entry.
type AddEntryParams struct {
	Type              schema.EntryType
	ItemID            string
	Date              string
	Time              string
	Notes             string
	CategoryOverrides []string
}

// AddEntry constructs a new entry with a freshly generated id, inserts it,
// persists, and notifies. Returns the created entry.
func (s *Store) AddEntry(p AddEntryParams) (*schema.Entry, error) {
	if !p.Type.Valid() {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown entry type %q", p.Type)}
	}
	if p.ItemID == "" {
		return nil, &ValidationError{Field: "itemId", Reason: "must not be empty"}
	}
	if !schema.ValidDate(p.Date) {
		return nil, &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", p.Date)}
	}
	if p.Time != "" && !schema.ValidTime(p.Time) {
		return nil, &ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not HH:MM", p.Time)}
	}

	s.mu.Lock()
	entry := &schema.Entry{
		ID:                s.newID(),
		Type:              p.Type,
		ItemID:            p.ItemID,
		Date:              p.Date,
		Time:              p.Time,
		Notes:             p.Notes,
		CategoryOverrides: append([]string(nil), p.CategoryOverrides...),
	}
	s.dataset.Entries[entry.ID] = entry
	out := *entry
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
	return &out, nil
}

// UpdateEntry replaces the fields of an existing entry. The params are
// validated exactly as in AddEntry; unknown ids are a validation error,
// since unlike deletion, updating something that does not exist is a caller
// bug.
func (s *Store) UpdateEntry(id string, p AddEntryParams) (*schema.Entry, error) {
	if !p.Type.Valid() {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown entry type %q", p.Type)}
	}
	if p.ItemID == "" {
		return nil, &ValidationError{Field: "itemId", Reason: "must not be empty"}
	}
	if !schema.ValidDate(p.Date) {
		return nil, &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", p.Date)}
	}
	if p.Time != "" && !schema.ValidTime(p.Time) {
		return nil, &ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not HH:MM", p.Time)}
	}

	s.mu.Lock()
	entry, ok := s.dataset.Entries[id]
	if !ok {
		s.mu.Unlock()
		return nil, &ValidationError{Field: "id", Reason: fmt.Sprintf("entry %q does not exist", id)}
	}
	entry.Type = p.Type
	entry.ItemID = p.ItemID
	entry.Date = p.Date
	entry.Time = p.Time
	entry.Notes = p.Notes
	entry.CategoryOverrides = append([]string(nil), p.CategoryOverrides...)
	out := *entry
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
	return &out, nil
}

// DeleteEntry removes the entry if present and records its id in the entries
// tombstone set. Deleting a non-existent id is a silent no-op so duplicate
// delete calls are tolerated.
func (s *Store) DeleteEntry(id string) {
	s.mu.Lock()
	if _, ok := s.dataset.Entries[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.dataset.Entries, id)
	s.tombstones.Mark(schema.KindEntries, id)
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
}

// itemCollection resolves the live map and tombstone kind for an item type.
func (s *Store) itemCollection(t schema.EntryType) (map[string]*schema.Item, schema.Kind) {
	if t == schema.EntryActivity {
		return s.dataset.ActivityItems, schema.KindActivityItems
	}
	return s.dataset.FoodItems, schema.KindFoodItems
}

func (s *Store) categoryCollection(t schema.EntryType) (map[string]*schema.Category, schema.Kind) {
	if t == schema.EntryActivity {
		return s.dataset.ActivityCategories, schema.KindActivityCategories
	}
	return s.dataset.FoodCategories, schema.KindFoodCategories
}

// AddItem inserts a new food or activity item.
func (s *Store) AddItem(t schema.EntryType, name string, categoryIDs []string, sentiment schema.Sentiment, weeklyLimit int) (*schema.Item, error) {
	if !t.Valid() {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown item type %q", t)}
	}
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if sentiment != "" && !sentiment.Valid() {
		return nil, &ValidationError{Field: "sentiment", Reason: fmt.Sprintf("unknown sentiment %q", sentiment)}
	}

	s.mu.Lock()
	items, _ := s.itemCollection(t)
	item := &schema.Item{
		ID:          s.newID(),
		Name:        name,
		Type:        t,
		CategoryIDs: append([]string(nil), categoryIDs...),
		Sentiment:   sentiment,
		WeeklyLimit: weeklyLimit,
	}
	items[item.ID] = item
	out := *item
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
	return &out, nil
}

// UpdateItem replaces the mutable fields of an existing item.
func (s *Store) UpdateItem(t schema.EntryType, id, name string, categoryIDs []string, sentiment schema.Sentiment, weeklyLimit int) (*schema.Item, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if sentiment != "" && !sentiment.Valid() {
		return nil, &ValidationError{Field: "sentiment", Reason: fmt.Sprintf("unknown sentiment %q", sentiment)}
	}

	s.mu.Lock()
	items, _ := s.itemCollection(t)
	item, ok := items[id]
	if !ok {
		s.mu.Unlock()
		return nil, &ValidationError{Field: "id", Reason: fmt.Sprintf("item %q does not exist", id)}
	}
	item.Name = name
	item.CategoryIDs = append([]string(nil), categoryIDs...)
	item.Sentiment = sentiment
	item.WeeklyLimit = weeklyLimit
	out := *item
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
	return &out, nil
}

// DeleteItem removes the item if present and tombstones its id. Idempotent.
// Entries referencing the item are left alone; dangling references are
// filtered by consumers.
func (s *Store) DeleteItem(t schema.EntryType, id string) {
	s.mu.Lock()
	items, kind := s.itemCollection(t)
	if _, ok := items[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(items, id)
	s.tombstones.Mark(kind, id)
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
}

// AddCategory inserts a new food or activity category.
func (s *Store) AddCategory(t schema.EntryType, name string, sentiment schema.Sentiment) (*schema.Category, error) {
	if !t.Valid() {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown category type %q", t)}
	}
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !sentiment.Valid() {
		return nil, &ValidationError{Field: "sentiment", Reason: fmt.Sprintf("unknown sentiment %q", sentiment)}
	}

	s.mu.Lock()
	cats, _ := s.categoryCollection(t)
	cat := &schema.Category{
		ID:        s.newID(),
		Name:      name,
		Sentiment: sentiment,
	}
	cats[cat.ID] = cat
	out := *cat
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
	return &out, nil
}

// UpdateCategory replaces the mutable fields of an existing category.
func (s *Store) UpdateCategory(t schema.EntryType, id, name string, sentiment schema.Sentiment) (*schema.Category, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !sentiment.Valid() {
		return nil, &ValidationError{Field: "sentiment", Reason: fmt.Sprintf("unknown sentiment %q", sentiment)}
	}

	s.mu.Lock()
	cats, _ := s.categoryCollection(t)
	cat, ok := cats[id]
	if !ok {
		s.mu.Unlock()
		return nil, &ValidationError{Field: "id", Reason: fmt.Sprintf("category %q does not exist", id)}
	}
	cat.Name = name
	cat.Sentiment = sentiment
	out := *cat
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
	return &out, nil
}

// DeleteCategory removes the category if present and tombstones its id.
// Idempotent.
func (s *Store) DeleteCategory(t schema.EntryType, id string) {
	s.mu.Lock()
	cats, kind := s.categoryCollection(t)
	if _, ok := cats[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(cats, id)
	s.tombstones.Mark(kind, id)
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
}

// AddDashboardCard inserts a new dashboard card.
func (s *Store) AddDashboardCard(title, kind string, position int, settings json.RawMessage) (*schema.DashboardCard, error) {
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if kind == "" {
		return nil, &ValidationError{Field: "kind", Reason: "must not be empty"}
	}

	s.mu.Lock()
	card := &schema.DashboardCard{
		ID:       s.newID(),
		Title:    title,
		Kind:     kind,
		Position: position,
		Settings: append(json.RawMessage(nil), settings...),
	}
	s.dataset.DashboardCards[card.ID] = card
	out := *card
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
	return &out, nil
}

// DeleteDashboardCard removes the card if present and tombstones its id.
// Idempotent.
func (s *Store) DeleteDashboardCard(id string) {
	s.mu.Lock()
	if _, ok := s.dataset.DashboardCards[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.dataset.DashboardCards, id)
	s.tombstones.Mark(schema.KindDashboardCards, id)
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
}

// Import parses and validates the payload; on success it atomically replaces
// the entire dataset and clears all tombstones, since an import supersedes
// local deletion history. On failure the prior state is untouched.
func (s *Store) Import(data []byte) error {
	parsed, err := schema.ParseDataset(data)
	if err != nil {
		return &ImportError{Err: err}
	}

	s.mu.Lock()
	s.dataset = parsed
	s.tombstones = schema.NewTombstones()
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
	return nil
}

// Export returns the canonical JSON document for the current dataset.
func (s *Store) Export() ([]byte, error) {
	return s.Snapshot().Encode()
}

// ReplaceDataset swaps in a dataset fetched from the remote or restored from
// a backup, keeping the tombstone ledger intact so local deletions are not
// resurrected by a stale remote copy.
func (s *Store) ReplaceDataset(d *schema.Dataset) {
	s.mu.Lock()
	clone := d.Clone()
	// Tombstoned ids stay deleted no matter what the incoming copy holds.
	for id := range s.tombstones[schema.KindEntries] {
		delete(clone.Entries, id)
	}
	for id := range s.tombstones[schema.KindFoodItems] {
		delete(clone.FoodItems, id)
	}
	for id := range s.tombstones[schema.KindActivityItems] {
		delete(clone.ActivityItems, id)
	}
	for id := range s.tombstones[schema.KindFoodCategories] {
		delete(clone.FoodCategories, id)
	}
	for id := range s.tombstones[schema.KindActivityCategories] {
		delete(clone.ActivityCategories, id)
	}
	for id := range s.tombstones[schema.KindDashboardCards] {
		delete(clone.DashboardCards, id)
	}

	s.dataset = clone
	fns := s.commitLocked()
	s.mu.Unlock()

	s.notify(fns)
}
