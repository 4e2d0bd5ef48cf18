package schema

import "fmt"

// Kind names one of the six entity collections. It is used to address
// tombstone sets and to key collection statistics.
type Kind string

const (
	KindEntries            Kind = "entries"
	KindFoodItems          Kind = "foodItems"
	KindActivityItems      Kind = "activityItems"
	KindFoodCategories     Kind = "foodCategories"
	KindActivityCategories Kind = "activityCategories"
	KindDashboardCards     Kind = "dashboardCards"
)

// Kinds lists every collection kind in a fixed order.
var Kinds = []Kind{
	KindEntries,
	KindFoodItems,
	KindActivityItems,
	KindFoodCategories,
	KindActivityCategories,
	KindDashboardCards,
}

// Valid reports whether k names a known collection.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Tombstones records, per collection, the ids of entities that were deleted
// locally but whose deletion has not yet been confirmed in the remote
// document. An id present here is guaranteed absent from the corresponding
// live collection; that invariant is maintained by the store, not re-checked
// here.
//
// The zero value is not usable; construct with NewTombstones.
type Tombstones map[Kind]map[string]bool

// NewTombstones returns an empty tombstone set for every collection kind.
func NewTombstones() Tombstones {
	t := make(Tombstones, len(Kinds))
	for _, k := range Kinds {
		t[k] = make(map[string]bool)
	}
	return t
}

// Mark records id as deleted-but-unconfirmed for the given kind.
func (t Tombstones) Mark(kind Kind, id string) {
	if t[kind] == nil {
		t[kind] = make(map[string]bool)
	}
	t[kind][id] = true
}

// Clear removes exactly the given ids from the kind's tombstone set. Ids not
// present are ignored. This is called only after a remote write that
// incorporated those deletions succeeded.
func (t Tombstones) Clear(kind Kind, ids []string) {
	set := t[kind]
	for _, id := range ids {
		delete(set, id)
	}
}

// IDs returns the tombstoned ids for a kind. Order is unspecified.
func (t Tombstones) IDs(kind Kind) []string {
	set := t[kind]
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// Total returns the number of tombstoned ids across all collections.
func (t Tombstones) Total() int {
	n := 0
	for _, set := range t {
		n += len(set)
	}
	return n
}

// Clone returns a deep copy of the tombstone sets.
func (t Tombstones) Clone() Tombstones {
	out := NewTombstones()
	for kind, set := range t {
		for id := range set {
			out.Mark(kind, id)
		}
	}
	return out
}

// Validate checks that every key names a known collection kind. Used when
// loading persisted tombstones.
func (t Tombstones) Validate() error {
	for kind := range t {
		if !kind.Valid() {
			return fmt.Errorf("unknown tombstone collection %q", kind)
		}
	}
	return nil
}
