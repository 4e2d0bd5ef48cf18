package storage

import (
	"path/filepath"
	"testing"

	"github.com/daybook-app/daybook/internal/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "daybook.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadStateFreshDatabase(t *testing.T) {
	s := openTestStore(t)

	dataset, tombstones, err := s.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(dataset.Entries) != 0 || dataset.Version != schema.Version {
		t.Errorf("expected empty dataset at current version, got %+v", dataset)
	}
	if tombstones.Total() != 0 {
		t.Errorf("expected empty tombstones, got %d", tombstones.Total())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	dataset := schema.NewDataset()
	dataset.Entries["e1"] = &schema.Entry{
		ID: "e1", Type: schema.EntryFood, ItemID: "f1", Date: "2024-01-15", Time: "08:30",
	}
	dataset.FoodItems["f1"] = &schema.Item{ID: "f1", Name: "Oatmeal", Type: schema.EntryFood}

	tombstones := schema.NewTombstones()
	tombstones.Mark(schema.KindEntries, "gone")

	if err := s.SaveState(dataset, tombstones); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	gotData, gotTombs, err := s.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if gotData.Entries["e1"] == nil || gotData.Entries["e1"].Time != "08:30" {
		t.Errorf("entry not round-tripped: %+v", gotData.Entries)
	}
	if gotData.FoodItems["f1"] == nil || gotData.FoodItems["f1"].Name != "Oatmeal" {
		t.Errorf("item not round-tripped: %+v", gotData.FoodItems)
	}
	if !gotTombs[schema.KindEntries]["gone"] {
		t.Errorf("tombstone not round-tripped: %v", gotTombs)
	}
}

func TestSaveOverwritesPriorState(t *testing.T) {
	s := openTestStore(t)

	first := schema.NewDataset()
	first.Entries["old"] = &schema.Entry{ID: "old", Type: schema.EntryFood, ItemID: "f1", Date: "2024-01-01"}
	if err := s.SaveState(first, schema.NewTombstones()); err != nil {
		t.Fatalf("first SaveState failed: %v", err)
	}

	second := schema.NewDataset()
	second.Entries["new"] = &schema.Entry{ID: "new", Type: schema.EntryFood, ItemID: "f1", Date: "2024-02-01"}
	if err := s.SaveState(second, schema.NewTombstones()); err != nil {
		t.Fatalf("second SaveState failed: %v", err)
	}

	dataset, _, err := s.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if _, ok := dataset.Entries["old"]; ok {
		t.Error("stale entry survived overwrite")
	}
	if _, ok := dataset.Entries["new"]; !ok {
		t.Error("latest entry missing after overwrite")
	}
}

func TestCorruptStateLoadsAsEmpty(t *testing.T) {
	s := openTestStore(t)

	// Write garbage directly into both keys.
	for _, key := range []string{"dataset", "tombstones"} {
		if _, err := s.conn.Exec(
			"INSERT INTO kv (key, value, updated_at) VALUES (?, ?, '2024-01-01T00:00:00Z')",
			key, []byte("{not json"),
		); err != nil {
			t.Fatalf("failed to plant corrupt value: %v", err)
		}
	}

	dataset, tombstones, err := s.LoadState()
	if err != nil {
		t.Fatalf("LoadState should not fail on corrupt values: %v", err)
	}
	if len(dataset.Entries) != 0 || tombstones.Total() != 0 {
		t.Error("corrupt state must load as empty defaults")
	}
}

func TestPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daybook.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	dataset := schema.NewDataset()
	dataset.DashboardCards["d1"] = &schema.DashboardCard{ID: "d1", Title: "Score", Kind: "score"}
	if err := s.SaveState(dataset, schema.NewTombstones()); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	got, _, err := s2.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if got.DashboardCards["d1"] == nil {
		t.Error("state did not survive reopen")
	}
}
