package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testActivities = `{
	"hug": {"name": "Hug", "worth": 3, "gate_aff": 100, "scale_min": 1, "scale_max": 100},
	"brush": {"name": "Brush", "worth": 5, "item": "owns_brush", "gate_aff": 80, "scale_min": 10, "scale_max": 90, "min_aff": 20}
}`

const testStore = `{
	"food": {
		"base": {
			"cracker": {"cost": 0, "affection": 1, "free": true},
			"kibble": {"cost": 50, "affection": 3}
		},
		"winter": {
			"stew": {"cost": 120, "affection": 8, "bond": 1}
		}
	},
	"permanent": {
		"brush": {"cost": 500, "flag": "owns_brush"}
	},
	"gifts": {
		"puzzlebox": {"cost": 100, "common": 2, "uncommon": 5, "rare": 12}
	}
}`

func writeCatalogFiles(t *testing.T, activities, store string) *Catalog {
	t.Helper()
	dir := t.TempDir()
	ap := filepath.Join(dir, "bonds.json")
	sp := filepath.Join(dir, "store.json")
	if err := os.WriteFile(ap, []byte(activities), 0o600); err != nil {
		t.Fatalf("write activities: %v", err)
	}
	if err := os.WriteFile(sp, []byte(store), 0o600); err != nil {
		t.Fatalf("write store: %v", err)
	}
	return New(ap, sp, filepath.Join(dir, "responses.json"), nil)
}

func TestSeasonOf(t *testing.T) {
	tests := []struct {
		month time.Month
		want  Season
	}{
		{time.January, SeasonWinter},
		{time.February, SeasonWinter},
		{time.March, SeasonSpring},
		{time.May, SeasonSpring},
		{time.June, SeasonSummer},
		{time.August, SeasonSummer},
		{time.September, SeasonFall},
		{time.November, SeasonFall},
		{time.December, SeasonWinter},
	}
	for _, tc := range tests {
		at := time.Date(2025, tc.month, 15, 0, 0, 0, 0, time.UTC)
		if got := SeasonOf(at); got != tc.want {
			t.Fatalf("SeasonOf(%s) = %s, want %s", tc.month, got, tc.want)
		}
	}
}

func TestReloadAndLookup(t *testing.T) {
	c := writeCatalogFiles(t, testActivities, testStore)
	if err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	snap := c.Snapshot()

	hug, ok := snap.Activities["hug"]
	if !ok {
		t.Fatal("missing hug activity")
	}
	if hug.Key != "hug" || hug.Worth != 3 {
		t.Fatalf("hug = %+v", hug)
	}
	brush := snap.Activities["brush"]
	if brush.Item != "owns_brush" || brush.MinAff != 20 {
		t.Fatalf("brush = %+v", brush)
	}

	gift := snap.Gifts["puzzlebox"]
	if gift.CommonPct != 60 || gift.UncommonPct != 30 {
		t.Fatalf("default tier pcts not applied: %+v", gift)
	}
}

func TestFoodForSeasonDiscrimination(t *testing.T) {
	c := writeCatalogFiles(t, testActivities, testStore)
	if err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	snap := c.Snapshot()

	if _, in, anywhere := snap.FoodFor("kibble", SeasonSummer); !in || !anywhere {
		t.Fatal("base item should always be in season")
	}
	if _, in, anywhere := snap.FoodFor("stew", SeasonWinter); !in || !anywhere {
		t.Fatal("winter item should be in season in winter")
	}
	if _, in, anywhere := snap.FoodFor("stew", SeasonSummer); in || !anywhere {
		t.Fatal("winter item in summer should be anywhere-but-not-in-season")
	}
	if _, in, anywhere := snap.FoodFor("pizza", SeasonSummer); in || anywhere {
		t.Fatal("unknown item should miss everywhere")
	}
}

func TestEmptySnapshotBeforeLoad(t *testing.T) {
	c := New("/nonexistent/bonds.json", "/nonexistent/store.json", "", nil)
	if err := c.Reload(); err == nil {
		t.Fatal("expected reload failure")
	}
	snap := c.Snapshot()
	if len(snap.Activities) != 0 || len(snap.Gifts) != 0 {
		t.Fatal("failed reload must leave an empty snapshot")
	}
	if _, _, anywhere := snap.FoodFor("cracker", SeasonBase); anywhere {
		t.Fatal("empty snapshot should miss every lookup")
	}
}

func TestReloadSwapsWholeSnapshot(t *testing.T) {
	c := writeCatalogFiles(t, testActivities, testStore)
	if err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	before := c.Snapshot()

	if err := os.WriteFile(c.activitiesPath, []byte(`{"hug": {"name": "Hug", "worth": 9, "gate_aff": 50, "scale_min": 1, "scale_max": 100}}`), 0o600); err != nil {
		t.Fatalf("rewrite activities: %v", err)
	}
	if err := c.Reload(); err != nil {
		t.Fatalf("second reload: %v", err)
	}

	// The old snapshot is untouched; the new one is a full replacement.
	if before.Activities["hug"].Worth != 3 {
		t.Fatal("previous snapshot mutated by reload")
	}
	after := c.Snapshot()
	if after.Activities["hug"].Worth != 9 {
		t.Fatalf("new snapshot worth = %d, want 9", after.Activities["hug"].Worth)
	}
	if _, ok := after.Activities["brush"]; ok {
		t.Fatal("reload must replace the whole table, not merge")
	}
}

func TestBadCatalogRejected(t *testing.T) {
	c := writeCatalogFiles(t, `{"hug": {"worth": 1, "gate_aff": 0, "scale_min": 1, "scale_max": 100}}`, testStore)
	if err := c.Reload(); err == nil {
		t.Fatal("zero gate_aff should fail validation")
	}
}

func TestResponseDefaults(t *testing.T) {
	c := writeCatalogFiles(t, testActivities, testStore)
	if err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	snap := c.Snapshot()
	if snap.Response("no_attempts") == "" {
		t.Fatal("expected a default response line")
	}
	if snap.Response("definitely_not_a_key") != "" {
		t.Fatal("unknown key should produce empty line")
	}
}
