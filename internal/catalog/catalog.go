package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Season buckets food availability by calendar quarter. Base items are
// always available.
type Season string

const (
	SeasonBase   Season = "base"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
)

// SeasonOf maps a calendar month to its season.
func SeasonOf(t time.Time) Season {
	switch t.Month() {
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	case time.September, time.October, time.November:
		return SeasonFall
	default:
		return SeasonWinter
	}
}

// Activity is one bonding-catalog entry.
type Activity struct {
	Key      string `json:"-"`
	Name     string `json:"name"`
	Worth    int64  `json:"worth"`
	Item     string `json:"item,omitempty"` // ownership field required to attempt, if any
	GateAff  int64  `json:"gate_aff"`       // affection where the success chance saturates
	ScaleMin int    `json:"scale_min"`
	ScaleMax int    `json:"scale_max"`
	MinAff   int64  `json:"min_aff,omitempty"` // attempts below this floor auto-fail
}

// FoodItem is a feedable store entry.
type FoodItem struct {
	Key       string `json:"-"`
	Cost      int64  `json:"cost"`
	Affection int64  `json:"affection"`
	Bond      int64  `json:"bond,omitempty"`
	Free      bool   `json:"free,omitempty"` // the once-per-day zero-cost item
}

// PermanentItem is a one-time purchase tied to an ownership flag.
type PermanentItem struct {
	Key  string `json:"-"`
	Cost int64  `json:"cost"`
	Flag string `json:"flag"`
}

// GiftItem is a gamble-tiered gift. Tier percentages are cumulative draw
// thresholds; rare takes whatever the other two leave.
type GiftItem struct {
	Key         string `json:"-"`
	Cost        int64  `json:"cost"`
	Common      int64  `json:"common"`
	Uncommon    int64  `json:"uncommon"`
	Rare        int64  `json:"rare"`
	CommonPct   int    `json:"common_pct,omitempty"`
	UncommonPct int    `json:"uncommon_pct,omitempty"`
}

const (
	defaultCommonPct   = 60
	defaultUncommonPct = 30
)

// Snapshot is one immutable view of every catalog table. Resolvers hold a
// snapshot for the duration of a call, so a concurrent reload never tears a
// lookup.
type Snapshot struct {
	Activities map[string]Activity
	Food       map[Season]map[string]FoodItem
	Permanent  map[string]PermanentItem
	Gifts      map[string]GiftItem
	Responses  map[string]string
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Activities: map[string]Activity{},
		Food:       map[Season]map[string]FoodItem{},
		Permanent:  map[string]PermanentItem{},
		Gifts:      map[string]GiftItem{},
		Responses:  map[string]string{},
	}
}

// FoodFor resolves an item key against the base table and the given season.
// inSeason reports a hit in the effective catalog; anywhere reports a hit in
// any season at all, which is what tells a wrong-season item apart from a
// nonexistent one.
func (s *Snapshot) FoodFor(key string, season Season) (item FoodItem, inSeason, anywhere bool) {
	if it, ok := s.Food[SeasonBase][key]; ok {
		return it, true, true
	}
	if it, ok := s.Food[season][key]; ok {
		return it, true, true
	}
	for _, table := range s.Food {
		if it, ok := table[key]; ok {
			return it, false, true
		}
	}
	return FoodItem{}, false, false
}

// Response returns the configured user-facing line for a response key,
// falling back to built-in defaults.
func (s *Snapshot) Response(key string) string {
	if line, ok := s.Responses[key]; ok {
		return line
	}
	return defaultResponses[key]
}

// Catalog owns the current snapshot and knows how to rebuild it from disk.
type Catalog struct {
	activitiesPath string
	storePath      string
	responsesPath  string
	log            *slog.Logger

	current atomic.Pointer[Snapshot]
}

func New(activitiesPath, storePath, responsesPath string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		activitiesPath: activitiesPath,
		storePath:      storePath,
		responsesPath:  responsesPath,
		log:            logger,
	}
	c.current.Store(emptySnapshot())
	return c
}

// Snapshot returns the current immutable catalog view.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// storeFile is the on-disk shape of the store tables.
type storeFile struct {
	Food      map[Season]map[string]FoodItem `json:"food"`
	Permanent map[string]PermanentItem       `json:"permanent"`
	Gifts     map[string]GiftItem            `json:"gifts"`
}

// Reload rebuilds the snapshot from disk and swaps it in whole. On failure
// the previous snapshot stays; at startup that means an empty catalog and
// every lookup failing until a good reload.
func (c *Catalog) Reload() error {
	next := emptySnapshot()

	var activities map[string]Activity
	if err := readJSON(c.activitiesPath, &activities); err != nil {
		return fmt.Errorf("load activities: %w", err)
	}
	for key, a := range activities {
		a.Key = key
		if a.ScaleMin < 1 {
			a.ScaleMin = 1
		}
		if a.ScaleMax > 100 {
			a.ScaleMax = 100
		}
		if a.GateAff <= 0 {
			return fmt.Errorf("activity %q: gate_aff must be > 0", key)
		}
		if a.ScaleMax < a.ScaleMin {
			return fmt.Errorf("activity %q: scale_max below scale_min", key)
		}
		next.Activities[key] = a
	}

	var sf storeFile
	if err := readJSON(c.storePath, &sf); err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	for season, table := range sf.Food {
		out := make(map[string]FoodItem, len(table))
		for key, it := range table {
			it.Key = key
			out[key] = it
		}
		next.Food[season] = out
	}
	for key, it := range sf.Permanent {
		it.Key = key
		if it.Flag == "" {
			return fmt.Errorf("permanent item %q: missing ownership flag", key)
		}
		next.Permanent[key] = it
	}
	for key, g := range sf.Gifts {
		g.Key = key
		if g.CommonPct <= 0 {
			g.CommonPct = defaultCommonPct
		}
		if g.UncommonPct <= 0 {
			g.UncommonPct = defaultUncommonPct
		}
		if g.CommonPct+g.UncommonPct > 100 {
			return fmt.Errorf("gift %q: tier percentages exceed 100", key)
		}
		next.Gifts[key] = g
	}

	// Responses are optional; a missing file just means defaults.
	if c.responsesPath != "" {
		if err := readJSON(c.responsesPath, &next.Responses); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("load responses: %w", err)
			}
			next.Responses = map[string]string{}
		}
	}

	c.current.Store(next)
	c.log.Info("catalog loaded",
		"activities", len(next.Activities),
		"permanent", len(next.Permanent),
		"gifts", len(next.Gifts))
	return nil
}

func readJSON(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
