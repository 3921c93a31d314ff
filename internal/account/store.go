package account

import (
	"context"
	"errors"
	"fmt"
)

// Reserved account id for the mascot. Its bond_level column holds the
// aggregate happiness total; the "@" keeps it out of the chat id space.
const MascotID = "@mochi"

var (
	ErrUnknownField = errors.New("unknown account field")
	ErrNoAccount    = errors.New("account not found")
)

// Numeric account fields. Booleans are stored as 0/1 and timestamps as unix
// seconds so every field moves through the same int64 read/write contract.
const (
	FieldAffection      = "affection"
	FieldBondLevel      = "bond_level"
	FieldBondsAvailable = "bonds_available"
	FieldFreeFeedUsed   = "free_feed_used"
	FieldOwnsFeather    = "owns_feather"
	FieldOwnsBrush      = "owns_brush"
	FieldOwnsScratcher  = "owns_scratcher"
	FieldLastFedAt      = "last_fed_at"
	FieldCreatedAt      = "created_at"
)

var knownFields = map[string]bool{
	FieldAffection:      true,
	FieldBondLevel:      true,
	FieldBondsAvailable: true,
	FieldFreeFeedUsed:   true,
	FieldOwnsFeather:    true,
	FieldOwnsBrush:      true,
	FieldOwnsScratcher:  true,
	FieldLastFedAt:      true,
	FieldCreatedAt:      true,
}

// checkField validates a column name against the fixed allowlist. Column
// names are interpolated into SQL, so an unknown name is a configuration
// error and must never reach a query.
func checkField(name string) error {
	if !knownFields[name] {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// TopEntry is one leaderboard row.
type TopEntry struct {
	UserID string
	Name   string
	Value  int64
}

// Store is the per-user account record contract. Rows are keyed by the
// platform user id; every mutation is atomic per row. DecrementField floors
// the result at zero, which is what every caller wants (attempt counts,
// decayed stats).
type Store interface {
	CreateAccount(ctx context.Context, id, name string) error
	GetField(ctx context.Context, id, field string) (int64, error)
	SetField(ctx context.Context, id, field string, value int64) error
	IncrementField(ctx context.Context, id, field string, delta int64) error
	DecrementField(ctx context.Context, id, field string, delta int64) error
	GetColumn(ctx context.Context, field string) (map[string]int64, error)
	GetTopByColumn(ctx context.Context, column, orderColumn string, limit int, excludeID string) ([]TopEntry, error)
	ListIDs(ctx context.Context) ([]string, error)
}
