package pet

import (
	"context"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"

	"mochibot/internal/account"
	"mochibot/internal/catalog"
)

// dice draws uniform integers in [1,100] behind a mutex, the shared source
// for bond attempts and gift tiers.
type dice struct {
	mu   sync.Mutex
	rand *mathrand.Rand
}

func newDice() *dice {
	return &dice{rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano()))}
}

func (d *dice) Roll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rand.Intn(100) + 1
}

// SuccessChance maps affection onto an integer success percentage. At zero
// affection the chance is scaleMin; it rises linearly until affection reaches
// gate, where it plateaus at scaleMax.
func SuccessChance(affection, gate int64, scaleMin, scaleMax int) int {
	ratio := float64(affection) / float64(gate)
	if ratio > 1 {
		ratio = 1
	}
	return scaleMin + int(ratio*float64(scaleMax-scaleMin))
}

// BondResolver evaluates bonding attempts against a user's account state.
type BondResolver struct {
	store account.Store
	log   *slog.Logger
	roll  func() int
}

func NewBondResolver(store account.Store, logger *slog.Logger) *BondResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &BondResolver{
		store: store,
		log:   logger,
		roll:  newDice().Roll,
	}
}

// AttemptBond runs one bonding attempt. The attempt is consumed before the
// outcome is decided; that ordering rate-limits retries whether or not the
// draw succeeds. Returns the bond worth gained on success.
func (r *BondResolver) AttemptBond(ctx context.Context, userID string, act catalog.Activity) (int64, error) {
	avail, err := r.store.GetField(ctx, userID, account.FieldBondsAvailable)
	if err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	if avail <= 0 {
		return 0, ErrNoAttemptsLeft
	}

	if act.Item != "" {
		owned, err := r.store.GetField(ctx, userID, act.Item)
		if err != nil {
			return 0, fmt.Errorf("read ownership %s: %w", act.Item, err)
		}
		if owned == 0 {
			return 0, ErrMissingItem
		}
	}

	if err := r.store.DecrementField(ctx, userID, account.FieldBondsAvailable, 1); err != nil {
		return 0, fmt.Errorf("consume attempt: %w", err)
	}

	affection, err := r.store.GetField(ctx, userID, account.FieldAffection)
	if err != nil {
		return 0, fmt.Errorf("read affection: %w", err)
	}

	if act.MinAff > 0 && affection < act.MinAff {
		r.log.Info("bond below floor", "user", userID, "activity", act.Key, "affection", affection, "min", act.MinAff)
		return 0, ErrBondFailed
	}

	chance := SuccessChance(affection, act.GateAff, act.ScaleMin, act.ScaleMax)
	draw := r.roll()
	if chance < draw {
		r.log.Info("bond missed", "user", userID, "activity", act.Key, "chance", chance, "draw", draw)
		return 0, ErrBondFailed
	}

	if err := r.store.IncrementField(ctx, userID, account.FieldBondLevel, act.Worth); err != nil {
		return 0, fmt.Errorf("award bond: %w", err)
	}
	r.log.Info("bond success", "user", userID, "activity", act.Key, "worth", act.Worth, "chance", chance, "draw", draw)
	return act.Worth, nil
}
