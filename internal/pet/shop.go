package pet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mochibot/internal/account"
	"mochibot/internal/catalog"
)

// GiftTier is the reward band a gift draw lands in.
type GiftTier string

const (
	TierCommon   GiftTier = "common"
	TierUncommon GiftTier = "uncommon"
	TierRare     GiftTier = "rare"
)

// FeedResult reports a successful feed; Cost is the amount the dispatcher
// debits from the ledger afterwards.
type FeedResult struct {
	Item catalog.FoodItem
	Cost int64
}

// BuyResult reports a successful permanent-item purchase.
type BuyResult struct {
	Item catalog.PermanentItem
	Cost int64
}

// GiftResult reports a successful gift and which tier the draw resolved to.
type GiftResult struct {
	Item catalog.GiftItem
	Cost int64
	Tier GiftTier
}

// StoreResolver evaluates feed/buy/gift transactions. It mutates account
// state and returns the cost to debit; the caller performs the actual ledger
// debit only after a successful resolve.
type StoreResolver struct {
	store account.Store
	log   *slog.Logger
	roll  func() int
	now   func() time.Time
}

func NewStoreResolver(store account.Store, logger *slog.Logger) *StoreResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreResolver{
		store: store,
		log:   logger,
		roll:  newDice().Roll,
		now:   time.Now,
	}
}

// Feed resolves a feeding transaction against the seasonal catalog.
func (r *StoreResolver) Feed(ctx context.Context, userID string, balance int64, itemKey string, snap *catalog.Snapshot) (FeedResult, error) {
	season := catalog.SeasonOf(r.now())
	item, inSeason, anywhere := snap.FoodFor(itemKey, season)
	if !anywhere {
		return FeedResult{}, ErrNoItem
	}
	if !inSeason {
		return FeedResult{}, ErrOutOfSeason
	}
	if balance < item.Cost {
		return FeedResult{}, ErrNotEnoughPoints
	}

	if item.Free {
		used, err := r.store.GetField(ctx, userID, account.FieldFreeFeedUsed)
		if err != nil {
			return FeedResult{}, fmt.Errorf("read free feed flag: %w", err)
		}
		if used != 0 {
			return FeedResult{}, ErrFreeFeedUsed
		}
	}

	if err := r.store.SetField(ctx, userID, account.FieldLastFedAt, r.now().Unix()); err != nil {
		return FeedResult{}, fmt.Errorf("record feed time: %w", err)
	}
	if err := r.addAffection(ctx, userID, item.Affection); err != nil {
		return FeedResult{}, err
	}

	if item.Free {
		if err := r.store.SetField(ctx, userID, account.FieldFreeFeedUsed, 1); err != nil {
			return FeedResult{}, fmt.Errorf("mark free feed: %w", err)
		}
		r.log.Info("free feed", "user", userID, "item", item.Key)
		return FeedResult{Item: item, Cost: 0}, nil
	}

	if err := r.store.IncrementField(ctx, userID, account.FieldBondsAvailable, 1); err != nil {
		return FeedResult{}, fmt.Errorf("grant attempt: %w", err)
	}
	if item.Bond != 0 {
		if err := r.store.IncrementField(ctx, userID, account.FieldBondLevel, item.Bond); err != nil {
			return FeedResult{}, fmt.Errorf("apply bond delta: %w", err)
		}
	}
	r.log.Info("fed", "user", userID, "item", item.Key, "cost", item.Cost, "season", season)
	return FeedResult{Item: item, Cost: item.Cost}, nil
}

// Buy resolves a one-time permanent-item purchase.
func (r *StoreResolver) Buy(ctx context.Context, userID string, balance int64, itemKey string, snap *catalog.Snapshot) (BuyResult, error) {
	item, ok := snap.Permanent[itemKey]
	if !ok {
		return BuyResult{}, ErrNoItem
	}
	if balance < item.Cost {
		return BuyResult{}, ErrNotEnoughPoints
	}
	owned, err := r.store.GetField(ctx, userID, item.Flag)
	if err != nil {
		return BuyResult{}, fmt.Errorf("read ownership %s: %w", item.Flag, err)
	}
	if owned != 0 {
		return BuyResult{}, ErrAlreadyOwned
	}
	if err := r.store.SetField(ctx, userID, item.Flag, 1); err != nil {
		return BuyResult{}, fmt.Errorf("set ownership %s: %w", item.Flag, err)
	}
	r.log.Info("bought", "user", userID, "item", item.Key, "cost", item.Cost)
	return BuyResult{Item: item, Cost: item.Cost}, nil
}

// Gift resolves a gamble-tiered gift transaction.
func (r *StoreResolver) Gift(ctx context.Context, userID string, balance int64, itemKey string, snap *catalog.Snapshot) (GiftResult, error) {
	item, ok := snap.Gifts[itemKey]
	if !ok {
		return GiftResult{}, ErrNoItem
	}
	if balance < item.Cost {
		return GiftResult{}, ErrNotEnoughPoints
	}

	draw := r.roll()
	tier, delta := resolveTier(item, draw)
	if err := r.addAffection(ctx, userID, delta); err != nil {
		return GiftResult{}, err
	}
	r.log.Info("gifted", "user", userID, "item", item.Key, "tier", tier, "draw", draw)
	return GiftResult{Item: item, Cost: item.Cost, Tier: tier}, nil
}

// resolveTier maps a draw in [1,100] onto a tier by cumulative thresholds:
// with the 60/30 defaults, (0,60] common, (60,90] uncommon, else rare.
func resolveTier(item catalog.GiftItem, draw int) (GiftTier, int64) {
	switch {
	case draw <= item.CommonPct:
		return TierCommon, item.Common
	case draw <= item.CommonPct+item.UncommonPct:
		return TierUncommon, item.Uncommon
	default:
		return TierRare, item.Rare
	}
}

// addAffection applies an affection gain clamped so the stored value never
// exceeds 100.
func (r *StoreResolver) addAffection(ctx context.Context, userID string, delta int64) error {
	if delta <= 0 {
		return nil
	}
	current, err := r.store.GetField(ctx, userID, account.FieldAffection)
	if err != nil {
		return fmt.Errorf("read affection: %w", err)
	}
	room := 100 - current
	if room <= 0 {
		return nil
	}
	if delta > room {
		delta = room
	}
	if err := r.store.IncrementField(ctx, userID, account.FieldAffection, delta); err != nil {
		return fmt.Errorf("add affection: %w", err)
	}
	return nil
}
