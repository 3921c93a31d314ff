package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mochibot/internal/account"
	"mochibot/internal/pet"
)

// The ten bonding activities. Each command name doubles as its catalog key,
// so activity parameters can change on reload without re-registering.
var activityCommands = []string{
	"headpat", "scratch", "hug", "tickle", "nuzzle",
	"brush", "massage", "bellyrub", "cuddle", "holdhands",
}

func (d *Dispatcher) registerCommands() {
	d.register("help", PrivEveryone, wantUser, d.cmdHelp)
	d.register("stats", PrivEveryone, wantUser|wantUID, d.cmdStats)
	d.register("topbonds", PrivEveryone, 0, d.cmdTopBonds)
	d.register("points", PrivEveryone, wantUser|wantArgs|wantMentions, d.cmdPoints)
	d.register("live", PrivEveryone, 0, d.cmdLive)

	d.register("feed", PrivEveryone, wantUser|wantUID|wantArgs, d.cmdFeed)
	d.register("gift", PrivEveryone, wantUser|wantUID|wantArgs, d.cmdGift)
	d.register("buy", PrivEveryone, wantUser|wantUID|wantArgs, d.cmdBuy)

	for _, name := range activityCommands {
		d.register(name, PrivEveryone, wantUser|wantUID, d.activityHandler(name))
	}

	d.register("here", PrivEveryone, wantUser|wantUID, d.cmdHere)

	d.register("attendance", PrivMod, wantUser, d.cmdAttendance)
	d.register("toggleonline", PrivMod, wantUser, d.cmdToggleOnline)
	d.register("reload", PrivMod, wantUser, d.cmdReload)
	d.register("shutdown", PrivHost, wantUser, d.cmdShutdown)
}

func (d *Dispatcher) cmdHelp(ctx context.Context, inv *Invocation) error {
	d.send("Mochi commands: stats, topbonds, feed <item>, gift <item>, buy <item>, " +
		strings.Join(activityCommands, ", "))
	return nil
}

func (d *Dispatcher) cmdStats(ctx context.Context, inv *Invocation) error {
	affection, err := d.store.GetField(ctx, inv.UID, account.FieldAffection)
	if err != nil {
		return err
	}
	bond, err := d.store.GetField(ctx, inv.UID, account.FieldBondLevel)
	if err != nil {
		return err
	}
	attempts, err := d.store.GetField(ctx, inv.UID, account.FieldBondsAvailable)
	if err != nil {
		return err
	}
	d.send(d.render("stats", map[string]string{
		"user":    inv.User,
		"value":   fmt.Sprint(affection),
		"worth":   fmt.Sprint(bond),
		"balance": fmt.Sprint(attempts),
	}))
	return nil
}

func (d *Dispatcher) cmdTopBonds(ctx context.Context, inv *Invocation) error {
	top, err := d.store.GetTopByColumn(ctx, account.FieldBondLevel, account.FieldBondLevel, 5, account.MascotID)
	if err != nil {
		return err
	}
	// Before the first nightly aggregation the mascot account may not exist
	// yet; report zero happiness rather than failing the whole command.
	happiness, err := d.store.GetField(ctx, account.MascotID, account.FieldBondLevel)
	if err != nil && !errors.Is(err, account.ErrNoAccount) {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mochi happiness: %d.", happiness)
	if len(top) > 0 {
		b.WriteString(" Best friends:")
		for i, e := range top {
			fmt.Fprintf(&b, " %d. %s (%d)", i+1, e.Name, e.Value)
		}
	}
	d.send(b.String())
	return nil
}

func (d *Dispatcher) cmdPoints(ctx context.Context, inv *Invocation) error {
	target := inv.User
	if len(inv.Mentions) > 0 {
		target = strings.ToLower(inv.Mentions[0])
	} else if len(inv.Args) > 0 {
		target = strings.ToLower(strings.TrimPrefix(inv.Args[0], "@"))
	}
	balance, err := d.ledger.Balance(ctx, target)
	if err != nil {
		return err
	}
	d.send(d.render("points", map[string]string{
		"user":    target,
		"balance": fmt.Sprint(balance),
	}))
	return nil
}

func (d *Dispatcher) cmdLive(ctx context.Context, inv *Invocation) error {
	live, err := d.live.IsLive(ctx)
	if err != nil {
		return err
	}
	status := "not live"
	if live {
		status = "live"
	}
	d.send(fmt.Sprintf("%s is %s", d.channel, status))
	return nil
}

func (d *Dispatcher) cmdFeed(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) == 0 {
		return errNotEnoughArgs
	}
	item := strings.ToLower(inv.Args[0])
	inv.Args[0] = item

	balance, err := d.ledger.Balance(ctx, inv.User)
	if err != nil {
		return err
	}
	res, err := d.shop.Feed(ctx, inv.UID, balance, item, d.catalog.Snapshot())
	if err != nil {
		return err
	}
	d.debit(ctx, inv.User, res.Cost)
	d.send(d.render("feed_success", map[string]string{
		"user": inv.User,
		"item": item,
	}))
	return nil
}

func (d *Dispatcher) cmdGift(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) == 0 {
		return errNotEnoughArgs
	}
	item := strings.ToLower(inv.Args[0])
	inv.Args[0] = item

	balance, err := d.ledger.Balance(ctx, inv.User)
	if err != nil {
		return err
	}
	res, err := d.shop.Gift(ctx, inv.UID, balance, item, d.catalog.Snapshot())
	if err != nil {
		return err
	}
	d.debit(ctx, inv.User, res.Cost)
	d.send(d.render("gift_"+string(res.Tier), map[string]string{
		"user": inv.User,
		"item": item,
		"tier": string(res.Tier),
	}))
	return nil
}

func (d *Dispatcher) cmdBuy(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) == 0 {
		return errNotEnoughArgs
	}
	item := strings.ToLower(inv.Args[0])
	inv.Args[0] = item

	balance, err := d.ledger.Balance(ctx, inv.User)
	if err != nil {
		return err
	}
	res, err := d.shop.Buy(ctx, inv.UID, balance, item, d.catalog.Snapshot())
	if err != nil {
		return err
	}
	d.debit(ctx, inv.User, res.Cost)
	d.send(d.render("buy_success", map[string]string{
		"user": inv.User,
		"item": item,
	}))
	return nil
}

func (d *Dispatcher) activityHandler(name string) handlerFunc {
	return func(ctx context.Context, inv *Invocation) error {
		act, ok := d.catalog.Snapshot().Activities[name]
		if !ok {
			inv.Args = []string{name}
			return pet.ErrNoItem
		}
		worth, err := d.bonds.AttemptBond(ctx, inv.UID, act)
		if err != nil {
			if errors.Is(err, pet.ErrMissingItem) {
				// Let the refusal line name the missing item.
				inv.Args = []string{strings.TrimPrefix(act.Item, "owns_")}
			}
			return err
		}
		d.send(d.render("bond_success", map[string]string{
			"user":  inv.User,
			"item":  act.Name,
			"worth": fmt.Sprint(worth),
		}))
		return nil
	}
}

// cmdAttendance toggles a rollcall session. Opening one clears the
// already-here set, so every chatter gets one fresh acknowledgement.
func (d *Dispatcher) cmdAttendance(ctx context.Context, inv *Invocation) error {
	d.rollcallActive = !d.rollcallActive
	if d.rollcallActive {
		d.hereSeen = make(map[string]bool)
		d.send("Rollcall is open! Say !here to check in.")
	} else {
		d.send("Rollcall is closed.")
	}
	return nil
}

// cmdHere acknowledges attendance once per rollcall session, crediting the
// reward to the caller's points balance. Outside a session, and on a repeat
// check-in, it stays quiet.
func (d *Dispatcher) cmdHere(ctx context.Context, inv *Invocation) error {
	if !d.rollcallActive || d.hereSeen[inv.UID] {
		return nil
	}
	balance, err := d.ledger.ApplyDelta(ctx, inv.User, d.rollcallReward)
	if err != nil {
		return err
	}
	d.hereSeen[inv.UID] = true
	d.send(d.render("rollcall_here", map[string]string{
		"user":    inv.User,
		"value":   fmt.Sprint(d.rollcallReward),
		"balance": fmt.Sprint(balance),
	}))
	return nil
}

func (d *Dispatcher) cmdToggleOnline(ctx context.Context, inv *Invocation) error {
	d.respondWhileLive = !d.respondWhileLive
	if d.respondWhileLive {
		d.send("Mochi will now respond while the stream is live.")
	} else {
		d.send("Mochi is going quiet during streams.")
	}
	return nil
}

func (d *Dispatcher) cmdReload(ctx context.Context, inv *Invocation) error {
	if err := d.catalog.Reload(); err != nil {
		return err
	}
	d.send("Catalog reloaded.")
	return nil
}

func (d *Dispatcher) cmdShutdown(ctx context.Context, inv *Invocation) error {
	d.send("Mochi is going to sleep. Bye!")
	d.log.Info("shutdown requested", "user", inv.User)
	d.shutdown()
	return nil
}

// debit applies the resolved cost to the ledger. The resolver already
// committed its account mutations, so a failure here is an inconsistency
// that needs an operator's eye, not a rollback.
func (d *Dispatcher) debit(ctx context.Context, userName string, cost int64) {
	if cost <= 0 {
		return
	}
	if _, err := d.ledger.ApplyDelta(ctx, userName, -cost); err != nil {
		d.log.Error("ledger debit failed after resolve; balances inconsistent",
			"user", userName, "cost", cost, "err", err)
	}
}
