package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mochibot/internal/account"
	"mochibot/internal/catalog"
	"mochibot/internal/pet"
)

// Sender posts a line to the chat channel.
type Sender interface {
	Send(text string) error
}

// LiveChecker reports whether the channel is streaming.
type LiveChecker interface {
	IsLive(ctx context.Context) (bool, error)
}

// Ledger is the external channel-points balance service.
type Ledger interface {
	Balance(ctx context.Context, userName string) (int64, error)
	ApplyDelta(ctx context.Context, userName string, delta int64) (int64, error)
}

// Privilege gates who may run a command. Privileged commands refuse
// silently; an unprivileged caller never sees an error line.
type Privilege int

const (
	PrivEveryone Privilege = iota
	PrivMod
	PrivHost
)

// paramSet declares which bindings a handler wants; the dispatcher supplies
// exactly those and nothing else.
type paramSet uint8

const (
	wantUser paramSet = 1 << iota
	wantUID
	wantArgs
	wantMessage
	wantMentions
)

// Invocation carries the bound parameters for one command execution.
type Invocation struct {
	User     string // login name, lowercase
	UID      string
	Args     []string
	Message  string
	Mentions []string
}

type handlerFunc func(ctx context.Context, inv *Invocation) error

type command struct {
	name   string
	priv   Privilege
	params paramSet
	run    handlerFunc
}

// errNotEnoughArgs is a quiet refusal: logged, no chat line, no cooldown.
var errNotEnoughArgs = errors.New("not enough arguments")

// Dispatcher routes every chat message to its command handler, enforcing
// gating, parameter binding, and cooldowns. It is driven by a single
// consumer loop: one message runs to completion before the next is read,
// which keeps resolver mutation sequences race-free without locks.
type Dispatcher struct {
	prefix   string
	channel  string
	host     string
	mods     map[string]bool
	window   time.Duration
	shutdown context.CancelFunc

	store   account.Store
	ledger  Ledger
	catalog *catalog.Catalog
	bonds   *pet.BondResolver
	shop    *pet.StoreResolver
	live    LiveChecker
	sender  Sender
	log     *slog.Logger

	commands map[string]*command
	aliases  map[string]string

	// Transient gating state, reset on restart.
	respondWhileLive bool
	cooldowns        map[string]map[string]time.Time
	knownUsers       map[string]bool

	// Rollcall session state. The already-here set lives only in process
	// memory; a restart starts a fresh session.
	rollcallActive bool
	rollcallReward int64
	hereSeen       map[string]bool

	now func() time.Time
}

// Options bundles the dispatcher's collaborators and settings.
type Options struct {
	Prefix          string
	Channel         string
	Host            string
	Mods            []string
	CooldownWindow  time.Duration
	RollcallReward  int64
	Store           account.Store
	Ledger          Ledger
	Catalog         *catalog.Catalog
	Bonds           *pet.BondResolver
	Shop            *pet.StoreResolver
	Live            LiveChecker
	Sender          Sender
	Logger          *slog.Logger
	Shutdown        context.CancelFunc
}

func New(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Shutdown == nil {
		opts.Shutdown = func() {}
	}
	if opts.RollcallReward <= 0 {
		opts.RollcallReward = 100
	}
	mods := make(map[string]bool, len(opts.Mods))
	for _, m := range opts.Mods {
		mods[strings.ToLower(m)] = true
	}
	d := &Dispatcher{
		prefix:         opts.Prefix,
		channel:        opts.Channel,
		host:           strings.ToLower(opts.Host),
		mods:           mods,
		window:         opts.CooldownWindow,
		shutdown:       opts.Shutdown,
		store:          opts.Store,
		ledger:         opts.Ledger,
		catalog:        opts.Catalog,
		bonds:          opts.Bonds,
		shop:           opts.Shop,
		live:           opts.Live,
		sender:         opts.Sender,
		log:            opts.Logger,
		commands:       make(map[string]*command),
		aliases:        map[string]string{"sd": "shutdown", "lb": "topbonds"},
		cooldowns:      make(map[string]map[string]time.Time),
		knownUsers:     make(map[string]bool),
		rollcallReward: opts.RollcallReward,
		hereSeen:       make(map[string]bool),
		now:            time.Now,
	}
	d.registerCommands()
	return d
}

func (d *Dispatcher) register(name string, priv Privilege, params paramSet, run handlerFunc) {
	d.commands[name] = &command{name: name, priv: priv, params: params, run: run}
	d.cooldowns[name] = make(map[string]time.Time)
}

// Dispatch processes one chat message. It reports whether the message was
// recognized as a command; refusals (cooldown, live gate, privilege) still
// count as handled.
func (d *Dispatcher) Dispatch(ctx context.Context, user, userID, raw string) bool {
	if !strings.HasPrefix(raw, d.prefix) {
		return false
	}
	body := strings.TrimPrefix(raw, d.prefix)
	if body == "" {
		return false
	}

	parts := strings.Fields(body)
	if len(parts) == 0 {
		return false
	}
	name := parts[0]
	if target, ok := d.aliases[name]; ok {
		name = target
	}
	cmd, ok := d.commands[name]
	if !ok {
		return false
	}

	user = strings.ToLower(user)
	trace := uuid.NewString()

	// The live toggle must stay reachable while the gate it controls is
	// closed, or nobody could ever reopen it.
	if name != "toggleonline" && !d.respondWhileLive {
		live, err := d.live.IsLive(ctx)
		if err != nil {
			d.log.Error("live check failed", "trace", trace, "err", err)
		} else if live {
			d.log.Info("refused: channel live", "trace", trace, "command", name, "user", user)
			return true
		}
	}

	if expiry, ok := d.cooldowns[name][userID]; ok && expiry.After(d.now()) {
		d.log.Info("refused: cooldown", "trace", trace, "command", name, "user", user)
		return true
	}

	if err := d.ensureKnown(ctx, user, userID); err != nil {
		d.log.Error("account lookup failed", "trace", trace, "user", user, "err", err)
		return true
	}

	if !d.allowed(cmd.priv, user) {
		d.log.Info("refused: privilege", "trace", trace, "command", name, "user", user)
		return true
	}

	inv := d.bind(cmd.params, user, userID, parts[1:])
	err := cmd.run(ctx, inv)
	switch {
	case err == nil:
		d.cooldowns[name][userID] = d.now().Add(d.window)
	case errors.Is(err, errNotEnoughArgs):
		d.log.Info("missing args", "trace", trace, "command", name, "user", user)
	case pet.IsDomainErr(err):
		d.log.Info("command refused", "trace", trace, "command", name, "user", user, "reason", err)
		d.send(d.renderErr(err, inv))
	default:
		d.log.Error("command failed", "trace", trace, "command", name, "user", user, "err", err)
	}
	return true
}

// ensureKnown checks the in-memory cache, falls back to a store refresh,
// and lazily creates a default account for a first-time chatter.
func (d *Dispatcher) ensureKnown(ctx context.Context, user, userID string) error {
	if d.knownUsers[userID] {
		return nil
	}
	ids, err := d.store.ListIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		d.knownUsers[id] = true
	}
	if d.knownUsers[userID] {
		return nil
	}
	if err := d.store.CreateAccount(ctx, userID, user); err != nil {
		return err
	}
	d.knownUsers[userID] = true
	d.log.Info("account created", "user", user, "id", userID)
	return nil
}

func (d *Dispatcher) allowed(priv Privilege, user string) bool {
	switch priv {
	case PrivHost:
		return user == d.host
	case PrivMod:
		return user == d.host || d.mods[user]
	default:
		return true
	}
}

func (d *Dispatcher) bind(params paramSet, user, userID string, rest []string) *Invocation {
	inv := &Invocation{}
	if params&wantUser != 0 {
		inv.User = user
	}
	if params&wantUID != 0 {
		inv.UID = userID
	}
	if params&wantArgs != 0 {
		inv.Args = rest
	}
	if params&wantMessage != 0 {
		inv.Message = strings.Join(rest, " ")
	}
	if params&wantMentions != 0 {
		for _, word := range rest {
			if strings.HasPrefix(word, "@") && len(word) > 1 {
				inv.Mentions = append(inv.Mentions, word[1:])
			}
		}
	}
	return inv
}

func (d *Dispatcher) send(text string) {
	if text == "" {
		return
	}
	if err := d.sender.Send(text); err != nil {
		d.log.Error("send failed", "err", err)
	}
}
