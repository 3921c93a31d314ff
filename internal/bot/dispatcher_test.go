package bot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mochibot/internal/account"
	"mochibot/internal/catalog"
	"mochibot/internal/pet"
)

type fakeSender struct {
	lines []string
}

func (f *fakeSender) Send(text string) error {
	f.lines = append(f.lines, text)
	return nil
}

func (f *fakeSender) last(t *testing.T) string {
	t.Helper()
	if len(f.lines) == 0 {
		t.Fatal("no chat lines sent")
	}
	return f.lines[len(f.lines)-1]
}

type fakeLive struct {
	live  bool
	calls int
}

func (f *fakeLive) IsLive(ctx context.Context) (bool, error) {
	f.calls++
	return f.live, nil
}

type fakeLedger struct {
	balances map[string]int64
	deltas   map[string][]int64
}

func (f *fakeLedger) Balance(ctx context.Context, userName string) (int64, error) {
	return f.balances[userName], nil
}

func (f *fakeLedger) ApplyDelta(ctx context.Context, userName string, delta int64) (int64, error) {
	f.balances[userName] += delta
	f.deltas[userName] = append(f.deltas[userName], delta)
	return f.balances[userName], nil
}

const testActivities = `{
	"hug":     {"name": "Hug", "worth": 3, "gate_aff": 100, "scale_min": 100, "scale_max": 100},
	"scratch": {"name": "Scratch", "worth": 5, "item": "owns_feather", "gate_aff": 100, "scale_min": 100, "scale_max": 100},
	"massage": {"name": "Massage", "worth": 8, "gate_aff": 100, "scale_min": 100, "scale_max": 100, "min_aff": 90}
}`

const testStore = `{
	"food": {
		"base": {
			"cracker": {"cost": 0, "affection": 2, "free": true},
			"kibble":  {"cost": 10, "affection": 5, "bond": 1}
		}
	},
	"permanent": {
		"feather": {"cost": 100, "flag": "owns_feather"}
	},
	"gifts": {
		"puzzle": {"cost": 20, "common": 2, "uncommon": 5, "rare": 10}
	}
}`

type testBot struct {
	d         *Dispatcher
	store     *account.MemoryStore
	sender    *fakeSender
	live      *fakeLive
	ledger    *fakeLedger
	shutdowns int
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	dir := t.TempDir()
	actPath := filepath.Join(dir, "bonds.json")
	storePath := filepath.Join(dir, "store.json")
	if err := os.WriteFile(actPath, []byte(testActivities), 0o644); err != nil {
		t.Fatalf("write activities: %v", err)
	}
	if err := os.WriteFile(storePath, []byte(testStore), 0o644); err != nil {
		t.Fatalf("write store: %v", err)
	}
	cat := catalog.New(actPath, storePath, "", nil)
	if err := cat.Reload(); err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	store := account.NewMemoryStore()
	tb := &testBot{
		store:  store,
		sender: &fakeSender{},
		live:   &fakeLive{},
		ledger: &fakeLedger{balances: map[string]int64{}, deltas: map[string][]int64{}},
	}
	tb.d = New(Options{
		Prefix:         "!",
		Channel:        "somechannel",
		Host:           "hosty",
		Mods:           []string{"modesta"},
		CooldownWindow: 30 * time.Second,
		Store:          store,
		Ledger:         tb.ledger,
		Catalog:        cat,
		Bonds:          pet.NewBondResolver(store, nil),
		Shop:           pet.NewStoreResolver(store, nil),
		Live:           tb.live,
		Sender:         tb.sender,
		Shutdown:       func() { tb.shutdowns++ },
	})
	return tb
}

func (tb *testBot) dispatch(t *testing.T, user, uid, raw string) bool {
	t.Helper()
	return tb.d.Dispatch(context.Background(), user, uid, raw)
}

func TestDispatchIgnoresNonCommands(t *testing.T) {
	tb := newTestBot(t)
	for _, raw := range []string{"hello there", "!", "!unknowncmd", "stats"} {
		if tb.dispatch(t, "alice", "1", raw) {
			t.Fatalf("%q should not be handled", raw)
		}
	}
	if len(tb.sender.lines) != 0 {
		t.Fatalf("unexpected chat output: %v", tb.sender.lines)
	}
}

func TestAliasResolvesToCanonicalCommand(t *testing.T) {
	tb := newTestBot(t)
	if !tb.dispatch(t, "alice", "1", "!lb") {
		t.Fatal("alias not handled")
	}
	if !strings.Contains(tb.sender.last(t), "happiness") {
		t.Fatalf("alias output = %q", tb.sender.last(t))
	}
}

func TestLiveGateSilencesCommands(t *testing.T) {
	tb := newTestBot(t)
	tb.live.live = true

	if !tb.dispatch(t, "alice", "1", "!stats") {
		t.Fatal("gated command should still count as handled")
	}
	if len(tb.sender.lines) != 0 {
		t.Fatalf("gated command produced output: %v", tb.sender.lines)
	}

	// The toggle stays reachable while live, and reopens the gate.
	if !tb.dispatch(t, "modesta", "2", "!toggleonline") {
		t.Fatal("toggleonline not handled while live")
	}
	tb.sender.lines = nil
	if !tb.dispatch(t, "alice", "1", "!stats") {
		t.Fatal("stats not handled after toggle")
	}
	if len(tb.sender.lines) != 1 {
		t.Fatalf("expected stats output after toggle, got %v", tb.sender.lines)
	}
	// With the gate open the live probe is skipped entirely.
	if tb.live.calls != 1 {
		t.Fatalf("live probes = %d, want 1", tb.live.calls)
	}
}

func TestCooldownOnSuccessOnly(t *testing.T) {
	tb := newTestBot(t)
	now := time.Unix(1_700_000_000, 0)
	tb.d.now = func() time.Time { return now }

	if !tb.dispatch(t, "alice", "1", "!stats") {
		t.Fatal("first stats not handled")
	}
	tb.sender.lines = nil

	// Within the window: silent refusal.
	now = now.Add(10 * time.Second)
	tb.dispatch(t, "alice", "1", "!stats")
	if len(tb.sender.lines) != 0 {
		t.Fatalf("cooled-down command produced output: %v", tb.sender.lines)
	}

	// Per-user per-command: bob is unaffected.
	tb.dispatch(t, "bob", "2", "!stats")
	if len(tb.sender.lines) != 1 {
		t.Fatalf("bob should not share alice's cooldown: %v", tb.sender.lines)
	}

	// After expiry it works again.
	now = now.Add(30 * time.Second)
	tb.sender.lines = nil
	tb.dispatch(t, "alice", "1", "!stats")
	if len(tb.sender.lines) != 1 {
		t.Fatalf("expired cooldown still blocking: %v", tb.sender.lines)
	}
}

func TestFailedCommandSetsNoCooldown(t *testing.T) {
	tb := newTestBot(t)
	// !feed with no args is refused without touching the cooldown.
	tb.dispatch(t, "alice", "1", "!feed")
	if len(tb.d.cooldowns["feed"]) != 0 {
		t.Fatal("missing-args refusal set a cooldown")
	}
	// A domain refusal doesn't either.
	tb.dispatch(t, "alice", "1", "!hug")
	if len(tb.d.cooldowns["hug"]) != 0 {
		t.Fatal("domain refusal set a cooldown")
	}
}

func TestLazyAccountCreation(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.dispatch(t, "alice", "42", "!stats")
	if _, err := tb.store.GetField(ctx, "42", account.FieldAffection); err != nil {
		t.Fatalf("account not created on first command: %v", err)
	}

	// A user already in the store is picked up by the cache refresh, not
	// re-created.
	if err := tb.store.CreateAccount(ctx, "77", "carol"); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if err := tb.store.SetField(ctx, "77", account.FieldBondLevel, 9); err != nil {
		t.Fatalf("seed bond: %v", err)
	}
	tb.dispatch(t, "carol", "77", "!stats")
	if got, _ := tb.store.GetField(ctx, "77", account.FieldBondLevel); got != 9 {
		t.Fatalf("existing account clobbered: bond_level = %d", got)
	}
}

func TestPrivilegeRefusesSilently(t *testing.T) {
	tb := newTestBot(t)

	tb.dispatch(t, "alice", "1", "!shutdown")
	if tb.shutdowns != 0 {
		t.Fatal("non-host triggered shutdown")
	}
	if len(tb.sender.lines) != 0 {
		t.Fatalf("privilege refusal produced output: %v", tb.sender.lines)
	}

	tb.dispatch(t, "modesta", "2", "!shutdown")
	if tb.shutdowns != 0 {
		t.Fatal("mod triggered host-only shutdown")
	}

	tb.dispatch(t, "hosty", "3", "!shutdown")
	if tb.shutdowns != 1 {
		t.Fatal("host shutdown did not fire")
	}

	// Mods can run mod commands; host can too.
	tb.sender.lines = nil
	tb.dispatch(t, "modesta", "2", "!toggleonline")
	if len(tb.sender.lines) != 1 {
		t.Fatal("mod refused a mod command")
	}
}

func TestMentionBinding(t *testing.T) {
	tb := newTestBot(t)
	tb.ledger.balances["bob"] = 350

	tb.dispatch(t, "alice", "1", "!points @Bob")
	line := tb.sender.last(t)
	if !strings.Contains(line, "bob") || !strings.Contains(line, "350") {
		t.Fatalf("points line = %q", line)
	}

	// Without a mention the caller's own balance is reported.
	tb.ledger.balances["dave"] = 12
	tb.dispatch(t, "dave", "4", "!points")
	if !strings.Contains(tb.sender.last(t), "12") {
		t.Fatalf("self points line = %q", tb.sender.last(t))
	}
}
