package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MOCHI_CHANNEL", "SomeChannel")
	t.Setenv("MOCHI_HOST", "Hosty")
	t.Setenv("MOCHI_DB_BACKEND", "memory")
	t.Setenv("LEDGER_CHANNEL_ID", "chan123")
	t.Setenv("LEDGER_JWT", "jwt")
	t.Setenv("TWITCH_CLIENT_ID", "cid")
	t.Setenv("TWITCH_IRC_TOKEN", "tok")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bot.Channel != "somechannel" || cfg.Bot.Host != "hosty" {
		t.Fatalf("channel/host not lowercased: %q %q", cfg.Bot.Channel, cfg.Bot.Host)
	}
	if cfg.Bot.Prefix != "!" {
		t.Fatalf("prefix = %q", cfg.Bot.Prefix)
	}
	if cfg.Bot.CommandCooldown != 30*time.Second {
		t.Fatalf("cooldown = %s", cfg.Bot.CommandCooldown)
	}
	if cfg.Bot.RollcallReward != 100 {
		t.Fatalf("rollcall reward = %d", cfg.Bot.RollcallReward)
	}
	if cfg.Database.MaxConns != 8 {
		t.Fatalf("max conns = %d", cfg.Database.MaxConns)
	}
	if cfg.Scheduler.DecayEvery != 24*time.Hour {
		t.Fatalf("decay every = %s", cfg.Scheduler.DecayEvery)
	}
}

func TestLoadPostgresRequiresURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MOCHI_DB_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("postgres backend without DATABASE_URL must fail")
	}
}

func TestModList(t *testing.T) {
	b := BotConfig{Mods: " Modesta, ,OtherMod "}
	got := b.ModList()
	if len(got) != 2 || got[0] != "modesta" || got[1] != "othermod" {
		t.Fatalf("mod list = %v", got)
	}
}
