package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the bot process needs, loaded from environment
// variables (with an optional local .env file).
type Config struct {
	Bot       BotConfig
	Database  DatabaseConfig
	Ledger    LedgerConfig
	Twitch    TwitchConfig
	Admin     AdminConfig
	Scheduler SchedulerConfig
}

// BotConfig holds chat identity and command behavior settings.
type BotConfig struct {
	Channel         string        `envconfig:"MOCHI_CHANNEL" required:"true"`
	BotName         string        `envconfig:"MOCHI_BOT_NAME" default:"mochibot"`
	Host            string        `envconfig:"MOCHI_HOST" required:"true"`
	Mods            string        `envconfig:"MOCHI_MODS" default:""`
	Prefix          string        `envconfig:"MOCHI_PREFIX" default:"!"`
	CommandCooldown time.Duration `envconfig:"MOCHI_COMMAND_COOLDOWN" default:"30s"`
	ActivitiesPath  string        `envconfig:"MOCHI_ACTIVITIES_PATH" default:"./bonds.json"`
	StorePath       string        `envconfig:"MOCHI_STORE_PATH" default:"./store.json"`
	ResponsesPath   string        `envconfig:"MOCHI_RESPONSES_PATH" default:"./responses.json"`
	RollcallReward  int64         `envconfig:"MOCHI_ROLLCALL_REWARD" default:"100"`
}

// DatabaseConfig selects the account store backend.
type DatabaseConfig struct {
	Backend  string `envconfig:"MOCHI_DB_BACKEND" default:"postgres"` // postgres, sqlite, or memory
	URL      string `envconfig:"DATABASE_URL" default:""`
	Path     string `envconfig:"MOCHI_SQLITE_PATH" default:"./data/mochi.db"`
	MaxConns int32  `envconfig:"MOCHI_DB_MAX_CONNS" default:"8"`
}

// LedgerConfig points at the channel-points ledger service.
type LedgerConfig struct {
	BaseURL   string `envconfig:"LEDGER_BASE_URL" default:"https://api.streamelements.com/kappa/v2"`
	ChannelID string `envconfig:"LEDGER_CHANNEL_ID" required:"true"`
	JWT       string `envconfig:"LEDGER_JWT" required:"true"`
}

// TwitchConfig holds Helix credentials for the liveness probe and the
// OAuth token used by the IRC connection.
type TwitchConfig struct {
	ClientID  string        `envconfig:"TWITCH_CLIENT_ID" required:"true"`
	IRCToken  string        `envconfig:"TWITCH_IRC_TOKEN" required:"true"`
	IRCAddr   string        `envconfig:"TWITCH_IRC_ADDR" default:"irc.chat.twitch.tv:6667"`
	HelixURL  string        `envconfig:"TWITCH_HELIX_URL" default:"https://api.twitch.tv/helix"`
	LiveCache time.Duration `envconfig:"TWITCH_LIVE_CACHE" default:"60s"`
}

// AdminConfig holds the operator HTTP server settings.
type AdminConfig struct {
	Addr string `envconfig:"MOCHI_ADMIN_ADDR" default:":8090"`
	Key  string `envconfig:"MOCHI_ADMIN_KEY" default:""`
}

// SchedulerConfig controls the nightly decay job.
type SchedulerConfig struct {
	DecayEvery time.Duration `envconfig:"MOCHI_DECAY_EVERY" default:"24h"`
}

// ModList returns the configured moderator names, lowercased.
func (b *BotConfig) ModList() []string {
	if strings.TrimSpace(b.Mods) == "" {
		return nil
	}
	parts := strings.Split(b.Mods, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Bot.Channel = strings.ToLower(strings.TrimSpace(cfg.Bot.Channel))
	cfg.Bot.Host = strings.ToLower(strings.TrimSpace(cfg.Bot.Host))
	if cfg.Database.Backend == "postgres" && strings.TrimSpace(cfg.Database.URL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}
	return &cfg, nil
}
