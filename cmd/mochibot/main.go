package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mochibot/internal/account"
	"mochibot/internal/api"
	"mochibot/internal/bot"
	"mochibot/internal/catalog"
	"mochibot/internal/config"
	"mochibot/internal/db"
	"mochibot/internal/irc"
	"mochibot/internal/ledger"
	"mochibot/internal/pet"
	"mochibot/internal/twitch"
)

func main() {
	root := &cobra.Command{
		Use:          "mochibot",
		Short:        "Community chat bot with a virtual pet economy",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newDecayCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// openStore builds the configured account store backend. The returned close
// function is safe to call exactly once.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (account.Store, func(), error) {
	switch cfg.Backend {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect failed: %w", err)
		}
		store, err := account.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case "sqlite":
		store, err := account.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "memory":
		logger.Warn("memory store selected; state is lost on restart")
		return account.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to chat and serve commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger()

			store, closeStore, err := openStore(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			cat := catalog.New(cfg.Bot.ActivitiesPath, cfg.Bot.StorePath, cfg.Bot.ResponsesPath, logger)
			if err := cat.Reload(); err != nil {
				// Degraded start: the empty snapshot refuses every item
				// lookup until !reload or the admin API loads a good catalog.
				logger.Error("catalog load failed; starting with an empty catalog", "err", err)
			}

			chat, err := irc.Dial(cfg.Twitch.IRCAddr, cfg.Bot.BotName, cfg.Twitch.IRCToken, cfg.Bot.Channel, logger)
			if err != nil {
				return err
			}
			defer chat.Close()

			dispatcher := bot.New(bot.Options{
				Prefix:         cfg.Bot.Prefix,
				Channel:        cfg.Bot.Channel,
				Host:           cfg.Bot.Host,
				Mods:           cfg.Bot.ModList(),
				CooldownWindow: cfg.Bot.CommandCooldown,
				RollcallReward: cfg.Bot.RollcallReward,
				Store:          store,
				Ledger:         ledger.NewClient(cfg.Ledger.BaseURL, cfg.Ledger.ChannelID, cfg.Ledger.JWT),
				Catalog:        cat,
				Bonds:          pet.NewBondResolver(store, logger),
				Shop:           pet.NewStoreResolver(store, logger),
				Live:           twitch.NewLiveChecker(cfg.Twitch.HelixURL, cfg.Twitch.ClientID, cfg.Bot.Channel, cfg.Twitch.LiveCache),
				Sender:         chat,
				Logger:         logger,
				Shutdown:       stop,
			})

			go pet.NewScheduler(store, cfg.Scheduler.DecayEvery, logger).Run(ctx)

			admin := &http.Server{
				Addr:              cfg.Admin.Addr,
				Handler:           api.New(cfg.Admin, logger, store, cat).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				logger.Info("admin api listening", "addr", cfg.Admin.Addr)
				if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("admin server failed", "err", err)
				}
			}()

			// Unblock the chat read loop when the context ends.
			go func() {
				<-ctx.Done()
				chat.Close()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = admin.Shutdown(shutdownCtx)
			}()

			logger.Info("mochibot connected", "channel", cfg.Bot.Channel)
			for {
				msg, err := chat.ReadMessage()
				if err != nil {
					if ctx.Err() != nil {
						logger.Info("mochibot shutting down")
						return nil
					}
					return fmt.Errorf("chat connection lost: %w", err)
				}
				dispatcher.Dispatch(ctx, msg.User, msg.UserID, msg.Text)
			}
		},
	}
}

func newDecayCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "decay",
		Short: "Run the nightly happiness aggregation and affection decay",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger()

			store, closeStore, err := openStore(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			sched := pet.NewScheduler(store, cfg.Scheduler.DecayEvery, logger)
			if once {
				return sched.RunOnce(ctx)
			}
			sched.Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	return cmd
}
