package main

import (
	"context"
	"fmt"
	"log/slog"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"ipril-bot/internal/backup"
	"ipril-bot/internal/closer"
	"ipril-bot/internal/config"
	"ipril-bot/internal/correction"
	"ipril-bot/internal/dispatcher"
	"ipril-bot/internal/history"
	"ipril-bot/internal/metrics"
	"ipril-bot/internal/prefstore"
	"ipril-bot/internal/telegram"
	"ipril-bot/pkg/ratelimiter"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, v)
		},
	}
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}
	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	cls := closer.NewCloser(logger, 0, syscall.SIGINT, syscall.SIGTERM)
	defer cls.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	cls.Add("context", func(context.Context) error {
		cancel()
		return nil
	})

	m := metrics.New()

	store := prefstore.NewStore(prefstore.Opts{Path: cfg.Storage.DataFile, Logger: logger})
	store.Load()

	limiter := ratelimiter.NewRatelimiter(ratelimiter.Opts{
		Limit:       cfg.RateLimit.Count,
		Window:      cfg.RateLimit.Window,
		GlobalLimit: cfg.Correction.GlobalLimit,
	})

	corrector := correction.NewClient(correctionOpts(cfg.Correction, limiter))
	book := history.NewBook(history.Opts{
		Window: cfg.Correction.HistoryWindow,
		Idle:   cfg.Correction.HistoryIdle,
	})

	eventDispatcher, err := dispatcher.NewEventDispatcher(dispatcher.Deps{
		Corrector:   corrector,
		Preferences: store,
		Limiter:     limiter,
		History:     book,
		Metrics:     m,
	})
	if err != nil {
		return fmt.Errorf("failed to init event dispatcher: %w", err)
	}

	bot, err := telegram.NewBot(
		telegram.Deps{EventDispatcher: eventDispatcher, Logger: logger},
		telegram.Opts{Token: cfg.Telegram.Token, Debug: cfg.Telegram.Debug, Workers: cfg.Telegram.Workers},
	)
	if err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}
	if err := bot.SetupCommands(); err != nil {
		logger.Warn("failed to publish command menu", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Listen(ctx)
	})

	if cfg.Backup.Enabled {
		task, err := newBackupTask(cfg, logger, m)
		if err != nil {
			return err
		}
		g.Go(func() error {
			task.Run(ctx)
			return nil
		})
	}

	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return m.Serve(ctx, cfg.Metrics.Addr)
		})
	}

	logger.Info("bot started",
		"users", store.Len(), "rate_limit", cfg.RateLimit.Count, "rate_window", cfg.RateLimit.Window,
		"workers", cfg.Telegram.Workers, "backup", cfg.Backup.Enabled)

	// the closer cancels ctx on a signal; an early failure cancels it through g
	err = g.Wait()
	logger.Info("bot stopped")
	return err
}

func correctionOpts(c config.Correction, throttle correction.Throttle) correction.Opts {
	return correction.Opts{
		ApiKey:        c.ApiKey,
		BaseURL:       c.BaseURL,
		Model:         c.Model,
		ProxyURL:      c.ProxyURL,
		Timeout:       c.Timeout,
		LabelMode:     c.LabelMode,
		HistoryWindow: c.HistoryWindow,
		Throttle:      throttle,
	}
}

func newBackupTask(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*backup.Task, error) {
	task, err := backup.NewTask(backup.Opts{
		Source: cfg.Storage.DataFile,
		Dir:    cfg.Backup.Dir,
		At:     cfg.Backup.Time,
		Logger: logger,
		Observe: func(o backup.Outcome) {
			m.Backup(string(o))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init backup task: %w", err)
	}
	return task, nil
}
