// Package telegram encapsulates transport layer (not OSI, but generally telegram receive/send handlers).
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"ipril-bot/internal/dispatcher"
	"ipril-bot/internal/lang"
	"ipril-bot/internal/logutil"
)

const DefaultWorkers = 4

// Dispatcher turns one inbound message into one reply.
type Dispatcher interface {
	DispatchMessage(ctx context.Context, message *tgbotapi.Message) string
}

// api is the part of tgbotapi.BotAPI the bot talks to.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps is a carrier of dependencies for Bot.
type Deps struct {
	EventDispatcher Dispatcher
	Logger          *slog.Logger
}

// Opts is a carrier of options for Bot.
type Opts struct {
	Token   string
	Debug   bool
	Workers int
}

// Bot wraps a third-party telegram API implementation.
type Bot struct {
	botAPI          *tgbotapi.BotAPI
	api             api
	eventDispatcher Dispatcher
	logger          *slog.Logger
	workers         int
}

// NewBot instantiates underlying BotAPI instance and returns a new configured Bot.
func NewBot(deps Deps, opts Opts) (*Bot, error) {
	if deps.EventDispatcher == nil {
		return nil, errors.New("telegram: event dispatcher is required")
	}
	botAPI, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to init bot-api instance: %w", err)
	}
	botAPI.Debug = opts.Debug

	b := newBot(botAPI, deps, opts)
	b.botAPI = botAPI
	b.logger.Info("authorized on account", "name", botAPI.Self.UserName)

	return b, nil
}

func newBot(a api, deps Deps, opts Opts) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Bot{
		api:             a,
		eventDispatcher: deps.EventDispatcher,
		logger:          logger.With("component", "telegram"),
		workers:         opts.Workers,
	}
}

// SetupCommands publishes the command menu, once in English as the default and once per
// supported language for clients with a matching interface language.
func (b *Bot) SetupCommands() error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(botCommands(lang.Default)...)); err != nil {
		return fmt.Errorf("set default commands: %w", err)
	}

	var errs []error
	for _, code := range lang.Supported() {
		cfg := tgbotapi.NewSetMyCommandsWithScopeAndLanguage(
			tgbotapi.NewBotCommandScopeDefault(), string(code), botCommands(code)...)
		if _, err := b.api.Request(cfg); err != nil {
			errs = append(errs, fmt.Errorf("set %s commands: %w", code, err))
		}
	}
	return errors.Join(errs...)
}

func botCommands(code lang.Code) []tgbotapi.BotCommand {
	return lo.Map(dispatcher.Commands(), func(c dispatcher.Command, _ int) tgbotapi.BotCommand {
		return tgbotapi.BotCommand{
			Command:     string(c),
			Description: dispatcher.Description(c, code),
		}
	})
}

// Listen runs update receiving loop until ctx is done. Correct messages are provided to
// dispatcher by a bounded pool of workers; Listen returns after in-flight replies are sent.
func (b *Bot) Listen(ctx context.Context) error {
	if b.botAPI == nil {
		return errors.New("telegram: bot is not connected")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.botAPI.GetUpdatesChan(u)
	defer b.botAPI.StopReceivingUpdates()

	return b.serve(ctx, updates)
}

func (b *Bot) serve(ctx context.Context, updates <-chan tgbotapi.Update) error {
	var g errgroup.Group
	g.SetLimit(b.workers)

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case update, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			if update.Message == nil {
				b.logger.DebugContext(ctx, "skipping update without message", "update_id", update.UpdateID)
				continue
			}
			g.Go(func() error {
				b.handleUpdate(ctx, update)
				return nil
			})
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	logger := b.logger.With(
		"request_id", uuid.NewString(),
		"update_id", update.UpdateID,
		"chat_id", message.Chat.ID,
	)
	ctx = logutil.WithLogger(ctx, logger)

	if message.From != nil {
		logger.InfoContext(ctx, "message received", "user", message.From.UserName, "command", message.Command())
	}

	if !message.IsCommand() && message.Text != "" {
		if _, err := b.api.Request(tgbotapi.NewChatAction(message.Chat.ID, tgbotapi.ChatTyping)); err != nil {
			logger.WarnContext(ctx, "failed to send typing action", "error", err)
		}
	}

	response := b.eventDispatcher.DispatchMessage(ctx, message)
	if response == "" {
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, response)
	msg.ReplyToMessageID = message.MessageID

	if _, err := b.api.Send(msg); err != nil {
		logger.ErrorContext(ctx, "failed to send reply", "error", err)
	}
}
