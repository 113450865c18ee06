package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/dghubble/trie"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ipril-bot/internal/correction"
	"ipril-bot/internal/history"
	"ipril-bot/internal/lang"
	"ipril-bot/internal/logutil"
	"ipril-bot/internal/metrics"
)

// Corrector is the grammar service as seen by the dispatcher.
type Corrector interface {
	Correct(ctx context.Context, req correction.Request) (correction.Result, error)
	Label(code lang.Code) string
}

// Preferences stores the language chosen by each user.
type Preferences interface {
	Get(userID int64) lang.Code
	Set(userID int64, code string) (lang.Code, error)
	Ensure(userID int64) error
}

// Limiter gates plain text messages per user.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
	RetryAfter(key string) time.Duration
}

// Deps is a carrier of dependencies for event dispatcher.
type Deps struct {
	Corrector   Corrector
	Preferences Preferences
	Limiter     Limiter
	History     *history.Book
	Metrics     *metrics.Metrics
}

// EventDispatcher dispatches commands according to command prefixes and other heuristics.
// Command inputs are handled via fuzzy search, everything else goes to the corrector.
type EventDispatcher struct {
	corrector   Corrector
	preferences Preferences
	limiter     Limiter
	history     *history.Book
	metrics     *metrics.Metrics

	commandTrie atomic.Pointer[trie.RuneTrie]
}

// NewEventDispatcher creates EventDispatcher instance with built command trie.
func NewEventDispatcher(deps Deps) (*EventDispatcher, error) {
	switch {
	case deps.Corrector == nil:
		return nil, errors.New("dispatcher: corrector is required")
	case deps.Preferences == nil:
		return nil, errors.New("dispatcher: preferences are required")
	case deps.Limiter == nil:
		return nil, errors.New("dispatcher: limiter is required")
	}
	if deps.History == nil {
		deps.History = history.NewBook(history.Opts{})
	}

	ed := &EventDispatcher{
		corrector:   deps.Corrector,
		preferences: deps.Preferences,
		limiter:     deps.Limiter,
		history:     deps.History,
		metrics:     deps.Metrics,
	}
	if err := ed.buildTrie(); err != nil {
		return nil, err
	}

	return ed, nil
}

func (ed *EventDispatcher) buildTrie() error {
	commandTrie := trie.NewRuneTrie()
	for _, command := range globalCommandList {
		commandTrie.Put(string(command), command)
	}

	ed.commandTrie.Store(commandTrie)
	return nil
}

// DispatchMessage returns the single reply for message. It never fails: lower level
// errors are logged and turned into a message in the user's language.
func (ed *EventDispatcher) DispatchMessage(ctx context.Context, message *tgbotapi.Message) string {
	userID := senderID(message)
	logger := logutil.FromContext(ctx).With("user_id", userID)
	ctx = logutil.WithLogger(ctx, logger)

	if message.IsCommand() {
		ed.metrics.Update("command")
		return ed.handleCommand(ctx, userID, message)
	}

	ed.metrics.Update("text")
	return ed.handleText(ctx, userID, message.Text)
}

func (ed *EventDispatcher) handleCommand(ctx context.Context, userID int64, message *tgbotapi.Message) string {
	code := ed.preferences.Get(userID)
	r := repliesFor(code)

	parsedCommands, exact := ed.getRelevantCommands(strings.ToLower(message.Command()))
	if !exact {
		if len(parsedCommands) == 0 {
			return r.UnknownCommand
		}

		return clarifyCommandReply(r, parsedCommands)
	}

	switch parsedCommands[0] {
	case StartCommand:
		return ed.handleStart(ctx, userID)
	case HelpCommand:
		return helpReply(r)
	case SetLanguageCommand:
		return ed.handleSetLanguage(ctx, userID, message.CommandArguments())
	case CurrentLanguageCommand:
		return fmt.Sprintf(r.CurrentLanguage, code.Name(), code)
	}

	return r.UnknownCommand
}

func (ed *EventDispatcher) handleStart(ctx context.Context, userID int64) string {
	if err := ed.preferences.Ensure(userID); err != nil {
		// the welcome still goes out, the user just starts with in-memory defaults
		logutil.FromContext(ctx).ErrorContext(ctx, "failed to register user", "op", "start", "error", err)
	}
	return welcomeReply(repliesFor(ed.preferences.Get(userID)))
}

func (ed *EventDispatcher) handleSetLanguage(ctx context.Context, userID int64, args string) string {
	logger := logutil.FromContext(ctx)
	prev := ed.preferences.Get(userID)
	r := repliesFor(prev)

	fields := strings.Fields(args)
	if len(fields) == 0 {
		return r.SetLangUsage
	}

	code, err := ed.preferences.Set(userID, fields[0])
	switch {
	case errors.Is(err, lang.ErrInvalidLanguage):
		logger.InfoContext(ctx, "rejected language", "op", "setlang", "input", fields[0])
		return fmt.Sprintf(r.UnsupportedLanguage, fields[0], strings.Join(lang.Codes(), ", "))
	case err != nil:
		logger.ErrorContext(ctx, "failed to set language", "op", "setlang", "error", err)
		return r.StorageError
	}

	if code != prev {
		// earlier turns are in the old language
		ed.history.Reset(userID)
	}
	ed.metrics.LanguageChanged(string(code))
	return fmt.Sprintf(repliesFor(code).LanguageSet, code.Name())
}

func (ed *EventDispatcher) handleText(ctx context.Context, userID int64, text string) string {
	logger := logutil.FromContext(ctx)
	code := ed.preferences.Get(userID)
	r := repliesFor(code)

	if strings.TrimSpace(text) == "" {
		return r.EmptyMessage
	}
	if err := ed.preferences.Ensure(userID); err != nil {
		logger.ErrorContext(ctx, "failed to register user", "op", "correct", "error", err)
	}

	key := strconv.FormatInt(userID, 10)
	if !ed.limiter.Allow(ctx, key) {
		ed.metrics.RateLimited()
		wait := ed.limiter.RetryAfter(key)
		logger.InfoContext(ctx, "rate limited", "op", "correct", "retry_after", wait)
		return fmt.Sprintf(r.RateLimited, retrySeconds(wait))
	}

	start := time.Now()
	res, err := ed.corrector.Correct(ctx, correction.Request{
		User:     key,
		Text:     text,
		Language: code,
		History:  ed.history.Snapshot(userID),
	})
	if err != nil {
		ed.metrics.Correction("error", time.Since(start))
		logger.ErrorContext(ctx, "correction failed", "op", "correct", "language", code, "error", err)
		if errors.Is(err, correction.ErrEmptyText) {
			return r.EmptyMessage
		}
		return r.ServiceError
	}

	outcome := "parsed"
	if !res.Parsed {
		outcome = "unparsed"
		logger.WarnContext(ctx, "unparsed correction reply", "op", "correct", "language", code)
	}
	ed.metrics.Correction(outcome, time.Since(start))

	ed.history.Append(userID,
		history.Turn{Role: history.RoleUser, Content: text},
		history.Turn{Role: history.RoleAssistant, Content: res.Raw},
	)

	if res.Label == "" {
		res.Label = ed.corrector.Label(code)
	}
	return formatCorrection(text, res)
}

func (ed *EventDispatcher) getRelevantCommands(command string) ([]Command, bool) {
	ct := ed.commandTrie.Load()
	if x := ct.Get(command); x != nil {
		return []Command{x.(Command)}, true
	}

	const maxDistance = 3
	var closestCommands []Command
	_ = ct.Walk(func(key string, value any) error {
		c := value.(Command)
		distance := levenshtein.ComputeDistance(command, key)
		if distance < maxDistance || (command != "" && strings.HasPrefix(key, command)) {
			closestCommands = append(closestCommands, c)
		}
		return nil
	})

	return closestCommands, false
}

// formatCorrection drops the bracket when the text needed no change and the
// service only asked its question.
func formatCorrection(input string, res correction.Result) string {
	if !res.Parsed {
		return res.Raw
	}
	if res.FollowUp != "" && sameText(input, res.Corrected) {
		return res.FollowUp
	}

	corrected := fmt.Sprintf("[%s %s]", res.Label, res.Corrected)
	if res.FollowUp == "" {
		return corrected
	}
	return corrected + "\n\n" + res.FollowUp
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}

func retrySeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

func welcomeReply(r *replies) string {
	return strings.Join([]string{
		r.WelcomeTitle,
		r.WelcomeIntro + "\n" + describeLanguages(),
		r.CommandsTitle + "\n" + describeCommands(r),
		r.WelcomeOutro,
	}, "\n\n")
}

func helpReply(r *replies) string {
	return strings.Join([]string{
		r.HelpTitle,
		r.HelpUsage,
		r.CommandsTitle + "\n" + describeCommands(r),
		fmt.Sprintf(r.HelpLanguages, strings.Join(lang.Codes(), ", ")),
	}, "\n\n")
}

func clarifyCommandReply(r *replies, parsedCommands []Command) string {
	similarCommands := strings.Join(buildCommandList(parsedCommands), ", ")

	return fmt.Sprintf(r.DidYouMean, similarCommands)
}

func senderID(message *tgbotapi.Message) int64 {
	if message.From != nil {
		return message.From.ID
	}
	if message.Chat != nil {
		return message.Chat.ID
	}
	return 0
}
