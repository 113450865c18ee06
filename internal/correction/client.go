// Package correction asks an OpenAI-compatible chat service to fix the grammar of a
// message and to continue the conversation with a follow-up question.
package correction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"ipril-bot/internal/history"
	"ipril-bot/internal/lang"
)

const (
	DefaultBaseURL     = "https://api.deepseek.com/v1"
	DefaultModel       = "deepseek-chat"
	DefaultTimeout     = 15 * time.Second
	defaultTemperature = 0.7
	defaultMaxTokens   = 300
)

var (
	// ErrService covers every failure of the remote call: transport, status, timeout, empty reply.
	ErrService   = errors.New("correction service error")
	ErrEmptyText = errors.New("empty text")
)

// Throttle is a shared quota in front of the remote service.
type Throttle interface {
	Wait(ctx context.Context) error
}

type Opts struct {
	ApiKey   string
	BaseURL  string
	Model    string
	ProxyURL *url.URL

	Timeout       time.Duration
	LabelMode     LabelMode
	HistoryWindow int
	Temperature   float32
	MaxTokens     int

	Throttle Throttle
	// HTTPClient replaces the default client, used by tests.
	HTTPClient *http.Client
}

type Client struct {
	api *openai.Client

	model         string
	timeout       time.Duration
	labelMode     LabelMode
	historyWindow int
	temperature   float32
	maxTokens     int
	throttle      Throttle
}

func NewClient(opts Opts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.LabelMode == "" {
		opts.LabelMode = LabelLocalized
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = history.DefaultWindow
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}

	config := openai.DefaultConfig(opts.ApiKey)
	config.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	switch {
	case opts.HTTPClient != nil:
		config.HTTPClient = opts.HTTPClient
	case opts.ProxyURL != nil:
		config.HTTPClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(opts.ProxyURL),
			},
			Timeout: opts.Timeout,
		}
	default:
		config.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		api:           openai.NewClientWithConfig(config),
		model:         opts.Model,
		timeout:       opts.Timeout,
		labelMode:     opts.LabelMode,
		historyWindow: opts.HistoryWindow,
		temperature:   opts.Temperature,
		maxTokens:     opts.MaxTokens,
		throttle:      opts.Throttle,
	}
}

type Request struct {
	// User is forwarded to the service for abuse tracking.
	User     string
	Text     string
	Language lang.Code
	// History holds earlier turns, oldest first, without Text.
	History []history.Turn
}

type Result struct {
	Corrected string
	FollowUp  string
	// Label is the correction marker found in the reply, empty when unparsed.
	Label  string
	Raw    string
	Parsed bool
}

// Label returns the marker the service is asked to use for code.
func (c *Client) Label(code lang.Code) string {
	return c.labelMode.Label(code)
}

// Correct sends text with its trailing context and parses the answer. Malformed answers
// are not errors: they come back unparsed with the raw text as correction.
func (c *Client) Correct(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, ErrEmptyText
	}
	if !req.Language.Valid() {
		req.Language = lang.Default
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.throttle != nil {
		if err := c.throttle.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("%w: waiting for quota: %v", ErrService, err)
		}
	}

	label := c.Label(req.Language)
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		User:        req.User,
		Model:       c.model,
		Messages:    c.buildMessages(req, label),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("%w: no answer within %s: %v", ErrService, c.timeout, ctxErr)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrService, err)
	}

	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: no choices in response", ErrService)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return Result{}, fmt.Errorf("%w: empty completion", ErrService)
	}

	res := ParseReply(content, labelsFor(label)...)
	slog.DebugContext(ctx, "correction received",
		"language", req.Language, "parsed", res.Parsed, "elapsed", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)

	return res, nil
}

func (c *Client) buildMessages(req Request, label string) []openai.ChatCompletionMessage {
	turns := history.Trim(req.History, c.historyWindow)

	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt(req.Language, label),
	})
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == history.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Text,
	})
	return messages
}

// labelsFor puts the requested label first so it wins over other known markers.
func labelsFor(label string) []string {
	labels := []string{label}
	for _, l := range lang.Labels() {
		if l != label {
			labels = append(labels, l)
		}
	}
	return labels
}
