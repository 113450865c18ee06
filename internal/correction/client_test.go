package correction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipril-bot/internal/history"
	"ipril-bot/internal/lang"
)

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:     "cmpl-1",
		Object: "chat.completion",
		Model:  DefaultModel,
		Choices: []openai.ChatCompletionChoice{{
			Index:   0,
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		}},
	}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestCorrect_Success(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("[Korrektur: Ich gehe nach Hause] Wohnst du weit weg?"))
	})

	c := NewClient(Opts{ApiKey: "secret", BaseURL: srv.URL + "/v1", HistoryWindow: 2})
	res, err := c.Correct(context.Background(), Request{
		User:     "42",
		Text:     "Ich gehen nach Hause",
		Language: lang.German,
		History: []history.Turn{
			{Role: history.RoleUser, Content: "old"},
			{Role: history.RoleUser, Content: "Hallo"},
			{Role: history.RoleAssistant, Content: "[Korrektur: Hallo] Wie geht's?"},
		},
	})
	require.NoError(t, err)

	assert.True(t, res.Parsed)
	assert.Equal(t, "Ich gehe nach Hause", res.Corrected)
	assert.Equal(t, "Wohnst du weit weg?", res.FollowUp)
	assert.Equal(t, "Korrektur:", res.Label)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 4, "system + two trailing turns + the new text")
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "German")
	assert.Contains(t, got.Messages[0].Content, "Korrektur:")
	assert.Equal(t, "Hallo", got.Messages[1].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, got.Messages[2].Role)
	assert.Equal(t, "Ich gehen nach Hause", got.Messages[3].Content)
}

func TestCorrect_LiteralLabelMode(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(completion("[Correction: Tengo hambre] ¿Qué quieres comer?"))
	})

	c := NewClient(Opts{BaseURL: srv.URL + "/v1", LabelMode: LabelLiteral})
	res, err := c.Correct(context.Background(), Request{Text: "Tengo hambre", Language: lang.Spanish})
	require.NoError(t, err)

	assert.Equal(t, "Correction:", res.Label)
	assert.Contains(t, got.Messages[0].Content, `"Correction:"`)
	assert.NotContains(t, got.Messages[0].Content, "Corrección:")
}

func TestCorrect_MalformedReplyIsNotAnError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion("Looks fine to me!"))
	})

	c := NewClient(Opts{BaseURL: srv.URL + "/v1"})
	res, err := c.Correct(context.Background(), Request{Text: "hello", Language: lang.English})
	require.NoError(t, err)

	assert.False(t, res.Parsed)
	assert.Equal(t, "Looks fine to me!", res.Corrected)
	assert.Empty(t, res.FollowUp)
}

func TestCorrect_ServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "x"})
			},
		},
		{
			name: "blank content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(completion("   "))
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>bad gateway</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.handler)
			c := NewClient(Opts{BaseURL: srv.URL + "/v1"})

			_, err := c.Correct(context.Background(), Request{Text: "hi", Language: lang.English})
			assert.ErrorIs(t, err, ErrService)
		})
	}
}

func TestCorrect_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := NewClient(Opts{BaseURL: srv.URL + "/v1", Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := c.Correct(context.Background(), Request{Text: "hi", Language: lang.English})
	assert.ErrorIs(t, err, ErrService)
	assert.Less(t, time.Since(start), 2*time.Second)
}

type denyThrottle struct{}

func (denyThrottle) Wait(context.Context) error { return context.DeadlineExceeded }

func TestCorrect_ThrottleFailure(t *testing.T) {
	called := false
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	c := NewClient(Opts{BaseURL: srv.URL + "/v1", Throttle: denyThrottle{}})
	_, err := c.Correct(context.Background(), Request{Text: "hi", Language: lang.English})

	assert.ErrorIs(t, err, ErrService)
	assert.False(t, called)
}

func TestCorrect_EmptyText(t *testing.T) {
	c := NewClient(Opts{BaseURL: "http://127.0.0.1:1/v1"})
	_, err := c.Correct(context.Background(), Request{Text: "  "})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestParseLabelMode(t *testing.T) {
	m, err := ParseLabelMode("")
	require.NoError(t, err)
	assert.Equal(t, LabelLocalized, m)

	m, err = ParseLabelMode(" Literal ")
	require.NoError(t, err)
	assert.Equal(t, LabelLiteral, m)

	_, err = ParseLabelMode("shouting")
	assert.Error(t, err)
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(lang.Italian, "Correzione:")
	assert.True(t, strings.Contains(p, "Italian"))
	assert.Contains(t, p, "[Correzione: CORRECTED_TEXT] FOLLOW_UP_QUESTION")
}
