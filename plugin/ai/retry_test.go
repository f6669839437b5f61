package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flakyLLM struct {
	failures int
	err      error
	calls    int
}

func (l *flakyLLM) Chat(context.Context, []Message) (string, error) {
	l.calls++
	if l.calls <= l.failures {
		return "", l.err
	}
	return "ok", nil
}

func TestWithRetryRecoversFromTransientError(t *testing.T) {
	inner := &flakyLLM{failures: 2, err: errors.New("429 too many requests")}
	llm := &retryingLLM{inner: inner, maxRetries: 2, baseDelay: time.Millisecond}

	out, err := llm.Chat(context.Background(), []Message{UserMessage("hi")})
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 3, inner.calls)
}

func TestWithRetryGivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyLLM{failures: 10, err: errors.New("503 service unavailable")}
	llm := &retryingLLM{inner: inner, maxRetries: 2, baseDelay: time.Millisecond}

	_, err := llm.Chat(context.Background(), []Message{UserMessage("hi")})
	require.Error(t, err)
	require.Equal(t, 3, inner.calls)
	require.Contains(t, err.Error(), "after 3 attempt(s)")
}

func TestWithRetryDoesNotRetryPermanentError(t *testing.T) {
	inner := &flakyLLM{failures: 10, err: errors.New("401 invalid api key")}
	llm := &retryingLLM{inner: inner, maxRetries: 2, baseDelay: time.Millisecond}

	_, err := llm.Chat(context.Background(), []Message{UserMessage("hi")})
	require.Error(t, err)
	require.Equal(t, 1, inner.calls)

	// The error reports how many calls were actually made, not the budget.
	require.Contains(t, err.Error(), "after 1 attempt(s)")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err       string
		retryable bool
	}{
		{"429 too many requests", true},
		{"502 bad gateway", true},
		{"dial tcp: connection refused", true},
		{"context deadline exceeded", true},
		{"unexpected EOF", true},
		{"401 invalid api key", false},
		{"unsupported LLM provider", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.retryable, isRetryable(errors.New(tt.err)), tt.err)
	}
}

func TestConvertMessages(t *testing.T) {
	out := convertMessages([]Message{
		SystemPrompt("be brief"),
		UserMessage("hello"),
		{Role: "assistant", Content: "hi"},
		{Role: "mystery", Content: "defaults to user"},
	})
	require.Len(t, out, 4)
	require.Equal(t, "system", out[0].Role)
	require.Equal(t, "user", out[1].Role)
	require.Equal(t, "assistant", out[2].Role)
	require.Equal(t, "user", out[3].Role)
}
