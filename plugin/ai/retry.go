package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// ChatTimeout bounds a single LLM chat call.
	ChatTimeout = 2 * time.Minute
	// EmbeddingTimeout bounds a single embedding call.
	EmbeddingTimeout = 30 * time.Second
)

// retryingLLM wraps an LLMService with a per-call timeout and exponential
// backoff on transient provider errors.
type retryingLLM struct {
	inner      LLMService
	maxRetries int
	baseDelay  time.Duration
}

// WithRetry wraps an LLMService with bounded retry.
func WithRetry(inner LLMService, maxRetries int) LLMService {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &retryingLLM{inner: inner, maxRetries: maxRetries, baseDelay: 500 * time.Millisecond}
}

func (r *retryingLLM) Chat(ctx context.Context, messages []Message) (string, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, ChatTimeout)
		content, err := r.inner.Chat(callCtx, messages)
		cancel()
		attempts++
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == r.maxRetries {
			break
		}
		if err := backoff(ctx, r.baseDelay, attempt); err != nil {
			return "", lastErr
		}
	}
	return "", fmt.Errorf("after %d attempt(s): %w", attempts, lastErr)
}

func isRetryable(err error) bool {
	msg := err.Error()
	// Rate limits, server errors, connection issues.
	for _, s := range []string{"429", "500", "502", "503", "connection refused", "timeout", "deadline exceeded", "EOF", "reset by peer"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func backoff(ctx context.Context, base time.Duration, attempt int) error {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > 10*time.Second {
		delay = 10 * time.Second
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
