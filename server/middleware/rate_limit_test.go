package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0), 2)

	require.True(t, rl.Allow("user/1"))
	require.True(t, rl.Allow("user/1"))
	require.False(t, rl.Allow("user/1"))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0), 1)

	require.True(t, rl.Allow("user/1"))
	require.False(t, rl.Allow("user/1"))
	require.True(t, rl.Allow("user/2"))
}
