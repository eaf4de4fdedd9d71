package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDomainLimiter_Disabled verifies a zero delay never blocks or tracks hosts
func TestDomainLimiter_Disabled(t *testing.T) {
	dl := NewDomainLimiter(0)

	require.NoError(t, dl.Wait(context.Background(), "https://example.com/a"))
	assert.Zero(t, dl.Hosts())
}

// TestDomainLimiter_EvictsIdleHosts verifies limiters of idle hosts are dropped
func TestDomainLimiter_EvictsIdleHosts(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	dl := NewDomainLimiter(time.Millisecond)
	dl.now = func() time.Time { return clock }

	ctx := context.Background()
	require.NoError(t, dl.Wait(ctx, "https://one.example.com/a"))
	require.NoError(t, dl.Wait(ctx, "https://two.example.com/a"))
	assert.Equal(t, 2, dl.Hosts())

	clock = clock.Add(limiterIdleTTL / 2)
	require.NoError(t, dl.Wait(ctx, "https://two.example.com/b"))

	clock = clock.Add(limiterIdleTTL/2 + time.Minute)
	require.NoError(t, dl.Wait(ctx, "https://three.example.com/a"))
	assert.Equal(t, 2, dl.Hosts(), "host one was idle past the TTL")
}

// TestDomainLimiter_Cancelled verifies waits honour context cancellation
func TestDomainLimiter_Cancelled(t *testing.T) {
	dl := NewDomainLimiter(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, dl.Wait(ctx, "https://example.com/a"), "the first request passes")
	cancel()
	assert.Error(t, dl.Wait(ctx, "https://example.com/b"))
}
