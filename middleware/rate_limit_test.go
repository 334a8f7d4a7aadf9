package middleware

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-chat/relay_api/model"
	"github.com/blackwell-chat/relay_api/shared"
)

func newTestLimiter() *RateLimitMiddleware {
	svc := &RateLimitMiddleware{}
	svc.entries = make(map[string]*rateLimitEntry)
	svc.initDefaultConfigs()
	return svc
}

func TestAdmitAllowsUpToBudget(t *testing.T) {
	svc := newTestLimiter()
	limit := model.RouteLimit{Endpoint: "send", MaxCalls: 10, Window: 60 * time.Second}

	for i := 0; i < 10; i++ {
		info, err := svc.Admit("198.51.100.7", limit)
		require.NoError(t, err, "request %d should be admitted", i+1)
		assert.True(t, info.Allowed)
	}

	info, err := svc.Admit("198.51.100.7", limit)
	require.Error(t, err)
	assert.False(t, info.Allowed)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 429, appErr.StatusCode)
	assert.Equal(t, shared.StatusTooManyRequests, appErr.Status)

	require.NotNil(t, info.BlockedUntil)
	retryIn := time.Until(*info.BlockedUntil)
	assert.Greater(t, retryIn, 55*time.Second)
	assert.LessOrEqual(t, retryIn, 60*time.Second)
}

func TestAdmitRejectsWhileBlocked(t *testing.T) {
	svc := newTestLimiter()
	limit := model.RouteLimit{Endpoint: "login", MaxCalls: 2, Window: 30 * time.Second}

	_, err := svc.Admit("10.0.0.1", limit)
	require.NoError(t, err)
	_, err = svc.Admit("10.0.0.1", limit)
	require.NoError(t, err)

	_, err = svc.Admit("10.0.0.1", limit)
	require.Error(t, err)

	// Every further call while blocked is rejected too.
	for i := 0; i < 3; i++ {
		_, err = svc.Admit("10.0.0.1", limit)
		assert.Error(t, err)
	}
}

func TestAdmitUnblocksAfterBlockLapses(t *testing.T) {
	svc := newTestLimiter()
	limit := model.RouteLimit{Endpoint: "send", MaxCalls: 1, Window: 30 * time.Second}

	_, err := svc.Admit("10.0.0.2", limit)
	require.NoError(t, err)
	_, err = svc.Admit("10.0.0.2", limit)
	require.Error(t, err)

	// Rewind the block so it has already lapsed.
	svc.mu.Lock()
	entry := svc.entries["10.0.0.2"]
	svc.mu.Unlock()
	entry.mu.Lock()
	entry.blockedUntil = time.Now().Add(-time.Second)
	entry.mu.Unlock()

	info, err := svc.Admit("10.0.0.2", limit)
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	// Fresh window: the first request of a new count.
	assert.Equal(t, limit.MaxCalls-1, info.Remaining)
}

func TestAdmitDiscardsStaleWindow(t *testing.T) {
	svc := newTestLimiter()
	limit := model.RouteLimit{Endpoint: "send", MaxCalls: 3, Window: 60 * time.Second}

	for i := 0; i < 3; i++ {
		_, err := svc.Admit("10.0.0.3", limit)
		require.NoError(t, err)
	}

	svc.mu.Lock()
	entry := svc.entries["10.0.0.3"]
	svc.mu.Unlock()
	entry.mu.Lock()
	entry.count = 2
	entry.windowStart = time.Now().Add(-stalenessInterval - time.Second)
	entry.mu.Unlock()

	info, err := svc.Admit("10.0.0.3", limit)
	require.NoError(t, err)
	assert.Equal(t, limit.MaxCalls-1, info.Remaining, "stale window restarts the count")
}

func TestAdmitBypassesMissingIdentity(t *testing.T) {
	svc := newTestLimiter()
	limit := model.RouteLimit{Endpoint: "send", MaxCalls: 1, Window: time.Second}

	for i := 0; i < 20; i++ {
		info, err := svc.Admit("", limit)
		require.NoError(t, err)
		assert.True(t, info.Allowed)
	}
	assert.Equal(t, 0, svc.EntryCount())
}

func TestAdmitSerializesConcurrentCalls(t *testing.T) {
	svc := newTestLimiter()
	limit := model.RouteLimit{Endpoint: "send", MaxCalls: 50, Window: 60 * time.Second}

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Admit("203.0.113.9", limit); err == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed, "no over-admission under concurrency")
}

func TestSweepRemovesLapsedEntries(t *testing.T) {
	svc := newTestLimiter()
	limit := model.RouteLimit{Endpoint: "send", MaxCalls: 5, Window: 30 * time.Second}

	_, err := svc.Admit("10.1.0.1", limit)
	require.NoError(t, err)
	_, err = svc.Admit("10.1.0.2", limit)
	require.NoError(t, err)
	require.Equal(t, 2, svc.EntryCount())

	svc.mu.Lock()
	stale := svc.entries["10.1.0.1"]
	svc.mu.Unlock()
	stale.mu.Lock()
	stale.windowStart = time.Now().Add(-time.Minute)
	stale.mu.Unlock()

	removed := svc.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, svc.EntryCount())
}
