package graph

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleGateHonorsRelativeRetryAfter(t *testing.T) {
	host := "throttle-test-relative.example"

	header := http.Header{}
	header.Set("Retry-After", "1")

	start := time.Now()
	observeRetryAfter(host, header, start)

	require.NoError(t, waitForHost(context.Background(), host))
	assert.GreaterOrEqual(t, time.Since(start), time.Second-50*time.Millisecond)
}

func TestThrottleGateKeepsLaterDeadline(t *testing.T) {
	g := &throttleGate{}

	now := time.Now()
	g.setDeadline(now.Add(1 * time.Second))
	g.setDeadline(now.Add(500 * time.Millisecond)) // earlier: must not move the deadline back

	assert.Equal(t, now.Add(1*time.Second).UnixNano(), g.deadline.Load())
}

func TestThrottleGateOpenByDefault(t *testing.T) {
	g := &throttleGate{}

	start := time.Now()
	require.NoError(t, g.wait(context.Background()))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestThrottleGateWaitRespectsCancellation(t *testing.T) {
	g := &throttleGate{}
	g.setDeadline(time.Now().Add(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
