package bridge

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/navbridge/internal/testutil"
)

const testTimeout = 2 * time.Second

// startBridge runs a bridge over a FakeHost until the test ends.
func startBridge(t *testing.T, opts ...Option) (*Bridge, *testutil.FakeHost) {
	t.Helper()
	host := testutil.NewFakeHost()
	b := New(host, append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = b.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return b, host
}

// flush waits until everything queued so far has been processed.
func flush(t *testing.T, b *Bridge) {
	t.Helper()
	onLoop(t, b, func() {})
}

// onLoop runs fn on the bridge loop after everything queued so far.
func onLoop(t *testing.T, b *Bridge, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, b.post(func() {
		fn()
		close(done)
	}), "bridge closed")
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("bridge loop did not drain")
	}
}

// await waits for f and returns its result.
func await(t *testing.T, f *Future) (Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	r, err := f.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "future never settled")
	return r, err
}

// requirePending fails if f has settled.
func requirePending(t *testing.T, f *Future) {
	t.Helper()
	_, settled := f.Peek()
	require.False(t, settled, "future settled unexpectedly")
}
