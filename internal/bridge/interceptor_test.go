package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/navbridge/internal/testutil"
	"github.com/roach88/navbridge/internal/wire"
)

func TestInterceptor_TrueSwallowsCommand(t *testing.T) {
	b, host := startBridge(t, WithInterceptor(SyncInterceptor(func(string, InterceptInfo) bool {
		return true
	})))

	accepted, err := b.Of("s1").Pop(context.Background())
	require.NoError(t, err)
	assert.False(t, accepted)

	f := b.Of("s1").Present(context.Background(), "B", nil, nil)
	r, err := await(t, f)
	require.NoError(t, err)
	assert.True(t, r.IsCancelled())

	assert.Empty(t, host.Dispatches())
}

func TestInterceptor_SeesFromAndTo(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []InterceptInfo
	)
	b, host := startBridge(t, WithInterceptor(SyncInterceptor(func(action string, info InterceptInfo) bool {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, info)
		return false
	})))

	b.Registry().OfModule("s1", "A").Push(context.Background(), "B", nil, nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, InterceptInfo{SceneID: "s1", From: "A", To: "B"}, seen[0])
	assert.Len(t, host.Dispatches(), 1)
}

func TestInterceptor_BlockingDelaysSend(t *testing.T) {
	release := make(chan struct{})
	b, host := startBridge(t, WithInterceptor(func(ctx context.Context, action string, info InterceptInfo) (bool, error) {
		select {
		case <-release:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}))

	futures := make(chan *Future, 1)
	go func() {
		futures <- b.Of("s1").Push(context.Background(), "B", nil, nil)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, host.Dispatches(), "command sent before interceptor settled")

	close(release)
	f := <-futures
	assert.Len(t, host.Dispatches(), 1)

	host.Emit(testutil.ResultEvent("s1", 0, ResultOK, nil))
	r, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, ResultOK, r.Code)
}

func TestInterceptor_ErrorAbortsDispatch(t *testing.T) {
	b, host := startBridge(t, WithInterceptor(func(context.Context, string, InterceptInfo) (bool, error) {
		return false, errors.New("policy store offline")
	}))

	accepted, err := b.Of("s1").Pop(context.Background())
	assert.False(t, accepted)
	require.ErrorIs(t, err, ErrInterceptor)
	assert.Contains(t, err.Error(), "policy store offline")

	r, err := await(t, b.Of("s1").Present(context.Background(), "B", nil, nil))
	assert.True(t, r.IsCancelled())
	assert.ErrorIs(t, err, ErrInterceptor)

	assert.Empty(t, host.Dispatches())
}

func TestInterceptor_PanicIsAnError(t *testing.T) {
	b, host := startBridge(t, WithInterceptor(func(context.Context, string, InterceptInfo) (bool, error) {
		panic("boom")
	}))

	_, err := b.Of("s1").Pop(context.Background())
	require.ErrorIs(t, err, ErrInterceptor)
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, host.Dispatches())
}

func TestInterceptor_LastSetWins(t *testing.T) {
	b, host := startBridge(t)

	b.SetInterceptor(SyncInterceptor(func(string, InterceptInfo) bool { return true }))
	b.SetInterceptor(SyncInterceptor(func(string, InterceptInfo) bool { return false }))
	accepted, err := b.Of("s1").Pop(context.Background())
	require.NoError(t, err)
	assert.True(t, accepted)

	b.SetInterceptor(nil)
	_, err = b.Of("s1").Pop(context.Background())
	require.NoError(t, err)
	assert.Len(t, host.Dispatches(), 2)
}

func TestHostTabSwitch_RedispatchedThroughInterceptor(t *testing.T) {
	infos := make(chan InterceptInfo, 1)
	_, host := startBridge(t, WithInterceptor(SyncInterceptor(func(action string, info InterceptInfo) bool {
		if action == ActionSwitchTab {
			infos <- info
		}
		return false
	})))

	host.Emit(testutil.SwitchTabEvent("tabs", "0-2"))

	select {
	case info := <-infos:
		assert.Equal(t, InterceptInfo{SceneID: "tabs", From: 0, To: 2}, info)
	case <-time.After(testTimeout):
		t.Fatal("tab switch was not re-dispatched")
	}

	require.Eventually(t, func() bool { return len(host.Dispatches()) == 1 }, testTimeout, 5*time.Millisecond)
	call := host.Dispatches()[0]
	assert.Equal(t, ActionSwitchTab, call.Action())
	assert.Equal(t, map[string]any{wire.KeyFrom: 0, wire.KeyTo: 2}, call.Params())
}

func TestHostTabSwitch_MalformedIndexIgnored(t *testing.T) {
	b, host := startBridge(t)

	host.Emit(testutil.SwitchTabEvent("tabs", "first-second"))
	flush(t, b)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, host.Dispatches())
}
