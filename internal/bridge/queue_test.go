package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/navbridge/internal/wire"
)

func TestLoopQueue_FIFO(t *testing.T) {
	q := newLoopQueue()

	for _, name := range []string{"a", "b", "c"} {
		require.True(t, q.Enqueue(item{Type: itemHostEvent, Event: wire.NewEvent(name, nil)}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		it, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, it.Event.Name)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestLoopQueue_WaitSignalsOnEnqueue(t *testing.T) {
	q := newLoopQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(item{Type: itemTask, Task: func() {}})
	}()

	select {
	case <-q.Wait():
	case <-time.After(testTimeout):
		t.Fatal("no signal after enqueue")
	}
	_, ok := q.TryDequeue()
	assert.True(t, ok)
}

func TestLoopQueue_CloseRejectsAndWakes(t *testing.T) {
	q := newLoopQueue()
	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(item{Type: itemTask, Task: func() {}}))

	select {
	case <-q.Wait():
	default:
		t.Fatal("closed queue must wake waiters")
	}
}

func TestFuture_SettlesOnce(t *testing.T) {
	f := newFuture("s1")

	_, ok := f.Peek()
	assert.False(t, ok)
	assert.NoError(t, f.Err())

	assert.True(t, f.resolve(ResultOK, map[string]any{"k": "v"}))
	assert.False(t, f.cancel())

	r, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Code: ResultOK, Data: map[string]any{"k": "v"}}, r)
	assert.Equal(t, "s1", f.SceneID())

	select {
	case <-f.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestFuture_SettledCarriesCause(t *testing.T) {
	f := settledFuture("s1", Cancelled(), ErrClosed)

	r, err := f.Wait(context.Background())
	assert.True(t, r.IsCancelled())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, f.Err(), ErrClosed)
}
