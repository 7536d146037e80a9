package bridge

import (
	"context"
	"sync"

	"github.com/roach88/navbridge/internal/wire"
)

// Result codes.
const (
	ResultOK     = wire.ResultOK
	ResultCancel = wire.ResultCancel
)

// Result is what a scene hands back to the scene that opened it.
type Result struct {
	Code int
	Data map[string]any
}

// Cancelled is the sentinel every cancellation resolves with.
func Cancelled() Result {
	return Result{Code: ResultCancel}
}

// IsCancelled reports whether the result carries the cancel code.
func (r Result) IsCancelled() bool {
	return r.Code == ResultCancel
}

// Future is a one-shot result slot. It settles exactly once; later
// resolutions are ignored. A Future never rejects: failures settle it with
// the cancelled sentinel and record the cause for Wait.
type Future struct {
	sceneID string

	once   sync.Once
	done   chan struct{}
	result Result
	err    error
}

func newFuture(sceneID string) *Future {
	return &Future{sceneID: sceneID, done: make(chan struct{})}
}

// settledFuture returns a Future that is already resolved.
func settledFuture(sceneID string, r Result, err error) *Future {
	f := newFuture(sceneID)
	f.settle(r, err)
	return f
}

// SceneID returns the scene that owns this wait.
func (f *Future) SceneID() string {
	return f.sceneID
}

// settle resolves the future. Returns true if this call won.
func (f *Future) settle(r Result, err error) bool {
	won := false
	f.once.Do(func() {
		f.result = r
		f.err = err
		close(f.done)
		won = true
	})
	return won
}

// resolve delivers a host result.
func (f *Future) resolve(code int, data map[string]any) bool {
	return f.settle(Result{Code: code, Data: data}, nil)
}

// cancel resolves with the cancelled sentinel.
func (f *Future) cancel() bool {
	return f.settle(Cancelled(), nil)
}

// Done is closed once the future has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Peek returns the result if settled.
func (f *Future) Peek() (Result, bool) {
	select {
	case <-f.done:
		return f.result, true
	default:
		return Result{}, false
	}
}

// Err returns the failure recorded at settlement, if any.
// Only meaningful after Done is closed.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the future settles or ctx is done.
// Abandoning a wait through ctx leaves the registration in place.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
