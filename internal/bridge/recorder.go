package bridge

import (
	"context"

	"github.com/roach88/navbridge/internal/wire"
)

// CommandRecord is one outgoing host call as seen by a Recorder.
type CommandRecord struct {
	SceneID     string
	Method      string
	Action      string
	RequestCode int
	Args        map[string]any
}

// Recorder observes the traffic between bridge and host. Implementations
// must be safe for concurrent use; errors are logged and otherwise ignored.
type Recorder interface {
	RecordCommand(ctx context.Context, c CommandRecord) error
	RecordEvent(ctx context.Context, ev wire.Event) error
}

type nopRecorder struct{}

func (nopRecorder) RecordCommand(context.Context, CommandRecord) error { return nil }
func (nopRecorder) RecordEvent(context.Context, wire.Event) error { return nil }

func (b *Bridge) recordCommand(ctx context.Context, method string, args map[string]any) {
	rec := CommandRecord{Method: method, Args: args}
	rec.SceneID, _ = args[wire.KeySceneID].(string)
	rec.Action, _ = args[wire.KeyAction].(string)
	if tag, ok := args[wire.KeyTag]; ok {
		rec.RequestCode, _ = wire.ToInt(tag)
	}
	if params, ok := args[wire.KeyParams].(map[string]any); ok {
		if code, ok := params[wire.KeyRequestCode]; ok {
			rec.RequestCode, _ = wire.ToInt(code)
		}
	}
	if err := b.recorder.RecordCommand(ctx, rec); err != nil {
		b.logger.Warn("journal command failed", "method", method, "error", err)
	}
}

func (b *Bridge) recordEvent(ev wire.Event) {
	if err := b.recorder.RecordEvent(context.Background(), ev); err != nil {
		b.logger.Warn("journal event failed", "event", ev.Name, "error", err)
	}
}
