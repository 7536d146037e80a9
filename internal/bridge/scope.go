package bridge

import "github.com/roach88/navbridge/internal/wire"

// Scope says where a pending result listener lives.
//
// Global waits survive the requesting Navigator and are keyed by an
// allocated code, so whichever scene answers can reach the requester.
// PerScene waits occupy the requesting Navigator's single slot.
type Scope interface {
	scope()
}

// Global addresses the process-wide correlation map.
type Global struct {
	Code int
}

// PerScene addresses one Navigator's result slot.
type PerScene struct {
	SceneID string
}

func (Global) scope()   {}
func (PerScene) scope() {}

// ScopeFor maps a wire request code to a scope. Negative codes are global;
// zero (and the reserved positive range) address the scene slot.
func ScopeFor(requestCode int, sceneID string) Scope {
	if wire.IsGlobalCode(requestCode) {
		return Global{Code: requestCode}
	}
	return PerScene{SceneID: sceneID}
}
