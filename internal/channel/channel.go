// Package channel defines the host transport consumed by the bridge and
// ships a framed JSON implementation over a reader/writer pair.
//
// The contract assumed by internal/bridge:
//   - Call sends one command; reply is invoked at most once with the host's
//     answer or a send-level error. A host that never answers never calls reply.
//   - Events reach the Listen sink one at a time, in emission order.
//   - reply and sink may be invoked from any goroutine.
package channel

import (
	"github.com/roach88/navbridge/internal/wire"
)

// ReplyFunc receives the host's answer to a Call.
// value is the decoded JSON result (bool, float64, string, map, slice or nil).
type ReplyFunc func(value any, err error)

// EventSink receives host events in order.
type EventSink func(ev wire.Event)

// Channel is the bidirectional link to the host.
type Channel interface {
	// Call invokes a host method. reply may be nil for notifications.
	Call(method string, args map[string]any, reply ReplyFunc)

	// Listen installs the sink for host events. Only one sink is active;
	// a later call replaces the previous sink.
	Listen(sink EventSink)
}
