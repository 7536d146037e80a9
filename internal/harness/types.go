package harness

// Trace entry types.
const (
	EntryCommand     = "command"     // a host call the bridge made
	EntryEvent       = "event"       // a host event the bridge received
	EntryIntercepted = "intercepted" // a command the interceptor swallowed
	EntryReturn      = "return"      // the synchronous answer of a call step
	EntryOutcome     = "outcome"     // the final state of a waiting call
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Type   string         `json:"type"`
	Seq    int64          `json:"seq"`
	Method string         `json:"method,omitempty"`
	Action string         `json:"action,omitempty"`
	Event  string         `json:"event,omitempty"`
	Alias  string         `json:"alias,omitempty"`
	Args   map[string]any `json:"args,omitempty"`
	Value  any            `json:"value,omitempty"`
	State  string         `json:"state,omitempty"`
	Code   *int           `json:"code,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Label is the name assertions match: the dispatch action for dispatch
// commands, the method otherwise.
func (e TraceEvent) Label() string {
	if e.Action != "" {
		return e.Action
	}
	return e.Method
}

// RootUpdates counts root layout listener callbacks.
type RootUpdates struct {
	Will int `json:"will"`
	Did  int `json:"did"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect step and assertion held.
	Pass bool `json:"pass"`

	// Trace holds commands, events and outcomes in order.
	Trace []TraceEvent `json:"trace"`

	// Roots counts willSetRoot/didSetRoot listener calls.
	Roots RootUpdates `json:"roots"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Commands returns the command entries of the trace.
func (r *Result) Commands() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EntryCommand {
			out = append(out, e)
		}
	}
	return out
}
