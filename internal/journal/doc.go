// Package journal provides SQLite-backed storage for the traffic between a
// bridge and its host.
//
// The journal is an append-only log with:
//   - Sessions: one per bridge run
//   - Commands: every host call the bridge made
//   - Events: every event the host emitted
//
// It is an audit trail only. Correlation state is never rebuilt from it.
//
// # Ordering
//
// All ordering uses the seq column, stamped from a logical Clock that
// resumes after the highest stored value when the journal is reopened.
// Every read orders by seq ASC, id ASC COLLATE BINARY.
//
// # Encoding
//
// Command args and event bodies are stored as canonical JSON (see
// wire.MarshalCanonical) so identical traffic produces identical rows.
package journal
