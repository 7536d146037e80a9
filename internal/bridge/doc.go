// Package bridge implements the navigation control plane: commands sent to
// a remote host that owns the scenes, and the results those scenes hand
// back.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Bridge.Run processes host events and internal tasks one at a time from a
// FIFO queue. Every mutation of correlation state happens there:
//   - registering a result wait after the host accepted the command
//   - delivering componentResult events to their waiter
//   - scene teardown
//   - set-root waiter bookkeeping
//
// Call replies are posted to the loop as tasks, so the wait a command
// registers on acceptance is always installed before the host can deliver
// its result.
//
// Result Correlation:
// Commands that expect a result get a Future.
//   - Push and PushLayout wait in the Navigator's single slot (code 0).
//     A second wait replaces the first, which resolves cancelled.
//   - Present, ShowModal and their layout variants draw a fresh negative
//     code and wait in the global map, so any scene can answer them.
//
// Futures never fail. Rejected, intercepted, failed and torn-down waits all
// resolve with the cancelled sentinel (code 0); Future.Wait also reports
// the cause when there was one.
//
// Interception:
// An Interceptor sees every dispatch before it is sent and may veto it. It
// runs on the caller's goroutine and may block.
package bridge
