// Package connection provides connection lifecycle management for one
// device identity.
//
// This package handles:
//   - Connection state tracking
//   - Automatic reconnection on link loss
//   - Cancellation of pending reconnect attempts on teardown
//
// # Reconnection Strategy
//
// When the link to a device is lost, the manager schedules exactly one
// reconnection attempt after a fixed delay (5 seconds by default). If
// that attempt fails, or a later connection is lost again, the cycle
// repeats: there is no delay growth and no attempt cap. A deliberate
// disconnect or Close cancels any pending attempt.
//
// The delay calculator also supports multiplicative growth and jitter
// for callers that want a conventional backoff, but the device profiles
// served here reconnect on a fixed schedule.
package connection
