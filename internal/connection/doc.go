// Package connection implements the gateway connection manager.
//
// The connection manager:
//   - Owns the single gateway session used by a harvest run
//   - Dials with bounded attempts and jittered backoff
//   - Treats attempt exhaustion as fatal for the run
//   - Guarantees disconnect is safe to call any number of times
package connection
