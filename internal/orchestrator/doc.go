// Package orchestrator fans a batch of fetch requests out over a bounded
// number of concurrent tasks and fans every outcome back in.
//
// Two invariants hold for every batch:
//   - Completeness: the result map carries exactly one entry per request,
//     however many tasks failed.
//   - Isolation: a failing or panicking task never cancels, blocks, or
//     corrupts a sibling; there is no cancellation propagation between
//     tasks.
package orchestrator
