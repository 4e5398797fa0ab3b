// Package retry implements the bounded call-with-retry primitive shared by
// every fetch path.
//
// Exhaustion is a normal return value (*ExhaustedError), never a panic:
// callers decide whether a worn-out budget is fatal (the broker connect)
// or just one failed source among many (everything else).
package retry
