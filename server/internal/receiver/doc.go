// Package receiver implements the gRPC Push endpoint that accepts value
// snapshots from singlestat-agent instances.
//
// Push rejects snapshots without a source_id, with an unknown state, or
// whose points do not line up with their values (codes.InvalidArgument).
// Accepted snapshots are stored and passed to the alert evaluator.
// Authentication happens upstream in the gRPC interceptor (package auth).
package receiver
