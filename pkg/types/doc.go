// Package types defines the value snapshot exchanged between the agent and
// the server. The same structs are the gRPC payload (JSON-encoded by
// pkg/valuesvc) and the server's in-memory record.
package types
