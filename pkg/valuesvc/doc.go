// Package valuesvc declares the ValueService gRPC contract used by the agent
// to push snapshots to the server.
//
// The service has a single unary method:
//
//	/singlestat.v1.ValueService/Push(types.Snapshot) → types.PushResponse
//
// Messages are plain Go structs from pkg/types encoded with a JSON codec
// registered under the content subtype "json". Client.Push selects that codec
// on every call; the server picks it up from the request content type.
package valuesvc
