// Package ws implements the WebSocket hub for singlestat-server.
//
// Hub.Run broadcasts the latest values of every live source on a fixed
// interval (5s in production) until its context is cancelled. Hub.ServeHTTP
// upgrades a connection, sends the current values at once and then streams
// every tick. Clients may pass ?source=a,b to receive only those sources.
//
// Message format sent to clients:
//
//	{
//	  "event": "snapshot",
//	  "data":  { /* same schema as GET /api/v1/snapshot */ }
//	}
//
// The server mounts the hub at /ws/stream.
package ws
