// Package hub implements the WebSocket connection registry and broadcast hub.
//
// Every upgraded connection is wrapped in a Client and served by Hub.Serve,
// which registers it and runs its receive loop on the caller's goroutine.
// Each received text frame is transformed by the hub's Policy and broadcast
// to a snapshot of the registry. Per connection the lifecycle is
// Open -> Closing -> Closed: a close frame is acknowledged after the client is
// unregistered, and a transport error drops it directly to Closed.
//
// The Registry is the only shared mutable state. Its operations are
// individually atomic and no lock is held while a broadcast sends, so a client
// removed mid-broadcast may or may not receive that message. Writes to one
// client are serialized, and a failed send only ever affects its recipient.
package hub
