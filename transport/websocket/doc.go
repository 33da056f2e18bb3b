// Package websocket pushes board updates to browser clients.
//
// A central Hub owns every connection. Clients join a session with
// /ws?session=<id> and receive one JSON message per change:
//
//	{"session_id": "ab12", "event": "state_update", "state": {...}}
//
// The API server calls BroadcastToSession after every mutating request.
// Clients are listen-only; messages they send are read and discarded to keep
// the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithLogger(log))
//	go hub.Run()
//	defer hub.Stop()
//
// Concurrency:
//
// Registration, broadcast and client counting all run on the Run goroutine.
// A client whose send queue fills up is dropped rather than blocking others.
package websocket
