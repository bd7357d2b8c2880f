// Package websocket carries the per-connection session protocol: it turns
// inbound client frames into store mutations plus hub publishes, and
// forwards hub events back down the same socket.
//
// Connection lifecycle:
//
//  1. An HTTP request hits the gateway and is upgraded.
//  2. The connection starts unbound: only JoinSession and
//     SubscribeToSession are accepted; other mutations get a
//     not-subscribed error.
//  3. Subscribing binds the connection to one session for its lifetime
//     and spawns a listener goroutine that bridges hub notifications to
//     the socket.
//  4. On disconnect the connection's participant is removed from the
//     session (best effort) and the departure is broadcast to the
//     remaining subscribers.
//
// Messages are JSON objects tagged by a "type" field in both directions.
// Clients send operations (JoinSession, PointSession, SetTopic, ...);
// the server answers every state change with a full SessionUpdate
// snapshot and reports per-connection failures as Error frames. Protocol
// errors never terminate the connection; only socket I/O errors do.
//
// All socket writes happen on the connection's run goroutine. The
// listener and read goroutines only feed channels it selects over.
package websocket
