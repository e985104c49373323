// Package signaling contains the WebSocket surface for the voice relay.
//
// Each connection is a JSON text-frame session. Frames carry an event name
// and positional arguments; the server dispatches them to the relay core and
// writes outbound events through a per-connection send queue.
package signaling
