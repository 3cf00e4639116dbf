// Package transport provides the UDP transport to a LifeSmart hub.
//
// The hub answers each command datagram with exactly one response
// datagram on the same socket. Conn wraps one such socket and carries
// a single exchange at a time; Pool keeps a small stack of idle Conns
// so command bursts do not pay the dial cost.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│        JSON Body (UTF-8)       │
//	├────────────────────────────────┤
//	│     Binary Header (10 B)       │
//	├────────────────────────────────┤
//	│            UDP                 │
//	└────────────────────────────────┘
//
// Because UDP has no connection state, a "connection" here only pins
// the hub address and a local port. Late replies to timed-out commands
// are the main hazard; Exchange drains them before each send.
package transport
