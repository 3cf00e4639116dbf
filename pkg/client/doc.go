// Package client implements the LifeSmart local command client.
//
// A Client issues signed UDP commands to one hub and decodes the
// responses: device enumeration (eps), per-device reads and control
// writes (ep), and IR remote operations (spotremote).
//
// # Reliability
//
// The protocol is lockstep UDP: one request datagram, one response
// datagram, no delivery guarantee in either direction. Every command
// therefore runs under a bounded retry policy; timeouts, socket
// failures and undecodable responses are retried with doubling delay,
// explicit hub rejections (code != 0) are not. Each attempt is a fresh
// message with its own sequence id, timestamp and signature.
//
// Control writes are deduplicated for a short window so a burst of
// identical commands reaches the hub once. IR key sends are never
// deduplicated; repeats are meaningful.
package client
