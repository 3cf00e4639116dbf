// Package wire defines the datagram format of the LifeSmart local
// UDP protocol.
//
// Every datagram is a fixed 10-byte big-endian header followed by a
// UTF-8 JSON body. The header carries the "JL" magic, two reserved
// bytes, the command type (query, report, control) and the body
// length.
//
// # Message Types
//
// There are two body shapes:
//   - Message: Client to hub. A sys block (version, MD5 signature,
//     model, timestamp), a per-client sequence id, a target object
//     (eps, ep, spotremote) and an argument map.
//   - Response: Hub to client. A result code (0 = accepted) and an
//     operation-specific msg payload, kept raw for typed extraction
//     per operation. Hub-initiated state pushes decode the same way.
//
// # Signature
//
// Commands authenticate with an MD5 digest over a canonical string
// that sorts args by key. See Signature for the exact layout; the
// digest must match the hub firmware byte for byte.
package wire
