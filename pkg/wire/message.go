package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for codec failures.
var (
	// ErrInvalidMessage indicates a command body that cannot be sent.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrMalformedResponse indicates a datagram that cannot be decoded:
	// shorter than the fixed header or carrying a body that is not
	// valid JSON.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrMessageTooLarge indicates an encoded message exceeding
	// MaxDatagramSize.
	ErrMessageTooLarge = errors.New("message too large")
)

// Args carries the operation arguments of a command body.
// Values are strings or integers; the signature stringifies them the
// same way the hub firmware does.
type Args map[string]any

// SysBlock is the authentication envelope present in every command body.
//
// JSON encoding:
//
//	{
//	  "ver":   1,           // protocol version
//	  "sign":  "<md5 hex>", // see Signature
//	  "model": "...",       // client model string
//	  "ts":    1700000000   // unix seconds used in the signature
//	}
type SysBlock struct {
	Version   int    `json:"ver"`
	Sign      string `json:"sign"`
	Model     string `json:"model"`
	Timestamp int64  `json:"ts"`
}

// Message is the JSON body of a command datagram.
//
// JSON encoding:
//
//	{
//	  "sys":  {...},      // SysBlock
//	  "id":   7,          // per-client sequence id, strictly increasing
//	  "obj":  "eps",      // command target: eps, ep or spotremote
//	  "args": {...}       // operation arguments
//	}
type Message struct {
	Sys    SysBlock `json:"sys"`
	ID     uint32   `json:"id"`
	Object string   `json:"obj"`
	Args   Args     `json:"args"`
}

// NewMessage builds a signed command body. The timestamp is taken at
// build time and sealed into the signature. A nil args map is sent as
// an empty object.
func NewMessage(seq uint32, obj string, args Args, model, token string) *Message {
	if args == nil {
		args = Args{}
	}
	ts := time.Now().Unix()
	return &Message{
		Sys: SysBlock{
			Version:   Version,
			Sign:      Signature(obj, args, ts, model, token),
			Model:     model,
			Timestamp: ts,
		},
		ID:     seq,
		Object: obj,
		Args:   args,
	}
}

// Validate checks if the message is sendable.
func (m *Message) Validate() error {
	if m.Object == "" {
		return fmt.Errorf("%w: empty object", ErrInvalidMessage)
	}
	if m.Sys.Sign == "" {
		return fmt.Errorf("%w: missing signature", ErrInvalidMessage)
	}
	if m.Sys.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidMessage, m.Sys.Version)
	}
	return nil
}

// Response is the JSON body of a reply datagram.
//
// JSON encoding:
//
//	{
//	  "code": 0,    // 0 = accepted, anything else = rejection
//	  "msg":  ...   // operation-specific payload, any JSON shape
//	}
//
// Msg is kept raw; extraction into typed results happens per
// operation. Hub pushes decode through the same struct with code
// absent (zero).
type Response struct {
	Code int             `json:"code"`
	Msg  json.RawMessage `json:"msg"`
}

// OK reports whether the hub accepted the command.
func (r *Response) OK() bool {
	return r.Code == 0
}
