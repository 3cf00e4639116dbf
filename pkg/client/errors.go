package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lifesmart-local/lifesmart-go/pkg/transport"
	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

// Client errors.
var (
	// ErrConfig indicates unusable client configuration.
	ErrConfig = errors.New("invalid configuration")

	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("client is closed")
)

// ProtocolError is an explicit hub rejection (response code != 0).
// Rejections are authoritative and are not retried.
type ProtocolError struct {
	// Code is the hub's response code.
	Code int

	// Msg is the raw rejection payload, when the hub sent one.
	Msg json.RawMessage
}

func (e *ProtocolError) Error() string {
	if len(e.Msg) > 0 {
		return fmt.Sprintf("hub rejected command: code %d: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("hub rejected command: code %d", e.Code)
}

// Transient reports whether an error is worth another attempt:
// timeouts, socket failures and undecodable responses. Hub rejections
// and configuration errors are not transient.
func Transient(err error) bool {
	return errors.Is(err, transport.ErrTimeout) ||
		errors.Is(err, transport.ErrConnection) ||
		errors.Is(err, wire.ErrMalformedResponse)
}
