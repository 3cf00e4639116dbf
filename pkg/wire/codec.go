package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Codec builds signed command bodies for one hub session. It owns the
// message sequence counter: ids start at 1, increase strictly, and are
// never persisted.
type Codec struct {
	model string
	token string
	seq   atomic.Uint32
}

// NewCodec creates a codec signing with the given model and token.
func NewCodec(model, token string) *Codec {
	return &Codec{model: model, token: token}
}

// Build creates a signed command body carrying the next sequence id.
func (c *Codec) Build(obj string, args Args) *Message {
	return NewMessage(c.seq.Add(1), obj, args, c.model, c.token)
}

// Header is the decoded fixed-size datagram prefix.
//
// Wire layout, big-endian:
//
//	bytes 0-1  magic "JL"
//	bytes 2-3  reserved, zero
//	bytes 4-5  command type
//	bytes 6-9  body length
type Header struct {
	Magic      string
	Reserved   uint16
	Command    CommandType
	BodyLength uint32
}

// EncodeMessage serializes a command body into a single datagram:
// the 10-byte header followed by the JSON body.
func EncodeMessage(cmd CommandType, msg *Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if HeaderSize+len(body) > MaxDatagramSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, HeaderSize+len(body))
	}

	buf := make([]byte, HeaderSize, HeaderSize+len(body))
	copy(buf[0:2], Magic)
	binary.BigEndian.PutUint16(buf[4:6], uint16(cmd))
	binary.BigEndian.PutUint32(buf[6:10], uint32(len(body)))
	return append(buf, body...), nil
}

// ParseHeader decodes the 10-byte datagram prefix.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: datagram shorter than header (%d bytes)", ErrMalformedResponse, len(data))
	}
	return Header{
		Magic:      string(data[0:2]),
		Reserved:   binary.BigEndian.Uint16(data[2:4]),
		Command:    CommandType(binary.BigEndian.Uint16(data[4:6])),
		BodyLength: binary.BigEndian.Uint32(data[6:10]),
	}, nil
}

// ParseResponse strips the fixed header and decodes the JSON body.
// Header values are not validated: hubs echo arbitrary header content
// and the body alone carries the result.
func ParseResponse(data []byte) (*Response, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: datagram shorter than header (%d bytes)", ErrMalformedResponse, len(data))
	}
	var resp Response
	if err := json.Unmarshal(data[HeaderSize:], &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}

// ParseMessage strips the fixed header and decodes a command body.
// Used by trace tooling and test hubs to inspect outgoing commands.
func ParseMessage(data []byte) (*Message, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: datagram shorter than header (%d bytes)", ErrMalformedResponse, len(data))
	}
	var msg Message
	if err := json.Unmarshal(data[HeaderSize:], &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EncodeResponse serializes a reply body behind a header of the given
// command type. Hubs reply with the command type echoed and report
// pushes under CommandReport; test hubs use this to do the same.
func EncodeResponse(cmd CommandType, resp *Response) ([]byte, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	buf := make([]byte, HeaderSize, HeaderSize+len(body))
	copy(buf[0:2], Magic)
	binary.BigEndian.PutUint16(buf[4:6], uint16(cmd))
	binary.BigEndian.PutUint32(buf[6:10], uint32(len(body)))
	return append(buf, body...), nil
}
