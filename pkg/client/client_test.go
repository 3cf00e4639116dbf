package client

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/lifesmart-local/lifesmart-go/pkg/log"
	"github.com/lifesmart-local/lifesmart-go/pkg/retry"
	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

const testToken = "8Ym3fDDeDaiz6EHSHzAiRQ"

// hubCall is one decoded command received by the fake hub.
type hubCall struct {
	Cmd wire.CommandType
	Msg *wire.Message
}

// fakeHub is a scripted LifeSmart hub on a loopback UDP port. It
// decodes each command, verifies its signature the way firmware does,
// and answers with whatever the script returns (nil means silence).
type fakeHub struct {
	t    *testing.T
	port int

	mu       sync.Mutex
	calls    []hubCall
	badSigns int
}

func startHub(t *testing.T, script func(call int, cmd wire.CommandType, msg *wire.Message) [][]byte) *fakeHub {
	t.Helper()

	pc, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	h := &fakeHub{t: t, port: pc.LocalAddr().(*net.UDPAddr).Port}

	go func() {
		buf := make([]byte, 65535)
		for {
			n, addr, err := pc.ReadFromUDP(buf)
			if err != nil {
				return
			}

			header, err := wire.ParseHeader(buf[:n])
			if err != nil {
				continue
			}
			msg, err := wire.ParseMessage(buf[:n])
			if err != nil {
				continue
			}

			h.mu.Lock()
			want := wire.Signature(msg.Object, msg.Args, msg.Sys.Timestamp, msg.Sys.Model, testToken)
			if msg.Sys.Sign != want {
				h.badSigns++
			}
			h.calls = append(h.calls, hubCall{Cmd: header.Command, Msg: msg})
			call := len(h.calls)
			h.mu.Unlock()

			for _, resp := range script(call, header.Command, msg) {
				pc.WriteToUDP(resp, addr)
			}
		}
	}()

	return h
}

// Calls returns the decoded commands received so far.
func (h *fakeHub) Calls() []hubCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]hubCall(nil), h.calls...)
}

// VerifySignatures fails the test if any command carried a bad
// signature.
func (h *fakeHub) VerifySignatures() {
	h.t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.badSigns > 0 {
		h.t.Errorf("%d commands carried an invalid signature", h.badSigns)
	}
}

// ok encodes an accepting response with the given msg payload.
func ok(t *testing.T, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	data, err := wire.EncodeResponse(wire.CommandQuery, &wire.Response{Code: 0, Msg: raw})
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	return data
}

// reject encodes a rejecting response with the given code.
func reject(t *testing.T, code int) []byte {
	t.Helper()
	data, err := wire.EncodeResponse(wire.CommandQuery, &wire.Response{Code: code, Msg: json.RawMessage(`"err"`)})
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	return data
}

func testConfig(port int) Config {
	return Config{
		Host:          "127.0.0.1",
		Port:          port,
		Token:         testToken,
		Timeout:       500 * time.Millisecond,
		DeviceTimeout: 500 * time.Millisecond,
		Retry:         retry.Policy{MaxAttempts: 3, BaseDelay: 5 * time.Millisecond},
	}
}

func newTestClient(t *testing.T, h *fakeHub) *Client {
	t.Helper()
	c, err := New(testConfig(h.port))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"MissingHost", Config{Token: testToken}},
		{"BlankHost", Config{Host: "   ", Token: testToken}},
		{"MissingToken", Config{Host: "10.0.0.8"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, ErrConfig) {
				t.Errorf("New() error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	c, err := New(Config{Host: "10.0.0.8", Token: testToken})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if c.cfg.Model != wire.DefaultModel {
		t.Errorf("Model = %q, want %q", c.cfg.Model, wire.DefaultModel)
	}
	if c.cfg.Port != wire.Port {
		t.Errorf("Port = %d, want %d", c.cfg.Port, wire.Port)
	}
	if c.cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.cfg.Timeout, DefaultTimeout)
	}
	if c.cfg.DeviceTimeout != DefaultDeviceTimeout {
		t.Errorf("DeviceTimeout = %v, want %v", c.cfg.DeviceTimeout, DefaultDeviceTimeout)
	}
	if c.cfg.StateCacheTTL != DefaultStateCacheTTL {
		t.Errorf("StateCacheTTL = %v, want %v", c.cfg.StateCacheTTL, DefaultStateCacheTTL)
	}
	if c.cfg.RemoteCacheTTL != DefaultRemoteCacheTTL {
		t.Errorf("RemoteCacheTTL = %v, want %v", c.cfg.RemoteCacheTTL, DefaultRemoteCacheTTL)
	}
	if c.cfg.Retry.MaxAttempts != retry.DefaultMaxAttempts {
		t.Errorf("Retry.MaxAttempts = %d, want %d", c.cfg.Retry.MaxAttempts, retry.DefaultMaxAttempts)
	}
	if c.cfg.Retry.Retryable == nil {
		t.Error("Retry.Retryable not defaulted")
	}
}

func TestClientClosed(t *testing.T) {
	h := startHub(t, func(call int, cmd wire.CommandType, msg *wire.Message) [][]byte {
		return [][]byte{ok(t, []any{})}
	})
	c := newTestClient(t, h)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := c.DiscoverDevices(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("DiscoverDevices() after Close error = %v, want ErrClosed", err)
	}
	if len(h.Calls()) != 0 {
		t.Errorf("hub saw %d calls from a closed client", len(h.Calls()))
	}
}

func TestSequenceIncreasesAcrossCommands(t *testing.T) {
	h := startHub(t, func(call int, cmd wire.CommandType, msg *wire.Message) [][]byte {
		return [][]byte{ok(t, []any{})}
	})
	c := newTestClient(t, h)

	if _, err := c.DiscoverDevices(context.Background()); err != nil {
		t.Fatalf("DiscoverDevices() error = %v", err)
	}
	if _, err := c.DiscoverDevices(context.Background()); err != nil {
		t.Fatalf("DiscoverDevices() error = %v", err)
	}

	calls := h.Calls()
	if len(calls) != 2 {
		t.Fatalf("hub saw %d calls, want 2", len(calls))
	}
	if calls[0].Msg.ID != 1 || calls[1].Msg.ID != 2 {
		t.Errorf("sequence ids = %d, %d, want 1, 2", calls[0].Msg.ID, calls[1].Msg.ID)
	}
	h.VerifySignatures()
}

func TestCommandRetriesTimeouts(t *testing.T) {
	h := startHub(t, func(call int, cmd wire.CommandType, msg *wire.Message) [][]byte {
		if call < 3 {
			return nil // silence forces a timeout
		}
		return [][]byte{ok(t, []any{})}
	})

	cfg := testConfig(h.port)
	cfg.Timeout = 50 * time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if _, err := c.DiscoverDevices(context.Background()); err != nil {
		t.Fatalf("DiscoverDevices() error = %v after retries", err)
	}

	calls := h.Calls()
	if len(calls) != 3 {
		t.Fatalf("hub saw %d attempts, want 3", len(calls))
	}
	// Every attempt is a fresh message.
	if calls[0].Msg.ID == calls[2].Msg.ID {
		t.Error("retry reused the sequence id")
	}
	h.VerifySignatures()
}

func TestCommandRetriesMalformedResponse(t *testing.T) {
	h := startHub(t, func(call int, cmd wire.CommandType, msg *wire.Message) [][]byte {
		if call == 1 {
			return [][]byte{[]byte("JL\x00\x00\x00\x01\x00\x00\x00\x08not json")}
		}
		return [][]byte{ok(t, []any{})}
	})
	c := newTestClient(t, h)

	if _, err := c.DiscoverDevices(context.Background()); err != nil {
		t.Fatalf("DiscoverDevices() error = %v, want retry to recover", err)
	}
	if len(h.Calls()) != 2 {
		t.Errorf("hub saw %d attempts, want 2", len(h.Calls()))
	}
}

func TestCommandExhaustsRetries(t *testing.T) {
	h := startHub(t, func(call int, cmd wire.CommandType, msg *wire.Message) [][]byte {
		return nil
	})

	cfg := testConfig(h.port)
	cfg.Timeout = 30 * time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	_, err = c.DiscoverDevices(context.Background())
	if err == nil {
		t.Fatal("DiscoverDevices() succeeded against a silent hub")
	}
	if !Transient(err) {
		t.Errorf("error = %v, want a transport-class error", err)
	}
	if len(h.Calls()) != 3 {
		t.Errorf("hub saw %d attempts, want 3", len(h.Calls()))
	}
}

func TestProtocolErrorNotRetried(t *testing.T) {
	h := startHub(t, func(call int, cmd wire.CommandType, msg *wire.Message) [][]byte {
		return [][]byte{reject(t, 10010)}
	})
	c := newTestClient(t, h)

	_, err := c.DiscoverDevices(context.Background())
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("DiscoverDevices() error = %v, want ProtocolError", err)
	}
	if perr.Code != 10010 {
		t.Errorf("Code = %d, want 10010", perr.Code)
	}
	if len(h.Calls()) != 1 {
		t.Errorf("hub saw %d attempts, want 1 (rejections are final)", len(h.Calls()))
	}
}

func TestExchangeEventsLogged(t *testing.T) {
	h := startHub(t, func(call int, cmd wire.CommandType, msg *wire.Message) [][]byte {
		return [][]byte{ok(t, []any{})}
	})

	logger := &captureLogger{}
	cfg := testConfig(h.port)
	cfg.Logger = logger
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if _, err := c.DiscoverDevices(context.Background()); err != nil {
		t.Fatalf("DiscoverDevices() error = %v", err)
	}

	var exchanges []log.Event
	for _, e := range logger.Events() {
		if e.Exchange != nil {
			exchanges = append(exchanges, e)
		}
	}
	// One round trip logs two legs: the request out, the response in.
	if len(exchanges) != 2 {
		t.Fatalf("logged %d exchange events, want 2", len(exchanges))
	}

	req := exchanges[0]
	if req.Direction != log.DirectionOut {
		t.Errorf("request direction = %v, want OUT", req.Direction)
	}
	if req.Exchange.Object != wire.ObjectDevices || req.Exchange.Command != wire.CommandQuery {
		t.Errorf("request = %s %s, want eps QUERY", req.Exchange.Object, req.Exchange.Command)
	}
	if req.Exchange.Attempt != 1 {
		t.Errorf("request attempt = %d, want 1", req.Exchange.Attempt)
	}
	if req.Exchange.Code != nil {
		t.Errorf("request code = %v, want nil", req.Exchange.Code)
	}

	resp := exchanges[1]
	if resp.Direction != log.DirectionIn {
		t.Errorf("response direction = %v, want IN", resp.Direction)
	}
	if resp.Exchange.Sequence != req.Exchange.Sequence {
		t.Errorf("response sequence = %d, want %d", resp.Exchange.Sequence, req.Exchange.Sequence)
	}
	if resp.Exchange.Code == nil || *resp.Exchange.Code != 0 {
		t.Errorf("response code = %v, want 0", resp.Exchange.Code)
	}
	if resp.Exchange.RTT == nil {
		t.Error("response RTT missing")
	}
}

// captureLogger records events for assertions.
type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *captureLogger) Log(e log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *captureLogger) Events() []log.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]log.Event(nil), l.events...)
}
