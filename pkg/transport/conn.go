package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lifesmart-local/lifesmart-go/pkg/log"
	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

// Transport errors.
var (
	// ErrTimeout indicates the hub did not answer within the deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrConnection indicates a socket-level failure.
	ErrConnection = errors.New("connection error")

	// ErrClosed indicates the connection or pool has been closed.
	ErrClosed = errors.New("transport closed")
)

// MaxLogDatagramSize is the maximum datagram size to include in logs (4 KB).
// Larger datagrams are truncated in log events to avoid excessive memory usage.
const MaxLogDatagramSize = 4096

// Config configures hub transport.
type Config struct {
	// Host is the hub address (IP or hostname).
	Host string

	// Port is the hub command port (default: wire.Port).
	Port int

	// PoolSize is the maximum number of idle connections kept for
	// reuse (default: DefaultPoolSize).
	PoolSize int

	// Logger records transport events. Nil disables logging.
	Logger log.Logger
}

func (c Config) address() string {
	port := c.Port
	if port == 0 {
		port = wire.Port
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Conn is one UDP socket dialed at the hub.
//
// A Conn carries one request/response exchange at a time. The pool's
// borrow discipline provides that exclusivity; Conn itself does not
// serialize callers.
type Conn struct {
	conn   *net.UDPConn
	id     string
	remote string
	logger log.Logger

	closeCh   chan struct{}
	closeOnce sync.Once
}

// Dial opens a UDP socket connected to the hub.
func Dial(cfg Config) (*Conn, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.address())
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrConnection, cfg.address(), err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, addr, err)
	}

	return &Conn{
		conn:    conn,
		id:      uuid.New().String(),
		remote:  addr.String(),
		logger:  cfg.Logger,
		closeCh: make(chan struct{}),
	}, nil
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string {
	return c.id
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the hub's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Exchange sends one datagram and waits up to timeout for one reply.
//
// Datagrams left over from earlier timed-out exchanges are drained
// before sending, so a late reply cannot be mistaken for the answer to
// the current command. A timed-out Conn stays usable.
func (c *Conn) Exchange(payload []byte, timeout time.Duration) ([]byte, error) {
	select {
	case <-c.closeCh:
		return nil, ErrClosed
	default:
	}

	c.drain()

	if _, err := c.conn.Write(payload); err != nil {
		return nil, c.wrapErr("send", err)
	}
	c.logDatagram(log.DirectionOut, payload)

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, c.wrapErr("set deadline", err)
	}

	buf := make([]byte, wire.MaxDatagramSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return nil, c.wrapErr("receive", err)
	}

	resp := buf[:n]
	c.logDatagram(log.DirectionIn, resp)
	return resp, nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

// drain discards datagrams already buffered on the socket. The
// deadline must lie slightly in the future: a deadline already in the
// past aborts the read before the kernel buffer is consulted, leaving
// the stale datagrams in place.
func (c *Conn) drain() {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return
		}
		if _, err := c.conn.Read(buf); err != nil {
			return
		}
	}
}

// wrapErr classifies a socket error as timeout or connection failure.
func (c *Conn) wrapErr(op string, err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %s %s: %v", ErrTimeout, op, c.remote, err)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrConnection, op, c.remote, err)
}

// logDatagram logs a raw datagram if a logger is configured.
func (c *Conn) logDatagram(direction log.Direction, data []byte) {
	if c.logger == nil {
		return
	}

	size := len(data)
	truncated := false
	if len(data) > MaxLogDatagramSize {
		data = data[:MaxLogDatagramSize]
		truncated = true
	}

	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		RemoteAddr:   c.remote,
		Datagram: &log.DatagramEvent{
			Size:      size,
			Data:      data,
			Truncated: truncated,
		},
	})
}
