package transport

import (
	"sync"
	"time"

	"github.com/lifesmart-local/lifesmart-go/pkg/log"
)

// DefaultPoolSize is the default maximum number of idle connections.
const DefaultPoolSize = 5

// Pool maintains a bounded stack of idle hub connections.
//
// The bound caps reuse, not concurrency: Acquire always returns a
// connection, dialing fresh when no idle one is available. Release
// pushes the connection back for reuse, or closes it when the stack
// is full.
type Pool struct {
	cfg     Config
	maxIdle int

	mu     sync.Mutex
	idle   []*Conn
	closed bool
}

// NewPool creates a connection pool for the configured hub.
func NewPool(cfg Config) *Pool {
	maxIdle := cfg.PoolSize
	if maxIdle <= 0 {
		maxIdle = DefaultPoolSize
	}
	return &Pool{
		cfg:     cfg,
		maxIdle: maxIdle,
	}
}

// Acquire returns an idle connection, dialing a new one when none is
// available. The caller owns the connection until Release.
func (p *Pool) Acquire() (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if n := len(p.idle); n > 0 {
		conn := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	conn, err := Dial(p.cfg)
	if err != nil {
		return nil, err
	}
	p.logState(conn, "DIALED", "no idle connection")
	return conn, nil
}

// Release returns a connection to the pool. Connections that do not
// fit are closed.
func (p *Pool) Release(conn *Conn) {
	if conn == nil {
		return
	}

	p.mu.Lock()
	if !p.closed && len(p.idle) < p.maxIdle {
		p.idle = append(p.idle, conn)
		p.mu.Unlock()
		return
	}
	reason := "pool full"
	if p.closed {
		reason = "pool closed"
	}
	p.mu.Unlock()

	conn.Close()
	p.logState(conn, "DISCARDED", reason)
}

// Close closes all idle connections and rejects further Acquires.
// Borrowed connections are closed by their holders via Release.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var firstErr error
	for _, conn := range idle {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// IdleCount returns the number of idle connections.
func (p *Pool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *Pool) logState(conn *Conn, newState, reason string) {
	if p.cfg.Logger == nil {
		return
	}
	p.cfg.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: conn.ID(),
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   conn.remote,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityPool,
			NewState: newState,
			Reason:   reason,
		},
	})
}
