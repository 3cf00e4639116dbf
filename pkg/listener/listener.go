package listener

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lifesmart-local/lifesmart-go/pkg/log"
	"github.com/lifesmart-local/lifesmart-go/pkg/model"
	"github.com/lifesmart-local/lifesmart-go/pkg/retry"
	"github.com/lifesmart-local/lifesmart-go/pkg/transport"
	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

// DefaultQueueSize is the update queue bound. When the queue is full
// the oldest update is dropped; device state converges on the next
// poll anyway.
const DefaultQueueSize = 64

// Config configures a state-update listener.
type Config struct {
	// Addr is the local address to bind (default ":12348"). Hubs push
	// reports to the command port, so production listeners keep the
	// default; tests bind an ephemeral port.
	Addr string

	// QueueSize bounds the update queue (default: DefaultQueueSize).
	QueueSize int

	// Logger records protocol events. Nil disables logging.
	Logger log.Logger
}

// Listener receives unsolicited state reports on a dedicated UDP
// socket. Malformed datagrams are dropped and logged; socket failures
// rebind with backoff. A Listener runs once: after Stop it cannot be
// restarted.
type Listener struct {
	cfg     Config
	id      string
	backoff *retry.Backoff

	updates chan model.Update
	dropped atomic.Uint64

	mu sync.Mutex // guards pc across rebinds
	pc *net.UDPConn

	running atomic.Bool
	stopped atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a listener. The socket is not bound until Start.
func New(cfg Config) *Listener {
	if cfg.Addr == "" {
		cfg.Addr = fmt.Sprintf(":%d", wire.Port)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Listener{
		cfg:     cfg,
		id:      uuid.New().String(),
		backoff: retry.NewBackoff(),
		updates: make(chan model.Update, cfg.QueueSize),
	}
}

// Start binds the socket and begins receiving reports.
func (l *Listener) Start(ctx context.Context) error {
	if l.stopped.Load() {
		return fmt.Errorf("listener stopped")
	}
	if l.running.Load() {
		return fmt.Errorf("listener already running")
	}

	pc, err := l.bind()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.pc = pc
	l.mu.Unlock()

	ctx, l.cancel = context.WithCancel(ctx)
	l.running.Store(true)
	l.logState("LISTENING", "")

	l.wg.Add(1)
	go l.readLoop(ctx)
	return nil
}

// Stop closes the socket and ends the read loop. The update channel
// is closed once the loop exits; buffered updates stay readable.
func (l *Listener) Stop() error {
	if !l.running.Load() {
		return nil
	}
	l.running.Store(false)
	l.stopped.Store(true)
	l.cancel()

	l.mu.Lock()
	if l.pc != nil {
		l.pc.Close()
	}
	l.mu.Unlock()

	l.wg.Wait()
	l.logState("STOPPED", "")
	return nil
}

// Updates exposes the decoded report stream. The channel closes when
// the listener stops.
func (l *Listener) Updates() <-chan model.Update {
	return l.updates
}

// TryNext pops the next buffered update without blocking.
func (l *Listener) TryNext() (model.Update, bool) {
	select {
	case u, ok := <-l.updates:
		if !ok {
			return model.Update{}, false
		}
		return u, true
	default:
		return model.Update{}, false
	}
}

// Dropped reports how many updates were discarded to full queues.
func (l *Listener) Dropped() uint64 {
	return l.dropped.Load()
}

// Addr returns the bound local address, or nil while rebinding.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pc == nil {
		return nil
	}
	return l.pc.LocalAddr()
}

func (l *Listener) bind() (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", l.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", transport.ErrConnection, l.cfg.Addr, err)
	}
	pc, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: bind %s: %v", transport.ErrConnection, l.cfg.Addr, err)
	}
	return pc, nil
}

// readLoop receives datagrams until the listener stops. Read errors
// drop the socket and rebind with backoff; decode errors drop the
// datagram only.
func (l *Listener) readLoop(ctx context.Context) {
	defer l.wg.Done()
	defer close(l.updates)

	buf := make([]byte, wire.MaxDatagramSize)
	for l.running.Load() {
		l.mu.Lock()
		pc := l.pc
		l.mu.Unlock()

		if pc == nil {
			if !l.rebind(ctx) {
				return
			}
			continue
		}

		n, addr, err := pc.ReadFromUDP(buf)
		if err != nil {
			if !l.running.Load() || ctx.Err() != nil {
				return
			}
			l.logError(err, "read")
			l.logState("REBINDING", err.Error())
			pc.Close()
			l.mu.Lock()
			l.pc = nil
			l.mu.Unlock()
			continue
		}

		l.backoff.Reset()
		l.handle(buf[:n], addr)
	}
}

// rebind waits out the backoff and binds a fresh socket. It reports
// false only when the context ended.
func (l *Listener) rebind(ctx context.Context) bool {
	timer := time.NewTimer(l.backoff.Next())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	pc, err := l.bind()
	if err != nil {
		l.logError(err, "rebind")
		return ctx.Err() == nil
	}

	l.mu.Lock()
	l.pc = pc
	l.mu.Unlock()
	l.logState("LISTENING", "rebound")
	return true
}

// handle decodes one datagram into an update. Anything that does not
// decode is dropped; hubs share the port with command replies and
// other chatter.
func (l *Listener) handle(data []byte, addr *net.UDPAddr) {
	l.logDatagram(data, addr)

	resp, err := wire.ParseResponse(data)
	if err != nil {
		l.logError(err, fmt.Sprintf("datagram from %s", addr))
		return
	}

	u, err := model.UpdateFromMsg(resp.Msg)
	if err != nil {
		l.logError(err, fmt.Sprintf("report from %s", addr))
		return
	}

	l.enqueue(u)
	l.logUpdate(u, addr)
}

// enqueue adds an update, evicting the oldest entries while the queue
// is full.
func (l *Listener) enqueue(u model.Update) {
	for {
		select {
		case l.updates <- u:
			return
		default:
		}
		select {
		case <-l.updates:
			l.dropped.Add(1)
		default:
		}
	}
}

func (l *Listener) logState(newState, reason string) {
	if l.cfg.Logger == nil {
		return
	}
	l.cfg.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: l.id,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityListener,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (l *Listener) logError(err error, context string) {
	if l.cfg.Logger == nil {
		return
	}
	l.cfg.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: l.id,
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (l *Listener) logDatagram(data []byte, addr *net.UDPAddr) {
	if l.cfg.Logger == nil {
		return
	}
	size := len(data)
	truncated := false
	if len(data) > transport.MaxLogDatagramSize {
		data = data[:transport.MaxLogDatagramSize]
		truncated = true
	}
	l.cfg.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: l.id,
		Direction:    log.DirectionIn,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		RemoteAddr:   addr.String(),
		Datagram: &log.DatagramEvent{
			Size:      size,
			Data:      append([]byte(nil), data...),
			Truncated: truncated,
		},
	})
}

func (l *Listener) logUpdate(u model.Update, addr *net.UDPAddr) {
	if l.cfg.Logger == nil {
		return
	}
	l.cfg.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: l.id,
		Direction:    log.DirectionIn,
		Layer:        log.LayerClient,
		Category:     log.CategoryMessage,
		RemoteAddr:   addr.String(),
		DeviceID:     u.Me,
		Update: &log.UpdateEvent{
			Me:        u.Me,
			Idx:       u.Idx,
			ValueType: u.Type,
			Value:     u.Value,
		},
	})
}
