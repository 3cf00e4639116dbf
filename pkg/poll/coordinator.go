package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lifesmart-local/lifesmart-go/pkg/client"
	"github.com/lifesmart-local/lifesmart-go/pkg/log"
	"github.com/lifesmart-local/lifesmart-go/pkg/model"
	"github.com/lifesmart-local/lifesmart-go/pkg/retry"
)

// Polling constants.
const (
	// DefaultInterval is the default time between full refreshes.
	DefaultInterval = time.Second

	// DefaultAttemptTimeout bounds a single refresh attempt.
	DefaultAttemptTimeout = time.Second

	// DefaultMaxAttempts is the number of refresh attempts per cycle.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the wait after a failed attempt, doubling
	// per retry.
	DefaultRetryDelay = time.Second
)

// ErrUpdateFailed indicates a refresh cycle that exhausted its
// attempts or was rejected by the hub.
var ErrUpdateFailed = errors.New("update failed")

// Source is the slice of the hub client a Coordinator polls.
type Source interface {
	DiscoverDevices(ctx context.Context) ([]model.Device, error)
	GetDevice(ctx context.Context, me string) (model.Device, error)
}

var _ Source = (*client.Client)(nil)

// Config configures a polling coordinator.
type Config struct {
	// Interval between full refreshes (default: DefaultInterval).
	Interval time.Duration

	// AttemptTimeout bounds one refresh attempt
	// (default: DefaultAttemptTimeout).
	AttemptTimeout time.Duration

	// MaxAttempts per refresh cycle (default: DefaultMaxAttempts).
	MaxAttempts int

	// RetryDelay after a failed attempt, doubling per retry
	// (default: DefaultRetryDelay).
	RetryDelay time.Duration

	// Logger records availability changes. Nil disables logging.
	Logger log.Logger
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// Coordinator keeps a device snapshot fresh by polling the hub, and
// folds pushed state reports into it. Device values handed out are
// never mutated afterwards; updates replace them.
type Coordinator struct {
	source Source
	cfg    Config
	policy retry.Policy
	logger log.Logger

	mu          sync.RWMutex
	devices     map[string]model.Device
	available   bool
	lastErr     error
	lastRefresh time.Time

	refreshMu sync.Mutex // serializes refresh cycles
	running   atomic.Bool
}

// New creates a coordinator polling the given source.
func New(source Source, cfg Config) *Coordinator {
	cfg.applyDefaults()
	return &Coordinator{
		source: source,
		cfg:    cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryDelay,
			Retryable:   client.Transient,
		},
		logger:  cfg.Logger,
		devices: make(map[string]model.Device),
	}
}

// Run polls the hub until ctx ends. The first refresh happens
// immediately; ticks that land during a slow refresh are dropped, not
// queued.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("coordinator already running")
	}
	defer c.running.Store(false)

	c.RefreshAll(ctx)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.RefreshAll(ctx)
		}
	}
}

// RefreshAll replaces the snapshot with a fresh device enumeration.
// Failure flips the coordinator to unavailable and the error wraps
// ErrUpdateFailed; success flips it back. A canceled context returns
// its error without touching availability.
func (c *Coordinator) RefreshAll(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	devices, err := retry.DoValue(ctx, c.policy, func(attempt int) ([]model.Device, error) {
		actx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()
		return c.source.DiscoverDevices(actx)
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		err = fmt.Errorf("%w: %w", ErrUpdateFailed, err)
		c.setUnavailable(err)
		return err
	}

	snapshot := make(map[string]model.Device, len(devices))
	for _, d := range devices {
		snapshot[d.Me] = d
	}

	c.mu.Lock()
	c.devices = snapshot
	c.lastRefresh = time.Now()
	c.mu.Unlock()
	c.setAvailable()
	return nil
}

// RefreshDevice re-reads one device and merges it into the snapshot.
// Failure semantics match RefreshAll.
func (c *Coordinator) RefreshDevice(ctx context.Context, me string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	device, err := retry.DoValue(ctx, c.policy, func(attempt int) (model.Device, error) {
		actx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()
		return c.source.GetDevice(actx, me)
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		err = fmt.Errorf("%w: device %s: %w", ErrUpdateFailed, me, err)
		c.setUnavailable(err)
		return err
	}

	c.mu.Lock()
	c.devices[device.Me] = device
	c.lastRefresh = time.Now()
	c.mu.Unlock()
	c.setAvailable()
	return nil
}

// ApplyUpdate folds a pushed state report into the snapshot. It
// reports false for devices the snapshot does not know yet; the next
// poll picks those up. The stored device gets a fresh channel map so
// previously handed-out snapshots stay untouched.
func (c *Coordinator) ApplyUpdate(u model.Update) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.devices[u.Me]
	if !ok {
		return false
	}

	data := make(map[string]model.ChannelValue, len(d.Data)+1)
	for idx, cv := range d.Data {
		data[idx] = cv
	}

	cv := data[u.Idx]
	cv.Type = u.Type
	if u.HasValue {
		v := u.Value
		cv.V = &v
	}
	data[u.Idx] = cv

	d.Data = data
	c.devices[u.Me] = d
	return true
}

// Snapshot returns a copy of the device map keyed by device id.
func (c *Coordinator) Snapshot() map[string]model.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]model.Device, len(c.devices))
	for id, d := range c.devices {
		snapshot[id] = d
	}
	return snapshot
}

// Device returns one device from the snapshot.
func (c *Coordinator) Device(me string) (model.Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.devices[me]
	return d, ok
}

// Available reports whether the last refresh succeeded.
func (c *Coordinator) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// LastError returns the error of the last failed refresh, or nil.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastRefresh returns when the snapshot was last replaced.
func (c *Coordinator) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

func (c *Coordinator) setAvailable() {
	c.mu.Lock()
	flipped := !c.available
	c.available = true
	c.lastErr = nil
	c.mu.Unlock()
	if flipped {
		c.logAvailability("AVAILABLE", "")
	}
}

func (c *Coordinator) setUnavailable(err error) {
	c.mu.Lock()
	// lastErr is nil only before the first failure or after a
	// recovery, so the very first exhausted refresh counts as a flip
	// even though the coordinator starts out unavailable.
	flipped := c.available || c.lastErr == nil
	c.available = false
	c.lastErr = err
	c.mu.Unlock()
	if flipped {
		c.logAvailability("UNAVAILABLE", err.Error())
	}
}

func (c *Coordinator) logAvailability(state, reason string) {
	if c.logger == nil {
		return
	}
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerClient,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityCoordinator,
			NewState: state,
			Reason:   reason,
		},
	})
}
