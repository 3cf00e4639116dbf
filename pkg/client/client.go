package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lifesmart-local/lifesmart-go/pkg/cache"
	"github.com/lifesmart-local/lifesmart-go/pkg/log"
	"github.com/lifesmart-local/lifesmart-go/pkg/model"
	"github.com/lifesmart-local/lifesmart-go/pkg/retry"
	"github.com/lifesmart-local/lifesmart-go/pkg/transport"
	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

// Default client timing.
const (
	// DefaultTimeout bounds one command exchange.
	DefaultTimeout = 5 * time.Second

	// DefaultDeviceTimeout bounds per-device reads and control writes.
	DefaultDeviceTimeout = 2 * time.Second

	// DefaultStateCacheTTL is the duplicate-suppression window for
	// control writes.
	DefaultStateCacheTTL = 2 * time.Second

	// DefaultRemoteCacheTTL is the reuse window for remote-control
	// list and key lookups. The hub recomputes these slowly.
	DefaultRemoteCacheTTL = 300 * time.Second
)

// Config configures a hub client.
type Config struct {
	// Host is the hub address. Required.
	Host string

	// Port is the hub command port (default: wire.Port).
	Port int

	// Model is the client model string sent in every command
	// (default: wire.DefaultModel).
	Model string

	// Token is the hub's local access token. Required; the hub app
	// shows it under local smart assistant settings.
	Token string

	// Timeout bounds one command exchange (default: DefaultTimeout).
	Timeout time.Duration

	// DeviceTimeout bounds per-device reads and control writes
	// (default: DefaultDeviceTimeout).
	DeviceTimeout time.Duration

	// StateCacheTTL is the duplicate-suppression window for control
	// writes (default: DefaultStateCacheTTL; negative disables).
	StateCacheTTL time.Duration

	// RemoteCacheTTL is the reuse window for remote list and key
	// lookups (default: DefaultRemoteCacheTTL; negative disables).
	RemoteCacheTTL time.Duration

	// PoolSize is the idle connection bound (default:
	// transport.DefaultPoolSize).
	PoolSize int

	// Retry is the per-command retry policy. The zero value means
	// retry.DefaultPolicy. A nil Retryable is replaced by Transient.
	Retry retry.Policy

	// Logger records protocol events. Nil disables logging.
	Logger log.Logger
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = wire.Port
	}
	if c.Model == "" {
		c.Model = wire.DefaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DeviceTimeout == 0 {
		c.DeviceTimeout = DefaultDeviceTimeout
	}
	if c.StateCacheTTL == 0 {
		c.StateCacheTTL = DefaultStateCacheTTL
	}
	if c.RemoteCacheTTL == 0 {
		c.RemoteCacheTTL = DefaultRemoteCacheTTL
	}
	if c.Retry.MaxAttempts == 0 && c.Retry.BaseDelay == 0 && c.Retry.Retryable == nil {
		c.Retry = retry.DefaultPolicy()
	}
	if c.Retry.Retryable == nil {
		c.Retry.Retryable = Transient
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("%w: host is required", ErrConfig)
	}
	if c.Token == "" {
		return fmt.Errorf("%w: token is required", ErrConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is required", ErrConfig)
	}
	return nil
}

// stateKey identifies one control write for duplicate suppression.
type stateKey struct {
	me  string
	idx string
	typ int
	val int
}

// remoteListKey is the single cache slot for the hub-wide remote list.
const remoteListKey = "getlist"

// Client issues signed commands to one LifeSmart hub.
//
// A Client owns its sequence counter (via the codec), its connection
// pool, its caches and its retry policy; two Clients never share
// state. All methods are safe for concurrent use.
type Client struct {
	cfg    Config
	codec  *wire.Codec
	pool   *transport.Pool
	policy retry.Policy
	logger log.Logger

	stateCache      *cache.Cache[stateKey, struct{}]
	remoteListCache *cache.Cache[string, []model.Remote]
	remoteKeysCache *cache.Cache[string, []string]

	closeCh   chan struct{}
	closeOnce sync.Once
}

// New creates a client for the configured hub. No socket is opened
// until the first command.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Client{
		cfg:   cfg,
		codec: wire.NewCodec(cfg.Model, cfg.Token),
		pool: transport.NewPool(transport.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			PoolSize: cfg.PoolSize,
			Logger:   cfg.Logger,
		}),
		policy:          cfg.Retry,
		logger:          cfg.Logger,
		stateCache:      cache.New[stateKey, struct{}](cfg.StateCacheTTL),
		remoteListCache: cache.New[string, []model.Remote](cfg.RemoteCacheTTL),
		remoteKeysCache: cache.New[string, []string](cfg.RemoteCacheTTL),
		closeCh:         make(chan struct{}),
	}, nil
}

// Close releases the client's pooled connections. In-flight commands
// on borrowed connections finish; new commands fail with ErrClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.pool.Close()
	})
	return err
}

// command runs one signed command under the retry policy and returns
// the accepted response.
func (c *Client) command(ctx context.Context, cmd wire.CommandType, obj string, args wire.Args, timeout time.Duration) (*wire.Response, error) {
	return retry.DoValue(ctx, c.policy, func(attempt int) (*wire.Response, error) {
		return c.exchange(ctx, cmd, obj, args, timeout, attempt)
	})
}

// exchange performs a single command attempt. Each attempt builds a
// fresh message: new sequence id, new timestamp, new signature.
// A context deadline tighter than timeout wins.
func (c *Client) exchange(ctx context.Context, cmd wire.CommandType, obj string, args wire.Args, timeout time.Duration, attempt int) (*wire.Response, error) {
	select {
	case <-c.closeCh:
		return nil, ErrClosed
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	msg := c.codec.Build(obj, args)
	data, err := wire.EncodeMessage(cmd, msg)
	if err != nil {
		return nil, err
	}

	conn, err := c.pool.Acquire()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	respData, err := conn.Exchange(data, timeout)
	if err != nil {
		// A timed-out socket is still sound; anything else is not.
		if errors.Is(err, transport.ErrTimeout) {
			c.pool.Release(conn)
		} else {
			conn.Close()
		}
		c.logExchange(conn.ID(), log.DirectionOut, msg, cmd, attempt, nil, 0)
		c.logError(conn.ID(), err, fmt.Sprintf("%s %s attempt %d", obj, cmd, attempt))
		return nil, err
	}
	rtt := time.Since(start)
	c.pool.Release(conn)
	c.logExchange(conn.ID(), log.DirectionOut, msg, cmd, attempt, nil, 0)

	resp, err := wire.ParseResponse(respData)
	if err != nil {
		c.logError(conn.ID(), err, fmt.Sprintf("%s %s attempt %d", obj, cmd, attempt))
		return nil, err
	}

	c.logExchange(conn.ID(), log.DirectionIn, msg, cmd, attempt, &resp.Code, rtt)

	if !resp.OK() {
		return nil, &ProtocolError{Code: resp.Code, Msg: resp.Msg}
	}
	return resp, nil
}

// logExchange logs one leg of a command round trip: the outgoing
// request (code nil) or the decoded response with its code and RTT.
func (c *Client) logExchange(connID string, direction log.Direction, msg *wire.Message, cmd wire.CommandType, attempt int, code *int, rtt time.Duration) {
	if c.logger == nil {
		return
	}

	exchange := &log.ExchangeEvent{
		Object:   msg.Object,
		Command:  cmd,
		Sequence: msg.ID,
		Attempt:  attempt,
	}
	if code != nil {
		codeCopy := *code
		exchange.Code = &codeCopy
		rttCopy := rtt
		exchange.RTT = &rttCopy
	}

	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        log.LayerClient,
		Category:     log.CategoryMessage,
		DeviceID:     deviceIDFromArgs(msg.Args),
		Exchange:     exchange,
	})
}

func (c *Client) logError(connID string, err error, context string) {
	if c.logger == nil {
		return
	}

	data := &log.ErrorEventData{
		Layer:   log.LayerClient,
		Message: err.Error(),
		Context: context,
	}
	var perr *ProtocolError
	if errors.As(err, &perr) {
		data.Code = &perr.Code
	}

	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerClient,
		Category:     log.CategoryError,
		Error:        data,
	})
}

// deviceIDFromArgs extracts the device a command addresses, when any.
func deviceIDFromArgs(args wire.Args) string {
	if me, ok := args["me"].(string); ok && me != "" {
		return me
	}
	if id, ok := args["id"].(string); ok {
		return id
	}
	return ""
}
