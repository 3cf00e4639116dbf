package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lifesmart-local/lifesmart-go/pkg/log"
	"github.com/lifesmart-local/lifesmart-go/pkg/model"
	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

// DiscoverDevices enumerates every device enrolled on the hub. The
// result is never cached: the poller relies on it observing current
// hub state.
func (c *Client) DiscoverDevices(ctx context.Context) ([]model.Device, error) {
	resp, err := c.command(ctx, wire.CommandQuery, wire.ObjectDevices, wire.Args{"me": ""}, c.cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("discover devices: %w", err)
	}
	return model.DevicesFromMsg(resp.Msg)
}

// GetDevice reads one device's full state under the short per-device
// timeout.
func (c *Client) GetDevice(ctx context.Context, me string) (model.Device, error) {
	resp, err := c.command(ctx, wire.CommandQuery, wire.ObjectDevice, wire.Args{"me": me}, c.cfg.DeviceTimeout)
	if err != nil {
		return model.Device{}, fmt.Errorf("get device %s: %w", me, err)
	}
	return model.DeviceFromMsg(resp.Msg)
}

// GetChannel reads a single sub-channel of a device.
func (c *Client) GetChannel(ctx context.Context, me, idx string) (model.ChannelValue, error) {
	args := wire.Args{
		"tag":  "m",
		"me":   me,
		"idx":  idx,
		"type": 0,
		"val":  0,
	}
	resp, err := c.command(ctx, wire.CommandQuery, wire.ObjectDevice, args, c.cfg.DeviceTimeout)
	if err != nil {
		return model.ChannelValue{}, fmt.Errorf("get channel %s/%s: %w", me, idx, err)
	}
	return model.ChannelFromMsg(resp.Msg, idx)
}

// SetDeviceState writes one sub-channel. Identical writes within the
// state cache window are suppressed and report the previous success.
func (c *Client) SetDeviceState(ctx context.Context, me string, st model.State) error {
	key := stateKey{me: me, idx: st.Idx, typ: st.Type, val: st.Val}
	if _, ok := c.stateCache.Get(key); ok {
		return nil
	}

	args := wire.Args{
		"tag":  "m",
		"me":   me,
		"idx":  st.Idx,
		"type": st.Type,
		"val":  st.Val,
	}
	if _, err := c.command(ctx, wire.CommandControl, wire.ObjectDevice, args, c.cfg.DeviceTimeout); err != nil {
		return fmt.Errorf("set state %s/%s: %w", me, st.Idx, err)
	}

	c.stateCache.Put(key, struct{}{})
	return nil
}

// RemoteList enumerates the learned IR remotes with their key names.
// Remotes whose key lookup fails are skipped; the hub keeps answering
// for the rest. List and key results are cached.
func (c *Client) RemoteList(ctx context.Context) ([]model.RemoteProfile, error) {
	remotes, ok := c.remoteListCache.Get(remoteListKey)
	if !ok {
		resp, err := c.command(ctx, wire.CommandControl, wire.ObjectRemote, wire.Args{"cmd": "getlist"}, c.cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("remote list: %w", err)
		}
		remotes, err = model.RemotesFromMsg(resp.Msg)
		if err != nil {
			return nil, err
		}
		c.remoteListCache.Put(remoteListKey, remotes)
	}

	profiles := make([]model.RemoteProfile, 0, len(remotes))
	for _, r := range remotes {
		keys, err := c.RemoteKeys(ctx, r.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		profiles = append(profiles, model.RemoteProfile{Remote: r, Keys: keys})
	}
	return profiles, nil
}

// RemoteKeys reads the key names learned for one remote. Results are
// cached per remote id.
func (c *Client) RemoteKeys(ctx context.Context, remoteID string) ([]string, error) {
	if keys, ok := c.remoteKeysCache.Get(remoteID); ok {
		return keys, nil
	}

	resp, err := c.command(ctx, wire.CommandControl, wire.ObjectRemote, wire.Args{"id": remoteID, "cmd": "getkeys"}, c.cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("remote keys %s: %w", remoteID, err)
	}
	keys, err := model.KeysFromMsg(resp.Msg)
	if err != nil {
		return nil, err
	}

	c.remoteKeysCache.Put(remoteID, keys)
	return keys, nil
}

// SendRemoteKey fires one learned IR key. Sends are never cached or
// deduplicated: firing the same key twice is meaningful.
//
// IR blasts are fire-and-forget. When every attempt died on the wire
// (timeout or socket failure) the blast may still have gone out, so
// the unknown outcome is logged and reported as success. An explicit
// hub rejection is authoritative and surfaces as an error.
func (c *Client) SendRemoteKey(ctx context.Context, remoteID, key string) error {
	args := wire.Args{"id": remoteID, "cmd": "sendkey", "key": key}
	_, err := c.command(ctx, wire.CommandControl, wire.ObjectRemote, args, c.cfg.Timeout)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("send key %s to %s: %w", key, remoteID, err)
	}

	var perr *ProtocolError
	if errors.As(err, &perr) {
		return fmt.Errorf("send key %s to %s: %w", key, remoteID, err)
	}
	if Transient(err) {
		c.logUnknownOutcome(remoteID, key, err)
		return nil
	}
	return fmt.Errorf("send key %s to %s: %w", key, remoteID, err)
}

// SendRemoteKeys fires a sequence of learned IR keys in order,
// stopping at the first hard failure.
func (c *Client) SendRemoteKeys(ctx context.Context, remoteID string, keys []string) error {
	for _, key := range keys {
		if err := c.SendRemoteKey(ctx, remoteID, key); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) logUnknownOutcome(remoteID, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionOut,
		Layer:     log.LayerClient,
		Category:  log.CategoryError,
		DeviceID:  remoteID,
		Error: &log.ErrorEventData{
			Layer:   log.LayerClient,
			Message: err.Error(),
			Context: fmt.Sprintf("sendkey %s: outcome unknown, reported as sent", key),
		},
	})
}
