package model

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

// DevicesFromMsg decodes the msg payload of a device enumeration
// response. Hub firmwares frame the list either as a JSON array or as
// an object keyed by device id; both are accepted.
func DevicesFromMsg(msg json.RawMessage) ([]Device, error) {
	var list []Device
	if err := json.Unmarshal(msg, &list); err == nil {
		return list, nil
	}

	var keyed map[string]Device
	if err := json.Unmarshal(msg, &keyed); err == nil {
		devices := make([]Device, 0, len(keyed))
		for id, d := range keyed {
			if d.Me == "" {
				d.Me = id
			}
			devices = append(devices, d)
		}
		sort.Slice(devices, func(i, j int) bool { return devices[i].Me < devices[j].Me })
		return devices, nil
	}

	var single Device
	if err := json.Unmarshal(msg, &single); err == nil && single.Me != "" {
		return []Device{single}, nil
	}

	return nil, fmt.Errorf("%w: unrecognized device list payload", wire.ErrMalformedResponse)
}

// DeviceFromMsg decodes the msg payload of a single-device response.
// Some firmwares answer a filtered query with a one-element list.
func DeviceFromMsg(msg json.RawMessage) (Device, error) {
	var d Device
	if err := json.Unmarshal(msg, &d); err == nil && d.Me != "" {
		return d, nil
	}

	var list []Device
	if err := json.Unmarshal(msg, &list); err == nil && len(list) > 0 {
		return list[0], nil
	}

	return Device{}, fmt.Errorf("%w: unrecognized device payload", wire.ErrMalformedResponse)
}

// ChannelFromMsg decodes a single-device response and picks the idx
// sub-channel out of its data map.
func ChannelFromMsg(msg json.RawMessage, idx string) (ChannelValue, error) {
	d, err := DeviceFromMsg(msg)
	if err != nil {
		return ChannelValue{}, err
	}
	c, ok := d.Channel(idx)
	if !ok {
		return ChannelValue{}, fmt.Errorf("%w: response lacks channel %q", wire.ErrMalformedResponse, idx)
	}
	return c, nil
}

// RemotesFromMsg decodes the msg payload of a spotremote getlist
// response.
func RemotesFromMsg(msg json.RawMessage) ([]Remote, error) {
	var list []Remote
	if err := json.Unmarshal(msg, &list); err == nil {
		return list, nil
	}

	var single Remote
	if err := json.Unmarshal(msg, &single); err == nil && single.ID != "" {
		return []Remote{single}, nil
	}

	return nil, fmt.Errorf("%w: unrecognized remote list payload", wire.ErrMalformedResponse)
}

// KeysFromMsg decodes the msg payload of a spotremote getkeys
// response. Firmwares answer with a plain name array, an object keyed
// by name, or a list of key objects; all are accepted. Keys from keyed
// objects come back sorted.
func KeysFromMsg(msg json.RawMessage) ([]string, error) {
	var names []string
	if err := json.Unmarshal(msg, &names); err == nil {
		return names, nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(msg, &keyed); err == nil {
		names = make([]string, 0, len(keyed))
		for name := range keyed {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}

	var objs []struct {
		Name string `json:"name"`
		Key  string `json:"key"`
	}
	if err := json.Unmarshal(msg, &objs); err == nil {
		names = make([]string, 0, len(objs))
		for _, o := range objs {
			switch {
			case o.Name != "":
				names = append(names, o.Name)
			case o.Key != "":
				names = append(names, o.Key)
			}
		}
		return names, nil
	}

	return nil, fmt.Errorf("%w: unrecognized key list payload", wire.ErrMalformedResponse)
}

// reportMsg is the shape of a state report's msg payload. Unlike
// enumeration responses, data here is channel-scoped: the idx sits at
// the top level and data carries just the value.
type reportMsg struct {
	Me   string   `json:"me"`
	Idx  string   `json:"idx"`
	Type int      `json:"type"`
	Val  *float64 `json:"val"`
	Data struct {
		V *float64 `json:"v"`
	} `json:"data"`
}

// UpdateFromMsg decodes the msg payload of a state report datagram.
func UpdateFromMsg(msg json.RawMessage) (Update, error) {
	var r reportMsg
	if err := json.Unmarshal(msg, &r); err != nil {
		return Update{}, fmt.Errorf("%w: state report: %v", wire.ErrMalformedResponse, err)
	}
	if r.Me == "" {
		return Update{}, fmt.Errorf("%w: state report without device id", wire.ErrMalformedResponse)
	}

	u := Update{Me: r.Me, Idx: r.Idx, Type: r.Type}
	switch {
	case r.Data.V != nil:
		u.Value = *r.Data.V
		u.HasValue = true
	case r.Val != nil:
		u.Value = *r.Val
		u.HasValue = true
	}
	return u, nil
}
