package model

// ChannelValue is one sub-channel entry in a device's data map.
type ChannelValue struct {
	// Type is the protocol value type code (0x80/0x81 for off/on).
	Type int `json:"type,omitempty"`

	// V is the measurement value, when reported.
	V *float64 `json:"v,omitempty"`

	// Val is the raw register value, when reported.
	Val *float64 `json:"val,omitempty"`

	// Name is the hub-assigned channel label. May contain the
	// "{$EPN}" placeholder the app substitutes.
	Name string `json:"name,omitempty"`
}

// Value returns the channel's reported value, preferring v over val.
// ok is false when the channel reported neither.
func (c ChannelValue) Value() (value float64, ok bool) {
	if c.V != nil {
		return *c.V, true
	}
	if c.Val != nil {
		return *c.Val, true
	}
	return 0, false
}

// On reports whether the channel is switched on. Switch channels
// carry the state in the low bit of the type code; a channel without
// a type code falls back to a non-zero value. The type code wins over
// the value so a value-less off push is not masked by a stale value.
func (c ChannelValue) On() bool {
	if c.Type != 0 {
		return c.Type&0x01 == 1
	}
	v, ok := c.Value()
	return ok && v != 0
}

// Device is one endpoint enrolled on the hub.
type Device struct {
	// Me is the hub-scoped device identifier.
	Me string `json:"me"`

	// Devtype names the product family (SL_SW_ND1, SL_P_IR, ...).
	Devtype string `json:"devtype"`

	// Name is the user-assigned device name.
	Name string `json:"name,omitempty"`

	// Agt is the hub (agent) identifier.
	Agt string `json:"agt,omitempty"`

	// Epver is the endpoint firmware version.
	Epver string `json:"epver,omitempty"`

	// Data holds the sub-channels by index ("L1", "P2", "T", ...).
	Data map[string]ChannelValue `json:"data,omitempty"`
}

// Channel returns the data entry for idx.
func (d Device) Channel(idx string) (ChannelValue, bool) {
	c, ok := d.Data[idx]
	return c, ok
}

// State describes one control write to a device sub-channel.
type State struct {
	// Idx is the sub-channel index ("L1", "P2", ...).
	Idx string

	// Type is the value type code (wire.TypeOn / wire.TypeOff for
	// switches).
	Type int

	// Val is the value to write.
	Val int
}
