// Package model implements the LifeSmart device data model.
//
// # Device Model
//
// The hub exposes a flat, 2-level hierarchy:
//
//	Device > Channel
//
// A Device represents one enrolled endpoint (switch, sensor, curtain
// motor, IR blaster). Its Data map holds named sub-channels ("L1",
// "P2", "T", ...), each carrying a value type code and the current
// value. Devices are identified by the hub-scoped "me" id; "devtype"
// names the product family (SL_SW_ND1, SL_NATURE, SL_P_IR, ...).
//
// # Value Encoding
//
// Channels report their value in either "v" (measurements, usually
// fractional) or "val" (raw register). Value() prefers v and falls
// back to val; the distinction is hub firmware detail, not meaning.
//
// # Remotes
//
// IR blaster devices additionally expose learned remote controls.
// A Remote identifies one learned control; a RemoteProfile pairs it
// with its usable key names.
//
// The package also decodes hub responses and state reports into these
// types. The decoders are deliberately tolerant: hub firmwares differ
// in list/map framing, and a client must accept all observed variants.
package model
