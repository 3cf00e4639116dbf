package model

// Update is one decoded state push from the hub.
type Update struct {
	// Me is the device the update refers to.
	Me string

	// Idx is the sub-channel index.
	Idx string

	// Type is the protocol value type code.
	Type int

	// Value is the reported value. Valid only when HasValue is set;
	// some pushes carry a type change without a value.
	Value float64

	// HasValue reports whether the push carried a value.
	HasValue bool
}
