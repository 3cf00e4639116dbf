package model

// Remote identifies one learned IR remote control on the hub.
type Remote struct {
	// ID is the hub-scoped remote identifier. It embeds the id of
	// the IR blaster device that carries the remote.
	ID string `json:"id"`

	// Name is the user-assigned remote name.
	Name string `json:"name,omitempty"`

	// Category is the appliance category (tv, ac, ...).
	Category string `json:"category,omitempty"`

	// Brand is the appliance brand the codes were learned from.
	Brand string `json:"brand,omitempty"`
}

// RemoteProfile pairs a remote with its usable key names.
type RemoteProfile struct {
	Remote Remote
	Keys   []string
}

// HasKey reports whether the profile carries the named key.
func (p RemoteProfile) HasKey(key string) bool {
	for _, k := range p.Keys {
		if k == key {
			return true
		}
	}
	return false
}
