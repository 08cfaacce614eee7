package filesync

// Capabilities is the result of probing the environment for usable backends.
type Capabilities struct {
	Sandboxed     bool `json:"sandboxed"`
	UserSelection bool `json:"userSelection"`
}

// Supported reports whether at least one backend is usable.
func (c Capabilities) Supported() bool {
	return c.Sandboxed || c.UserSelection
}

// Probe checks each backend without side effects.
func Probe(backends ...StorageBackend) Capabilities {
	var caps Capabilities
	for _, b := range backends {
		if b == nil || !b.Available() {
			continue
		}
		switch b.Kind() {
		case KindSandboxed:
			caps.Sandboxed = true
		case KindUserSelected:
			caps.UserSelection = true
		}
	}
	return caps
}
