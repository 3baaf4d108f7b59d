package compose

// State is the composition lifecycle of one map instance.
type State int

const (
	Constructed State = iota
	AwaitingStyle
	Composing
	Composed
	// Failed means the fetch aggregate or composition returned an error.
	Failed
	// Abandoned means the instance went away before composition could run.
	Abandoned
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case AwaitingStyle:
		return "awaiting_style"
	case Composing:
		return "composing"
	case Composed:
		return "composed"
	case Failed:
		return "failed"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Composed || s == Failed || s == Abandoned
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
