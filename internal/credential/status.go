package credential

import (
	"fmt"
	"time"
)

// Staleness tells whether a credential is still usable.
type Staleness int

const (
	// Unknown means no expiry could be determined. It is not an error.
	Unknown Staleness = iota
	Fresh
	Expired
)

func (s Staleness) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// MarshalText renders the staleness by name in JSON and YAML output.
func (s Staleness) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (s *Staleness) UnmarshalText(text []byte) error {
	switch string(text) {
	case "fresh":
		*s = Fresh
	case "expired":
		*s = Expired
	case "unknown", "":
		*s = Unknown
	default:
		return fmt.Errorf("unknown staleness %q", string(text))
	}
	return nil
}

// Status is the outcome of inspecting a credential. ExpiresAt is zero when
// Staleness is Unknown.
type Status struct {
	Staleness Staleness `json:"staleness" yaml:"staleness"`
	ExpiresAt time.Time `json:"expiresAt,omitzero" yaml:"expiresAt,omitempty"`
}

// classify compares expiry against now plus margin. A credential inside the
// margin is already treated as expired.
func classify(expiry, now time.Time, margin time.Duration) Status {
	if expiry.IsZero() {
		return Status{Staleness: Unknown}
	}
	if expiry.After(now.Add(margin)) {
		return Status{Staleness: Fresh, ExpiresAt: expiry}
	}
	return Status{Staleness: Expired, ExpiresAt: expiry}
}
