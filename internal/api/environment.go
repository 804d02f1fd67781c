package api

import (
	"fmt"
	"strings"
)

// Environment is the runtime side a component belongs to.
type Environment int

const (
	// ClientMode is the game client.
	ClientMode Environment = iota

	// ServerMode is a dedicated server.
	ServerMode

	// DualMode components run on both sides.
	DualMode
)

// String returns the lower-case environment name.
func (e Environment) String() string {
	switch e {
	case ClientMode:
		return "client"
	case ServerMode:
		return "server"
	case DualMode:
		return "dual"
	default:
		return fmt.Sprintf("Environment(%d)", int(e))
	}
}

// Matches reports whether a component declared for e may run in current.
func (e Environment) Matches(current Environment) bool {
	return e == DualMode || e == current
}

// ParseEnvironment parses "client", "server", "dual" or "both" (case-insensitive).
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client":
		return ClientMode, nil
	case "server":
		return ServerMode, nil
	case "dual", "both", "":
		return DualMode, nil
	default:
		return DualMode, fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Environment) MarshalText() ([]byte, error) {
	switch e {
	case ClientMode, ServerMode, DualMode:
		return []byte(e.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownEnvironment, int(e))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Environment) UnmarshalText(text []byte) error {
	parsed, err := ParseEnvironment(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
