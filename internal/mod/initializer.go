package mod

import (
	"github.com/sledgemc/sledge/internal/api"
)

// UnknownID is reported for initializers that do not name themselves.
const UnknownID = "unknown"

// Initializer is the entrypoint of a mod. OnInitialize runs once, after the
// API is built and before ModsReadyEvent is posted; a returned error marks
// the mod as failed.
type Initializer interface {
	OnInitialize(a *api.API) error
}

// Identified is implemented by initializers that know their mod id.
type Identified interface {
	ModID() string
}

// IDOf returns the initializer's mod id, or UnknownID.
func IDOf(in Initializer) string {
	if id, ok := in.(Identified); ok {
		if s := id.ModID(); s != "" {
			return s
		}
	}
	return UnknownID
}

// Func adapts a function to a named Initializer for mods linked into the host.
func Func(id string, fn func(a *api.API) error) Initializer {
	return &funcInitializer{id: id, fn: fn}
}

type funcInitializer struct {
	id string
	fn func(a *api.API) error
}

func (f *funcInitializer) OnInitialize(a *api.API) error {
	return f.fn(a)
}

func (f *funcInitializer) ModID() string {
	return f.id
}
