package mod

import (
	"errors"
	"fmt"
)

// Mod system errors.
var (
	// ErrNoManifest is returned when a mod directory has no manifest file.
	ErrNoManifest = errors.New("mod has no manifest (sledge.mod.toml or sledge.mod.json)")

	// ErrDuplicateMod is returned when two mods declare the same id.
	ErrDuplicateMod = errors.New("duplicate mod id")

	// ErrDependencyNotFound is returned when a required dependency is missing.
	ErrDependencyNotFound = errors.New("mod dependency not found")

	// ErrCyclicDependency is returned when mods depend on each other in a cycle.
	ErrCyclicDependency = errors.New("cyclic mod dependency detected")

	// ErrAlreadyLoaded is returned when the host loads mods a second time.
	ErrAlreadyLoaded = errors.New("mods are already loaded")

	// ErrNoScriptLoader is returned when a script mod is found but the host
	// has no script loader.
	ErrNoScriptLoader = errors.New("no script loader configured")

	// ErrInitializerPanic is returned when an initializer panics.
	ErrInitializerPanic = errors.New("mod initializer panicked")
)

// Manifest validation errors.
var (
	ErrMissingID          = errors.New("manifest: id is required")
	ErrInvalidID          = errors.New("manifest: id must be lower-case alphanumeric with '-' or '_'")
	ErrMissingVersion     = errors.New("manifest: version is required")
	ErrInvalidVersion     = errors.New("manifest: version must be valid semver")
	ErrInvalidEntrypoint  = errors.New("manifest: entrypoint must be a relative .lua file")
	ErrInvalidEnvironment = errors.New("manifest: invalid environment")
	ErrSelfDependency     = errors.New("manifest: mod depends on itself")
)

// ParseError reports a manifest that could not be decoded.
type ParseError struct {
	// Path is the manifest file.
	Path string
	// Message describes the problem.
	Message string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse manifest %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
