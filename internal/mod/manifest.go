package mod

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"

	"github.com/sledgemc/sledge/internal/api"
)

// Manifest file names, tried in order.
const (
	ManifestTOML = "sledge.mod.toml"
	ManifestJSON = "sledge.mod.json"
)

// DefaultEntrypoint is the script run when a manifest names none.
const DefaultEntrypoint = "main.lua"

// Manifest describes a script mod.
type Manifest struct {
	// Identity
	ID          string   `toml:"id" json:"id"`
	Version     string   `toml:"version" json:"version"`
	Name        string   `toml:"name" json:"name"`
	Description string   `toml:"description" json:"description"`
	Authors     []string `toml:"authors" json:"authors"`

	// Environment the mod runs in; empty means dual.
	Environment string `toml:"environment" json:"environment"`

	// Entrypoint is the Lua script relative to the mod directory.
	Entrypoint string `toml:"entrypoint" json:"entrypoint"`

	// Dependencies are mod ids that must load first.
	Dependencies []string `toml:"dependencies" json:"dependencies"`

	dir string
}

var (
	idPattern     = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)
)

// LoadManifestFromDir loads the manifest of the mod in dir.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	for _, name := range []string{ManifestTOML, ManifestJSON} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return LoadManifest(p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoManifest, dir)
}

// LoadManifest loads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m *Manifest
	switch filepath.Ext(path) {
	case ".toml":
		m, err = parseTOML(path, data)
	case ".json":
		m, err = parseJSON(path, data)
	default:
		err = &ParseError{Path: path, Message: "unsupported manifest format"}
	}
	if err != nil {
		return nil, err
	}

	m.dir = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func parseTOML(path string, data []byte) (*Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return &m, nil
}

// parseJSON reads a JSON manifest field by field so that type mismatches are
// reported with the offending key.
func parseJSON(path string, data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Path: path, Message: "invalid JSON"}
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, &ParseError{Path: path, Message: "manifest must be a JSON object"}
	}

	var m Manifest
	strFields := []struct {
		key string
		dst *string
	}{
		{"id", &m.ID},
		{"version", &m.Version},
		{"name", &m.Name},
		{"description", &m.Description},
		{"environment", &m.Environment},
		{"entrypoint", &m.Entrypoint},
	}
	for _, f := range strFields {
		r := doc.Get(f.key)
		if !r.Exists() {
			continue
		}
		if r.Type != gjson.String {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("%s must be a string", f.key)}
		}
		*f.dst = r.String()
	}

	listFields := []struct {
		key string
		dst *[]string
	}{
		{"authors", &m.Authors},
		{"dependencies", &m.Dependencies},
	}
	for _, f := range listFields {
		r := doc.Get(f.key)
		if !r.Exists() {
			continue
		}
		if !r.IsArray() {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("%s must be an array of strings", f.key)}
		}
		for _, item := range r.Array() {
			if item.Type != gjson.String {
				return nil, &ParseError{Path: path, Message: fmt.Sprintf("%s must be an array of strings", f.key)}
			}
			*f.dst = append(*f.dst, item.String())
		}
	}

	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Entrypoint == "" {
		m.Entrypoint = DefaultEntrypoint
	}
	if m.Name == "" {
		m.Name = m.ID
	}
}

// Validate checks the manifest fields.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	if !idPattern.MatchString(m.ID) {
		return fmt.Errorf("%w: %s", ErrInvalidID, m.ID)
	}
	if m.Version == "" {
		return ErrMissingVersion
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	ep := filepath.ToSlash(m.Entrypoint)
	if filepath.Ext(ep) != ".lua" || filepath.IsAbs(m.Entrypoint) || strings.HasPrefix(ep, "/") ||
		ep == ".." || strings.HasPrefix(ep, "../") || strings.Contains(ep, "/../") {
		return fmt.Errorf("%w: %s", ErrInvalidEntrypoint, m.Entrypoint)
	}

	if _, err := api.ParseEnvironment(m.Environment); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEnvironment, m.Environment)
	}

	for _, dep := range m.Dependencies {
		if dep == m.ID {
			return fmt.Errorf("%w: %s", ErrSelfDependency, m.ID)
		}
		if !idPattern.MatchString(dep) {
			return fmt.Errorf("%w: dependency %q", ErrInvalidID, dep)
		}
	}
	return nil
}

// Dir returns the mod directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// EntrypointPath returns the full path of the entry script.
func (m *Manifest) EntrypointPath() string {
	return filepath.Join(m.dir, filepath.FromSlash(m.Entrypoint))
}

// Env returns the declared environment; an empty or invalid value reads as dual.
func (m *Manifest) Env() api.Environment {
	env, _ := api.ParseEnvironment(m.Environment)
	return env
}

// String returns "name vX.Y.Z".
func (m *Manifest) String() string {
	return fmt.Sprintf("%s v%s", m.Name, m.Version)
}
