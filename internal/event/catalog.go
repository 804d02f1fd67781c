package event

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Catalog maps event names to concrete event types so that listeners can be
// bound by name, for example from scripts.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{types: make(map[string]reflect.Type)}
}

// Add records the concrete types of the given sample events under their type
// names, e.g. "PlayerJoinEvent".
// Samples are only inspected, never posted. If any sample is rejected,
// none of them is added.
func (c *Catalog) Add(samples ...Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	add := make(map[string]reflect.Type, len(samples))
	for _, e := range samples {
		if isNil(e) {
			return fmt.Errorf("%w: nil sample", ErrInvalidListener)
		}
		t := reflect.TypeOf(e)
		if t == baseType || t == cancellableType {
			return fmt.Errorf("%w: %s is an event base type", ErrInvalidListener, t)
		}
		name := simpleName(t)
		existing, ok := add[name]
		if !ok {
			existing, ok = c.types[name]
		}
		if ok && existing != t {
			return fmt.Errorf("event name %q already bound to %s", name, existing)
		}
		add[name] = t
	}

	for name, t := range add {
		c.types[name] = t
	}
	return nil
}

// Lookup returns the concrete type registered under name.
func (c *Catalog) Lookup(name string) (reflect.Type, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	return t, nil
}

// Names returns all registered names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
