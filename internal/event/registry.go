package event

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

// Entry is a registered listener owned by the Registry.
// Entries are immutable once inserted.
type Entry struct {
	id               string
	seq              uint64
	owner            any
	ownerName        string
	eventType        reflect.Type
	label            string
	priority         Priority
	receiveCancelled bool
	invoke           func(Event) error
}

// ID returns the unique listener id.
func (e *Entry) ID() string {
	return e.id
}

// Label returns the listener label.
func (e *Entry) Label() string {
	return e.label
}

// Subscriber returns the owning subscriber.
func (e *Entry) Subscriber() any {
	return e.owner
}

// SubscriberType returns the type name of the owning subscriber.
func (e *Entry) SubscriberType() string {
	return e.ownerName
}

// EventType returns the concrete event type the entry is bound to.
func (e *Entry) EventType() reflect.Type {
	return e.eventType
}

// Priority returns the entry priority.
func (e *Entry) Priority() Priority {
	return e.priority
}

// ReceiveCancelled reports whether the entry sees cancelled events.
func (e *Entry) ReceiveCancelled() bool {
	return e.receiveCancelled
}

// Handle implements dispatch.Handler.
func (e *Entry) Handle(event any) error {
	return e.invoke(event.(Event))
}

// snapshot is an immutable view of the registry read by dispatch.
type snapshot struct {
	byType map[reflect.Type][]*Entry
	count  int
}

var emptySnapshot = &snapshot{byType: map[reflect.Type][]*Entry{}}

// Registry manages listener entries organized by concrete event type.
//
// Reads are lock-free: they load an immutable snapshot. Writers serialize on
// a mutex, build a new snapshot and swap it in, so a reader never observes a
// partially inserted entry.
type Registry struct {
	mu     sync.Mutex
	snap   atomic.Pointer[snapshot]
	owners map[any][]*Entry
	seq    uint64
}

// NewRegistry creates a new listener registry.
func NewRegistry() *Registry {
	r := &Registry{
		owners: make(map[any][]*Entry),
	}
	r.snap.Store(emptySnapshot)
	return r
}

// Add inserts all entries for owner in one step.
// It returns false without changes if owner is already registered.
func (r *Registry) Add(owner any, entries []*Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.owners[owner]; exists {
		return false
	}

	old := r.snap.Load()
	byType := make(map[reflect.Type][]*Entry, len(old.byType)+len(entries))
	for t, list := range old.byType {
		byType[t] = list
	}

	// Lists from the old snapshot are shared; copy each touched list once.
	copied := make(map[reflect.Type]bool)
	for _, e := range entries {
		r.seq++
		e.seq = r.seq
		e.owner = owner

		list := byType[e.eventType]
		if !copied[e.eventType] {
			list = append(make([]*Entry, 0, len(list)+1), list...)
			copied[e.eventType] = true
		}
		byType[e.eventType] = insertSorted(list, e)
	}

	r.owners[owner] = entries
	r.snap.Store(&snapshot{byType: byType, count: old.count + len(entries)})
	return true
}

// insertSorted inserts e after every entry with a lower or equal priority,
// which keeps ties in registration order.
func insertSorted(list []*Entry, e *Entry) []*Entry {
	i := sort.Search(len(list), func(i int) bool {
		return list[i].priority > e.priority
	})
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = e
	return list
}

// Remove deletes every entry owned by owner.
// It returns the number of entries removed, or -1 if owner was not registered.
func (r *Registry) Remove(owner any) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, exists := r.owners[owner]
	if !exists {
		return -1
	}
	delete(r.owners, owner)

	old := r.snap.Load()
	byType := make(map[reflect.Type][]*Entry, len(old.byType))
	for t, list := range old.byType {
		byType[t] = list
	}

	touched := make(map[reflect.Type]bool)
	for _, e := range entries {
		touched[e.eventType] = true
	}
	for t := range touched {
		kept := make([]*Entry, 0, len(byType[t]))
		for _, e := range byType[t] {
			if e.owner != owner {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(byType, t)
		} else {
			byType[t] = kept
		}
	}

	r.snap.Store(&snapshot{byType: byType, count: old.count - len(entries)})
	return len(entries)
}

// Contains reports whether owner is registered.
func (r *Registry) Contains(owner any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.owners[owner]
	return exists
}

// EntriesFor returns the priority-ordered entries for the exact type t.
// The returned slice is shared with the registry and must not be modified.
func (r *Registry) EntriesFor(t reflect.Type) []*Entry {
	return r.snap.Load().byType[t]
}

// Count returns the total number of entries across all event types.
func (r *Registry) Count() int {
	return r.snap.Load().count
}

// CountByType returns the number of entries for the exact type t.
func (r *Registry) CountByType(t reflect.Type) int {
	return len(r.snap.Load().byType[t])
}

// Subscribers returns the number of registered owners.
func (r *Registry) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.owners)
}

// Types returns every event type with at least one entry.
func (r *Registry) Types() []reflect.Type {
	byType := r.snap.Load().byType
	if len(byType) == 0 {
		return nil
	}

	types := make([]reflect.Type, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].String() < types[j].String()
	})
	return types
}
