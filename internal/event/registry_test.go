package event

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(t reflect.Type, p Priority, label string) *Entry {
	return &Entry{
		id:        label,
		eventType: t,
		label:     label,
		priority:  p,
		invoke:    func(Event) error { return nil },
	}
}

func labels(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label()
	}
	return out
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, r.Subscribers())
	assert.Nil(t, r.Types())
	assert.Empty(t, r.EntriesFor(TypeOf[*ExampleEvent]()))
}

func TestRegistry_AddSorted(t *testing.T) {
	r := NewRegistry()
	typ := TypeOf[*ExampleEvent]()

	owner := &recorder{}
	ok := r.Add(owner, []*Entry{
		newTestEntry(typ, PriorityHigh, "high"),
		newTestEntry(typ, PriorityLowest, "lowest"),
		newTestEntry(typ, PriorityNormal, "normal-1"),
		newTestEntry(typ, PriorityNormal, "normal-2"),
	})
	require.True(t, ok)

	assert.Equal(t, []string{"lowest", "normal-1", "normal-2", "high"}, labels(r.EntriesFor(typ)))
	assert.Equal(t, 4, r.Count())
	assert.Equal(t, 4, r.CountByType(typ))

	for _, e := range r.EntriesFor(typ) {
		assert.Same(t, owner, e.Subscriber())
	}
}

func TestRegistry_AddDuplicateOwner(t *testing.T) {
	r := NewRegistry()
	typ := TypeOf[*ExampleEvent]()
	owner := &recorder{}

	require.True(t, r.Add(owner, []*Entry{newTestEntry(typ, PriorityNormal, "a")}))
	assert.False(t, r.Add(owner, []*Entry{newTestEntry(typ, PriorityNormal, "b")}))
	assert.Equal(t, []string{"a"}, labels(r.EntriesFor(typ)))
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := NewRegistry()
	typ := TypeOf[*ExampleEvent]()

	first := &recorder{}
	require.True(t, r.Add(first, []*Entry{newTestEntry(typ, PriorityNormal, "first")}))
	before := r.EntriesFor(typ)

	second := &recorder{}
	require.True(t, r.Add(second, []*Entry{newTestEntry(typ, PriorityLowest, "second")}))

	// A snapshot taken earlier is never mutated by later writers.
	assert.Equal(t, []string{"first"}, labels(before))
	assert.Equal(t, []string{"second", "first"}, labels(r.EntriesFor(typ)))

	during := r.EntriesFor(typ)
	r.Remove(first)
	assert.Equal(t, []string{"second", "first"}, labels(during))
	assert.Equal(t, []string{"second"}, labels(r.EntriesFor(typ)))
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	example := TypeOf[*ExampleEvent]()
	guard := TypeOf[*GuardEvent]()

	owner := &recorder{}
	other := &recorder{}
	require.True(t, r.Add(owner, []*Entry{
		newTestEntry(example, PriorityNormal, "mine-example"),
		newTestEntry(guard, PriorityNormal, "mine-guard"),
	}))
	require.True(t, r.Add(other, []*Entry{newTestEntry(guard, PriorityLow, "other-guard")}))

	assert.Equal(t, 2, r.Remove(owner))
	assert.False(t, r.Contains(owner))
	assert.True(t, r.Contains(other))

	assert.Empty(t, r.EntriesFor(example))
	assert.Equal(t, []string{"other-guard"}, labels(r.EntriesFor(guard)))
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, []reflect.Type{guard}, r.Types())

	assert.Equal(t, -1, r.Remove(owner))
}

func TestRegistry_Types(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Add(&recorder{}, []*Entry{
		newTestEntry(TypeOf[*GuardEvent](), PriorityNormal, "g"),
		newTestEntry(TypeOf[*ExampleEvent](), PriorityNormal, "e"),
	}))

	assert.Equal(t, []reflect.Type{TypeOf[*ExampleEvent](), TypeOf[*GuardEvent]()}, r.Types())
	assert.Equal(t, 1, r.Subscribers())
}
