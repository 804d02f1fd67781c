package lua

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func TestNewState_Sandbox(t *testing.T) {
	s := NewState()
	defer s.Close()

	for _, name := range []string{"io", "os", "debug", "package", "require", "dofile", "loadfile", "load", "loadstring"} {
		assert.Equal(t, lua.LNil, s.GetGlobal(name), name)
	}
	for _, name := range []string{"string", "table", "math", "pairs", "pcall", "tostring"} {
		assert.NotEqual(t, lua.LNil, s.GetGlobal(name), name)
	}
}

func TestState_DoString(t *testing.T) {
	s := NewState()
	defer s.Close()

	require.NoError(t, s.DoString(`answer = string.format("%d", math.max(41, 42))`))
	assert.Equal(t, lua.LString("42"), s.GetGlobal("answer"))

	assert.Error(t, s.DoString(`error("nope")`))
	assert.Error(t, s.DoString(`os.exit(1)`))
}

func TestState_CallFunction(t *testing.T) {
	s := NewState()
	defer s.Close()

	require.NoError(t, s.DoString(`function add(a, b) total = a + b end`))
	fn, ok := s.GetGlobal("add").(*lua.LFunction)
	require.True(t, ok)

	require.NoError(t, s.CallFunction(fn, lua.LNumber(2), lua.LNumber(3)))
	assert.Equal(t, lua.LNumber(5), s.GetGlobal("total"))
}

func TestState_Timeout(t *testing.T) {
	s := NewState(WithExecutionTimeout(50 * time.Millisecond))
	defer s.Close()

	err := s.DoString(`while true do end`)
	assert.ErrorIs(t, err, ErrExecutionTimeout)

	require.NoError(t, s.DoString(`x = 1`))
}

func TestState_Closed(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.True(t, s.IsClosed())
	assert.ErrorIs(t, s.DoString(`x = 1`), ErrStateClosed)
	assert.Equal(t, lua.LNil, s.GetGlobal("x"))
	s.SetGlobal("x", lua.LNumber(1))
}
