package lua

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	lua "github.com/yuin/gopher-lua"

	"github.com/sledgemc/sledge/internal/event"
)

const eventTypeName = "sledge.event"

// eventHandle is the userdata value behind a script's event object. The
// event is cleared once the handler returns.
type eventHandle struct {
	e event.Event
}

var eventMethods = map[string]lua.LGFunction{
	"name":        eventName,
	"cancellable": eventCancellable,
	"cancelled":   eventCancelled,
	"cancel":      eventCancel,
	"get":         eventGet,
	"set":         eventSet,
}

func registerEventType(L *lua.LState) {
	mt := L.NewTypeMetatable(eventTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), eventMethods))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		h := checkEvent(L)
		L.Push(lua.LString("event<" + h.e.Name() + ">"))
		return 1
	}))
}

func newEventValue(L *lua.LState, h *eventHandle) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = h
	L.SetMetatable(ud, L.GetTypeMetatable(eventTypeName))
	return ud
}

func checkEvent(L *lua.LState) *eventHandle {
	ud := L.CheckUserData(1)
	h, ok := ud.Value.(*eventHandle)
	if !ok {
		L.ArgError(1, "event expected")
		return nil
	}
	if h.e == nil {
		L.RaiseError("%s", ErrEventExpired)
		return nil
	}
	return h
}

func eventName(L *lua.LState) int {
	L.Push(lua.LString(checkEvent(L).e.Name()))
	return 1
}

func eventCancellable(L *lua.LState) int {
	L.Push(lua.LBool(checkEvent(L).e.IsCancellable()))
	return 1
}

func eventCancelled(L *lua.LState) int {
	L.Push(lua.LBool(checkEvent(L).e.IsCancelled()))
	return 1
}

// eventCancel cancels the event, or uncancels it when called with false.
func eventCancel(L *lua.LState) int {
	h := checkEvent(L)
	cancel := L.OptBool(2, true)
	if err := h.e.SetCancelled(cancel); err != nil {
		L.RaiseError("%s", err)
	}
	return 0
}

// eventGet returns the value at a gjson path of the event's JSON form. With
// no path it returns the whole event as a table.
func eventGet(L *lua.LState) int {
	h := checkEvent(L)
	path := L.OptString(2, "")

	data, err := json.Marshal(h.e)
	if err != nil {
		L.RaiseError("encode %s: %s", h.e.Name(), err)
		return 0
	}

	if path == "" {
		L.Push(fromJSON(L, gjson.ParseBytes(data)))
		return 1
	}
	L.Push(fromJSON(L, gjson.GetBytes(data, path)))
	return 1
}

// eventSet writes value at an sjson path and decodes the result back into the
// event. The event is left untouched when the new value does not fit.
func eventSet(L *lua.LState) int {
	h := checkEvent(L)
	path := L.CheckString(2)
	value := toGo(L.CheckAny(3))

	if err := setField(h.e, path, value); err != nil {
		L.RaiseError("%s", err)
	}
	return 0
}

func setField(e event.Event, path string, value any) error {
	t := reflect.TypeOf(e).Elem()
	if !hasJSONField(t, strings.SplitN(path, ".", 2)[0]) {
		return fmt.Errorf("%s has no field %q", e.Name(), path)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Name(), err)
	}

	updated, err := sjson.SetBytes(data, path, value)
	if err != nil {
		return fmt.Errorf("set %s.%s: %w", e.Name(), path, err)
	}

	// Decode into a scratch copy first so a type mismatch leaves e intact.
	scratch := reflect.New(t).Interface()
	if err := json.Unmarshal(updated, scratch); err != nil {
		return fmt.Errorf("set %s.%s: %w", e.Name(), path, err)
	}
	return json.Unmarshal(updated, e)
}

// hasJSONField reports whether struct type t encodes a top-level key named
// key, following promoted fields of embedded structs.
func hasJSONField(t reflect.Type, key string) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}
		if f.Anonymous && name == "" && f.Type.Kind() == reflect.Struct {
			if hasJSONField(f.Type, key) {
				return true
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if strings.EqualFold(name, key) {
			return true
		}
	}
	return false
}
