package scfa

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

// ToLValue converts an ST value into a gopher-lua value owned by L. Keys that
// Lua tables cannot hold (nil, NaN) are dropped.
func ToLValue(L *lua.LState, obj LuaObject) lua.LValue {
	switch o := obj.(type) {
	case LuaFloat:
		return lua.LNumber(o)
	case LuaString:
		return lua.LString(o)
	case LuaUnicode:
		return lua.LString(o)
	case LuaBool:
		return lua.LBool(o)
	case *LuaTable:
		t := L.CreateTable(0, o.Len())
		for _, e := range o.entries {
			key := ToLValue(L, e.Key)
			if key == lua.LNil {
				continue
			}
			if n, ok := key.(lua.LNumber); ok && math.IsNaN(float64(n)) {
				continue
			}
			t.RawSet(key, ToLValue(L, e.Value))
		}
		return t
	default:
		return lua.LNil
	}
}

// FromLValue converts a gopher-lua value back into an ST value. Strings that
// are valid UTF-8 become LuaUnicode. Functions, userdata, threads and tables
// nested deeper than MaxLuaDepth are rejected.
func FromLValue(v lua.LValue) (LuaObject, error) {
	return fromLValue(v, 0)
}

func fromLValue(v lua.LValue, depth int) (LuaObject, error) {
	switch lv := v.(type) {
	case lua.LNumber:
		return LuaFloat(lv), nil
	case lua.LString:
		if utf8.ValidString(string(lv)) {
			return LuaUnicode(lv), nil
		}
		return LuaString(lv), nil
	case lua.LBool:
		return LuaBool(lv), nil
	case *lua.LNilType:
		return LuaNil{}, nil
	case *lua.LTable:
		if depth >= MaxLuaDepth {
			return nil, fmt.Errorf("lua table nesting deeper than %d", MaxLuaDepth)
		}
		t := NewLuaTable()
		var convErr error
		lv.ForEach(func(k, val lua.LValue) {
			if convErr != nil {
				return
			}
			key, err := fromLValue(k, depth+1)
			if err != nil {
				convErr = err
				return
			}
			value, err := fromLValue(val, depth+1)
			if err != nil {
				convErr = err
				return
			}
			t.Set(key, value)
		})
		if convErr != nil {
			return nil, convErr
		}
		return t, nil
	default:
		return nil, fmt.Errorf("cannot convert lua %s value", v.Type())
	}
}

// SetHeaderGlobals exposes the header to Lua code running in L.
//
// Globals:
//   - scenario, mods: the header tables
//   - armies: sequence of army settings tables, in army index order
//   - players: sequence of {name = ..., id = ...}
//   - map_file, scfa_version, replay_version, seed, cheats_enabled
func SetHeaderGlobals(L *lua.LState, h *ReplayHeader) {
	L.SetGlobal("scenario", ToLValue(L, h.Scenario))
	L.SetGlobal("mods", ToLValue(L, h.Mods))

	armies := L.CreateTable(len(h.Armies), 0)
	for _, idx := range h.ArmyIndexes() {
		armies.Append(ToLValue(L, h.Armies[idx].Settings))
	}
	L.SetGlobal("armies", armies)

	players := L.CreateTable(len(h.Players), 0)
	for _, p := range h.Players {
		pt := L.CreateTable(0, 2)
		pt.RawSetString("name", lua.LString(p.Name))
		pt.RawSetString("id", lua.LNumber(p.ID))
		players.Append(pt)
	}
	L.SetGlobal("players", players)

	L.SetGlobal("map_file", lua.LString(h.MapFile))
	L.SetGlobal("scfa_version", lua.LString(h.SCFAVersion))
	L.SetGlobal("replay_version", lua.LString(h.ReplayVersion))
	L.SetGlobal("seed", lua.LNumber(h.Seed))
	L.SetGlobal("cheats_enabled", lua.LBool(h.CheatsEnabled))
}

// QueryHeader runs a Lua chunk with the header globals set and returns the
// values the chunk returns. Only the package, base, table, string and math
// libraries are available.
func QueryHeader(h *ReplayHeader, code string) ([]LuaObject, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return nil, errors.Wrapf(err, "open lua library %q", lib.name)
		}
	}
	SetHeaderGlobals(L, h)

	top := L.GetTop()
	if err := L.DoString(code); err != nil {
		return nil, errors.Wrap(err, "lua query")
	}
	results := make([]LuaObject, 0, L.GetTop()-top)
	for i := top + 1; i <= L.GetTop(); i++ {
		obj, err := FromLValue(L.Get(i))
		if err != nil {
			return nil, errors.WithMessagef(err, "query result %d", i-top)
		}
		results = append(results, obj)
	}
	return results, nil
}
