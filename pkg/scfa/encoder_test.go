package scfa

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// encoder serializes replay values for tests.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u8(v uint8) *encoder {
	e.buf.WriteByte(v)
	return e
}

func (e *encoder) bool(v bool) *encoder {
	if v {
		return e.u8(1)
	}
	return e.u8(0)
}

func (e *encoder) u16(v uint16) *encoder {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
	return e
}

func (e *encoder) u32(v uint32) *encoder {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
	return e
}

func (e *encoder) i32(v int32) *encoder {
	return e.u32(uint32(v))
}

func (e *encoder) f32(v float32) *encoder {
	return e.u32(math.Float32bits(v))
}

func (e *encoder) float(v Float) *encoder {
	return e.f32(float32(v))
}

func (e *encoder) cstring(s string) *encoder {
	e.buf.WriteString(s)
	return e.u8(0)
}

func (e *encoder) raw(b []byte) *encoder {
	e.buf.Write(b)
	return e
}

func (e *encoder) bytes() []byte {
	return e.buf.Bytes()
}

func (e *encoder) lua(obj LuaObject) *encoder {
	switch o := obj.(type) {
	case LuaFloat:
		e.u8(LuaTagFloat).f32(float32(o))
	case LuaString:
		e.u8(LuaTagString).cstring(string(o))
	case LuaUnicode:
		e.u8(LuaTagUnicode).cstring(string(o))
	case LuaNil:
		e.u8(LuaTagNil)
	case LuaBool:
		e.u8(LuaTagBool).bool(bool(o))
	case *LuaTable:
		e.u8(LuaTagTable)
		for _, entry := range o.Entries() {
			e.lua(entry.Key).lua(entry.Value)
		}
		e.u8(LuaTagEnd)
	default:
		panic(fmt.Sprintf("cannot encode %T", obj))
	}
	return e
}

// luaBlock writes a dword size followed by the encoded value.
func (e *encoder) luaBlock(obj LuaObject) *encoder {
	inner := (&encoder{}).lua(obj).bytes()
	return e.u32(uint32(len(inner))).raw(inner)
}

func (e *encoder) position(p Position) *encoder {
	return e.float(p.X).float(p.Y).float(p.Z)
}

func (e *encoder) entityIDs(ids []uint32) *encoder {
	e.u32(uint32(len(ids)))
	for _, id := range ids {
		e.u32(id)
	}
	return e
}

func (e *encoder) target(t Target) *encoder {
	e.u8(uint8(t.Kind))
	switch t.Kind {
	case TargetEntity:
		e.u32(t.Entity)
	case TargetPosition:
		e.position(t.Position)
	}
	return e
}

func (e *encoder) gameCommand(gc GameCommand) *encoder {
	e.entityIDs(gc.EntityIDs).
		i32(gc.ID).
		i32(gc.CoordinatedAttackCmdID).
		u8(gc.Type).
		u8(gc.Arg2).
		target(gc.Target).
		float(gc.Arg3)
	if gc.Formation == nil {
		e.i32(NoFormation)
	} else {
		f := gc.Formation
		e.i32(f.A).float(f.B).float(f.C).float(f.D).float(f.Scale)
	}
	return e.cstring(gc.Blueprint).
		i32(gc.Arg4).
		i32(gc.Arg5).
		i32(gc.Arg6).
		lua(gc.Upgrades).
		bool(gc.ClearQueue)
}

// encodeHeader serializes h in the replay header layout.
func encodeHeader(h *ReplayHeader) []byte {
	e := &encoder{}
	e.cstring(h.SCFAVersion).
		cstring("\r\n").
		cstring(h.ReplayVersion + "\r\n" + h.MapFile).
		cstring("\r\n\x1a").
		luaBlock(h.Mods).
		luaBlock(h.Scenario)

	e.u8(uint8(len(h.Players)))
	for _, p := range h.Players {
		e.cstring(p.Name).u32(p.ID)
	}
	e.bool(h.CheatsEnabled)

	e.u8(h.ArmyCount)
	for i := 0; i < int(h.ArmyCount); i++ {
		army := h.Armies[uint8(i)]
		e.luaBlock(army.Settings)
		if army.Source == nil {
			e.u8(0xFF)
		} else {
			e.u8(*army.Source).u8(0)
		}
	}
	return e.u32(h.Seed).bytes()
}

// encodeCommand serializes one command including its tag and size.
func encodeCommand(c ReplayCommand) []byte {
	p := &encoder{}
	switch cmd := c.(type) {
	case Advance:
		p.u32(cmd.Ticks)
	case SetCommandSource:
		p.u8(cmd.ID)
	case CommandSourceTerminated, RequestPause, Resume, SingleStep, EndGame:
	case VerifyChecksum:
		p.raw(cmd.Digest[:]).u32(cmd.Tick)
	case CreateUnit:
		p.u8(cmd.Army).cstring(cmd.Blueprint).float(cmd.X).float(cmd.Z).float(cmd.Heading)
	case CreateProp:
		p.cstring(cmd.Blueprint).position(cmd.Position)
	case DestroyEntity:
		p.u32(cmd.Unit)
	case WarpEntity:
		p.u32(cmd.Unit).float(cmd.X).float(cmd.Y).float(cmd.Z)
	case ProcessInfoPair:
		p.u32(cmd.Unit).cstring(cmd.Arg1).cstring(cmd.Arg2)
	case IssueCommand:
		p.gameCommand(cmd.GameCommand)
	case IssueFactoryCommand:
		p.gameCommand(cmd.GameCommand)
	case IncreaseCommandCount:
		p.i32(cmd.ID).i32(cmd.Delta)
	case DecreaseCommandCount:
		p.i32(cmd.ID).i32(cmd.Delta)
	case SetCommandTarget:
		p.i32(cmd.ID).target(cmd.Target)
	case SetCommandType:
		p.i32(cmd.ID).i32(cmd.Type)
	case SetCommandCells:
		p.i32(cmd.ID).lua(cmd.Cells).position(cmd.Position)
	case RemoveCommandFromQueue:
		p.i32(cmd.ID).u32(cmd.Unit)
	case DebugCommand:
		p.u8(cmd.Command).position(cmd.Position).u8(cmd.FocusArmy).entityIDs(cmd.Selection)
	case ExecuteLuaInSim:
		p.cstring(cmd.Code)
	case LuaSimCallback:
		p.cstring(cmd.Func).lua(cmd.Args).entityIDs(cmd.Selection)
	default:
		panic(fmt.Sprintf("cannot encode %T", c))
	}
	payload := p.bytes()
	return (&encoder{}).
		u8(uint8(c.Tag())).
		u16(uint16(len(payload) + CommandHeaderSize)).
		raw(payload).
		bytes()
}

func encodeBody(cmds ...ReplayCommand) []byte {
	var out []byte
	for _, c := range cmds {
		out = append(out, encodeCommand(c)...)
	}
	return out
}

// luaTable builds a table from alternating keys and values.
func luaTable(kv ...LuaObject) *LuaTable {
	t := NewLuaTable()
	for i := 0; i+1 < len(kv); i += 2 {
		t.Set(kv[i], kv[i+1])
	}
	return t
}

func luaSequence(values ...LuaObject) *LuaTable {
	t := NewLuaTable()
	for i, v := range values {
		t.Set(LuaFloat(i+1), v)
	}
	return t
}

func sourcePtr(v uint8) *uint8 {
	return &v
}

func digestOf(b byte) Digest {
	var d Digest
	for i := range d {
		d[i] = b
	}
	return d
}

func sampleHeader() *ReplayHeader {
	mods := luaSequence(
		luaTable(
			LuaUnicode("name"), LuaUnicode("Supreme Score Board"),
			LuaUnicode("uid"), LuaString("b0059a8c-d9ff-4c4c-a2c4"),
			LuaUnicode("ui_only"), LuaBool(true),
		),
	)
	scenario := luaTable(
		LuaUnicode("name"), LuaUnicode("Seton's Clutch"),
		LuaUnicode("size"), luaSequence(LuaFloat(1024), LuaFloat(1024)),
		LuaUnicode("Options"), luaTable(
			LuaUnicode("Victory"), LuaUnicode("demoralization"),
			LuaUnicode("Share"), LuaUnicode("ShareUntilDeath"),
			LuaUnicode("UnitCap"), LuaString("1000"),
			LuaUnicode("Timeouts"), LuaNil{},
		),
	)
	return &ReplayHeader{
		SCFAVersion:   "Supreme Commander v1.50.3701",
		ReplayVersion: "Replay v1.9",
		MapFile:       "/maps/SCMP_009/SCMP_009.scmap",
		Mods:          mods,
		Scenario:      scenario,
		Players: []Player{
			{Name: "Alice", ID: 0},
			{Name: "Bob", ID: 1},
		},
		CheatsEnabled: false,
		ArmyCount:     3,
		Armies: map[uint8]*Army{
			0: {
				Settings: luaTable(
					LuaUnicode("PlayerName"), LuaUnicode("Alice"),
					LuaUnicode("Faction"), LuaFloat(1),
					LuaUnicode("Human"), LuaBool(true),
				),
				Source: sourcePtr(0),
			},
			1: {
				Settings: luaTable(
					LuaUnicode("PlayerName"), LuaUnicode("Bob"),
					LuaUnicode("Faction"), LuaFloat(3),
					LuaUnicode("Human"), LuaBool(true),
				),
				Source: sourcePtr(1),
			},
			2: {
				Settings: luaTable(
					LuaUnicode("PlayerName"), LuaString("civilian"),
					LuaUnicode("Human"), LuaBool(false),
				),
			},
		},
		Seed: 0xDEADBEEF,
	}
}

// sampleCommands returns one command of every kind.
func sampleCommands() []ReplayCommand {
	return []ReplayCommand{
		Advance{Ticks: 1},
		SetCommandSource{ID: 1},
		CommandSourceTerminated{},
		VerifyChecksum{Digest: digestOf(0x5A), Tick: 1},
		RequestPause{},
		Resume{},
		SingleStep{},
		CreateUnit{Army: 2, Blueprint: "uel0001", X: 10.5, Z: 20.25, Heading: 1.5},
		CreateProp{Blueprint: "/env/common/props/tree.bp", Position: Position{X: 1, Y: 2, Z: 3}},
		DestroyEntity{Unit: 0x00400001},
		WarpEntity{Unit: 7, X: 100, Y: 25.5, Z: -8},
		ProcessInfoPair{Unit: 9, Arg1: "SetAutoMode", Arg2: "true"},
		IssueCommand{GameCommand{
			EntityIDs:              []uint32{1, 2, 3},
			ID:                     -1,
			CoordinatedAttackCmdID: -1,
			Type:                   2,
			Arg2:                   0,
			Target:                 Target{Kind: TargetPosition, Position: Position{X: 256.5, Y: 20, Z: 128}},
			Arg3:                   0,
			Formation:              &Formation{A: 3, B: 0.5, C: 0, D: 0.75, Scale: 1},
			Blueprint:              "",
			Arg4:                   0,
			Arg5:                   1,
			Arg6:                   0,
			Upgrades:               LuaNil{},
			ClearQueue:             true,
		}},
		IssueFactoryCommand{GameCommand{
			EntityIDs:              []uint32{42},
			ID:                     7,
			CoordinatedAttackCmdID: -1,
			Type:                   7,
			Target:                 Target{Kind: TargetNone},
			Formation:              nil,
			Blueprint:              "ual0105",
			Arg4:                   1,
			Upgrades:               luaTable(LuaUnicode("Enhancement"), LuaUnicode("ResourceAllocation")),
		}},
		IncreaseCommandCount{ID: 12, Delta: 5},
		DecreaseCommandCount{ID: 12, Delta: 1},
		SetCommandTarget{ID: 4, Target: Target{Kind: TargetEntity, Entity: 0x00100004}},
		SetCommandType{ID: 4, Type: 9},
		SetCommandCells{
			ID:       6,
			Cells:    luaSequence(LuaFloat(2), LuaFloat(3)),
			Position: Position{X: 4, Y: 5, Z: 6},
		},
		RemoveCommandFromQueue{ID: 6, Unit: 99},
		DebugCommand{Command: 3, Position: Position{X: 1, Y: 1, Z: 1}, FocusArmy: 1, Selection: []uint32{5, 6}},
		ExecuteLuaInSim{Code: "LOG('hello')"},
		LuaSimCallback{
			Func:      "GiveResourcesToPlayer",
			Args:      luaTable(LuaUnicode("Mass"), LuaFloat(100), LuaUnicode("From"), LuaFloat(1)),
			Selection: []uint32{},
		},
		EndGame{},
	}
}
