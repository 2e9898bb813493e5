package scfa

import (
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
)

// ReplayCommand is one decoded body command. The set of implementations is
// closed: one struct per CommandTag.
type ReplayCommand interface {
	Tag() CommandTag
	isReplayCommand()
}

// Digest is the simulation checksum carried by VerifyChecksum.
type Digest [ChecksumSize]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalJSON implements json.Marshaler for Digest.
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Float is a 32-bit float field of a command payload. Non-finite values have
// no JSON form and are written as strings.
type Float float32

// MarshalJSON implements json.Marshaler for Float.
func (f Float) MarshalJSON() ([]byte, error) {
	return marshalFloat32(float64(f))
}

func marshalFloat32(v float64) ([]byte, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return json.Marshal(strconv.FormatFloat(v, 'g', -1, 32))
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 32)), nil
}

// Position is a point in world space.
type Position struct {
	X Float `json:"x"`
	Y Float `json:"y"`
	Z Float `json:"z"`
}

// TargetKind discriminates Target.
type TargetKind uint8

const (
	TargetNone     TargetKind = 0
	TargetEntity   TargetKind = 1
	TargetPosition TargetKind = 2
)

func (k TargetKind) String() string {
	switch k {
	case TargetNone:
		return "None"
	case TargetEntity:
		return "Entity"
	case TargetPosition:
		return "Position"
	default:
		return "Unknown"
	}
}

// Target is the target of an order: nothing, an entity or a position.
// Only the field matching Kind is meaningful.
type Target struct {
	Kind     TargetKind
	Entity   uint32
	Position Position
}

// MarshalJSON implements json.Marshaler for Target.
func (t Target) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TargetEntity:
		return json.Marshal(map[string]uint32{"id": t.Entity})
	case TargetPosition:
		return json.Marshal(t.Position)
	default:
		return []byte("null"), nil
	}
}

// Formation describes the formation an order is issued in.
type Formation struct {
	A     int32 `json:"a"`
	B     Float `json:"b"`
	C     Float `json:"c"`
	D     Float `json:"d"`
	Scale Float `json:"scale"`
}

// GameCommand is the payload shared by IssueCommand and IssueFactoryCommand.
type GameCommand struct {
	EntityIDs              []uint32   `json:"entity_ids"`
	ID                     int32      `json:"id"`
	CoordinatedAttackCmdID int32      `json:"coordinated_attack_cmd_id"`
	Type                   uint8      `json:"type"`
	Arg2                   uint8      `json:"arg2"`
	Target                 Target     `json:"target"`
	Arg3                   Float      `json:"arg3"`
	Formation              *Formation `json:"formation"`
	Blueprint              string     `json:"blueprint"`
	Arg4                   int32      `json:"arg4"`
	Arg5                   int32      `json:"arg5"`
	Arg6                   int32      `json:"arg6"`
	Upgrades               LuaObject  `json:"upgrades"`
	ClearQueue             bool       `json:"clear_queue"`
}

type Advance struct {
	Ticks uint32 `json:"ticks"`
}

type SetCommandSource struct {
	ID uint8 `json:"id"`
}

type CommandSourceTerminated struct{}

type VerifyChecksum struct {
	Digest Digest `json:"digest"`
	Tick   uint32 `json:"tick"`
}

type RequestPause struct{}

type Resume struct{}

type SingleStep struct{}

type CreateUnit struct {
	Army      uint8  `json:"army"`
	Blueprint string `json:"blueprint"`
	X         Float  `json:"x"`
	Z         Float  `json:"z"`
	Heading   Float  `json:"heading"`
}

type CreateProp struct {
	Blueprint string   `json:"blueprint"`
	Position  Position `json:"position"`
}

type DestroyEntity struct {
	Unit uint32 `json:"unit"`
}

type WarpEntity struct {
	Unit uint32 `json:"unit"`
	X    Float  `json:"x"`
	Y    Float  `json:"y"`
	Z    Float  `json:"z"`
}

type ProcessInfoPair struct {
	Unit uint32 `json:"unit"`
	Arg1 string `json:"arg1"`
	Arg2 string `json:"arg2"`
}

type IssueCommand struct {
	GameCommand
}

type IssueFactoryCommand struct {
	GameCommand
}

type IncreaseCommandCount struct {
	ID    int32 `json:"id"`
	Delta int32 `json:"delta"`
}

type DecreaseCommandCount struct {
	ID    int32 `json:"id"`
	Delta int32 `json:"delta"`
}

type SetCommandTarget struct {
	ID     int32  `json:"id"`
	Target Target `json:"target"`
}

type SetCommandType struct {
	ID   int32 `json:"id"`
	Type int32 `json:"type"`
}

type SetCommandCells struct {
	ID       int32     `json:"id"`
	Cells    LuaObject `json:"cells"`
	Position Position  `json:"position"`
}

type RemoveCommandFromQueue struct {
	ID   int32  `json:"id"`
	Unit uint32 `json:"unit"`
}

type DebugCommand struct {
	Command   uint8    `json:"command"`
	Position  Position `json:"position"`
	FocusArmy uint8    `json:"focus_army"`
	Selection []uint32 `json:"selection"`
}

type ExecuteLuaInSim struct {
	Code string `json:"code"`
}

type LuaSimCallback struct {
	Func      string    `json:"func"`
	Args      LuaObject `json:"args"`
	Selection []uint32  `json:"selection"`
}

type EndGame struct{}

func (Advance) Tag() CommandTag                 { return CmdAdvance }
func (SetCommandSource) Tag() CommandTag        { return CmdSetCommandSource }
func (CommandSourceTerminated) Tag() CommandTag { return CmdCommandSourceTerminated }
func (VerifyChecksum) Tag() CommandTag          { return CmdVerifyChecksum }
func (RequestPause) Tag() CommandTag            { return CmdRequestPause }
func (Resume) Tag() CommandTag                  { return CmdResume }
func (SingleStep) Tag() CommandTag              { return CmdSingleStep }
func (CreateUnit) Tag() CommandTag              { return CmdCreateUnit }
func (CreateProp) Tag() CommandTag              { return CmdCreateProp }
func (DestroyEntity) Tag() CommandTag           { return CmdDestroyEntity }
func (WarpEntity) Tag() CommandTag              { return CmdWarpEntity }
func (ProcessInfoPair) Tag() CommandTag         { return CmdProcessInfoPair }
func (IssueCommand) Tag() CommandTag            { return CmdIssueCommand }
func (IssueFactoryCommand) Tag() CommandTag     { return CmdIssueFactoryCommand }
func (IncreaseCommandCount) Tag() CommandTag    { return CmdIncreaseCommandCount }
func (DecreaseCommandCount) Tag() CommandTag    { return CmdDecreaseCommandCount }
func (SetCommandTarget) Tag() CommandTag        { return CmdSetCommandTarget }
func (SetCommandType) Tag() CommandTag          { return CmdSetCommandType }
func (SetCommandCells) Tag() CommandTag         { return CmdSetCommandCells }
func (RemoveCommandFromQueue) Tag() CommandTag  { return CmdRemoveCommandFromQueue }
func (DebugCommand) Tag() CommandTag            { return CmdDebugCommand }
func (ExecuteLuaInSim) Tag() CommandTag         { return CmdExecuteLuaInSim }
func (LuaSimCallback) Tag() CommandTag          { return CmdLuaSimCallback }
func (EndGame) Tag() CommandTag                 { return CmdEndGame }

func (Advance) isReplayCommand()                 {}
func (SetCommandSource) isReplayCommand()        {}
func (CommandSourceTerminated) isReplayCommand() {}
func (VerifyChecksum) isReplayCommand()          {}
func (RequestPause) isReplayCommand()            {}
func (Resume) isReplayCommand()                  {}
func (SingleStep) isReplayCommand()              {}
func (CreateUnit) isReplayCommand()              {}
func (CreateProp) isReplayCommand()              {}
func (DestroyEntity) isReplayCommand()           {}
func (WarpEntity) isReplayCommand()              {}
func (ProcessInfoPair) isReplayCommand()         {}
func (IssueCommand) isReplayCommand()            {}
func (IssueFactoryCommand) isReplayCommand()     {}
func (IncreaseCommandCount) isReplayCommand()    {}
func (DecreaseCommandCount) isReplayCommand()    {}
func (SetCommandTarget) isReplayCommand()        {}
func (SetCommandType) isReplayCommand()          {}
func (SetCommandCells) isReplayCommand()         {}
func (RemoveCommandFromQueue) isReplayCommand()  {}
func (DebugCommand) isReplayCommand()            {}
func (ExecuteLuaInSim) isReplayCommand()         {}
func (LuaSimCallback) isReplayCommand()          {}
func (EndGame) isReplayCommand()                 {}

// MarshalCommand encodes a command as a JSON object whose "name" field holds
// the canonical command name, followed by the payload fields.
func MarshalCommand(c ReplayCommand) ([]byte, error) {
	name, err := json.Marshal(c.Tag().String())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(payload)+len(name)+10)
	out = append(out, `{"name":`...)
	out = append(out, name...)
	if len(payload) > 2 {
		out = append(out, ',')
		out = append(out, payload[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}
