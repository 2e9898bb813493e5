package scfa

import (
	"fmt"
)

// commandFrame is the header in front of every body command.
//
// Command structure:
//   - 1 byte: Command tag
//   - 1 word: Command size, including these 3 header bytes
//   - n bytes: Tag specific payload
type commandFrame struct {
	tag    CommandTag
	size   uint16
	offset int
}

type commandDecoder func(r *Reader) (ReplayCommand, error)

// commandDecoders is indexed by command tag.
var commandDecoders = [MaxCommand]commandDecoder{
	CmdAdvance:                 decodeAdvance,
	CmdSetCommandSource:        decodeSetCommandSource,
	CmdCommandSourceTerminated: decodeEmpty(CommandSourceTerminated{}),
	CmdVerifyChecksum:          decodeVerifyChecksum,
	CmdRequestPause:            decodeEmpty(RequestPause{}),
	CmdResume:                  decodeEmpty(Resume{}),
	CmdSingleStep:              decodeEmpty(SingleStep{}),
	CmdCreateUnit:              decodeCreateUnit,
	CmdCreateProp:              decodeCreateProp,
	CmdDestroyEntity:           decodeDestroyEntity,
	CmdWarpEntity:              decodeWarpEntity,
	CmdProcessInfoPair:         decodeProcessInfoPair,
	CmdIssueCommand:            decodeIssueCommand,
	CmdIssueFactoryCommand:     decodeIssueFactoryCommand,
	CmdIncreaseCommandCount:    decodeIncreaseCommandCount,
	CmdDecreaseCommandCount:    decodeDecreaseCommandCount,
	CmdSetCommandTarget:        decodeSetCommandTarget,
	CmdSetCommandType:          decodeSetCommandType,
	CmdSetCommandCells:         decodeSetCommandCells,
	CmdRemoveCommandFromQueue:  decodeRemoveCommandFromQueue,
	CmdDebugCommand:            decodeDebugCommand,
	CmdExecuteLuaInSim:         decodeExecuteLuaInSim,
	CmdLuaSimCallback:          decodeLuaSimCallback,
	CmdEndGame:                 decodeEmpty(EndGame{}),
}

// ReadCommand decodes a single command, header and payload.
func ReadCommand(r *Reader) (ReplayCommand, error) {
	frame, err := readCommandFrame(r)
	if err != nil {
		return nil, err
	}
	return decodeCommandPayload(r, frame)
}

// readCommandFrame reads the tag and size of the next command. Unknown tags
// are rejected before the size is read.
func readCommandFrame(r *Reader) (commandFrame, error) {
	offset := r.Position()
	tag, err := r.U8()
	if err != nil {
		return commandFrame{}, err
	}
	if !CommandTag(tag).Valid() {
		return commandFrame{}, newMalformedError("unknown command tag", offset)
	}
	size, err := r.U16()
	if err != nil {
		return commandFrame{}, err
	}
	if size < CommandHeaderSize {
		return commandFrame{}, newMalformedError(
			fmt.Sprintf("%s size %d is smaller than the command header", CommandTag(tag), size),
			offset,
		)
	}
	return commandFrame{tag: CommandTag(tag), size: size, offset: offset}, nil
}

// decodeCommandPayload decodes the payload of frame and checks that it used
// exactly the announced number of bytes.
func decodeCommandPayload(r *Reader, frame commandFrame) (ReplayCommand, error) {
	cmd, err := commandDecoders[frame.tag](r)
	if err != nil {
		return nil, err
	}
	if consumed := r.Position() - frame.offset; consumed != int(frame.size) {
		return nil, newMalformedError(
			fmt.Sprintf("%s size mismatch: header says %d bytes, payload used %d",
				frame.tag, frame.size, consumed),
			frame.offset,
		)
	}
	return cmd, nil
}

// skipCommandPayload advances past the payload of frame without decoding it.
func skipCommandPayload(r *Reader, frame commandFrame) error {
	return r.Skip(int(frame.size) - CommandHeaderSize)
}

func decodeEmpty(cmd ReplayCommand) commandDecoder {
	return func(*Reader) (ReplayCommand, error) {
		return cmd, nil
	}
}

func decodeAdvance(r *Reader) (ReplayCommand, error) {
	ticks, err := r.U32()
	if err != nil {
		return nil, err
	}
	return Advance{Ticks: ticks}, nil
}

func decodeSetCommandSource(r *Reader) (ReplayCommand, error) {
	id, err := r.U8()
	if err != nil {
		return nil, err
	}
	return SetCommandSource{ID: id}, nil
}

// decodeVerifyChecksum reads a 16 byte digest followed by the tick (1 dword).
func decodeVerifyChecksum(r *Reader) (ReplayCommand, error) {
	var cmd VerifyChecksum
	raw, err := r.Bytes(ChecksumSize)
	if err != nil {
		return nil, err
	}
	copy(cmd.Digest[:], raw)
	if cmd.Tick, err = r.U32(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// decodeCreateUnit reads army (1 byte), blueprint (string), x, z and heading.
func decodeCreateUnit(r *Reader) (ReplayCommand, error) {
	var cmd CreateUnit
	var err error
	if cmd.Army, err = r.U8(); err != nil {
		return nil, err
	}
	if cmd.Blueprint, err = r.CString(); err != nil {
		return nil, err
	}
	if cmd.X, err = readFloat(r); err != nil {
		return nil, err
	}
	if cmd.Z, err = readFloat(r); err != nil {
		return nil, err
	}
	if cmd.Heading, err = readFloat(r); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeCreateProp(r *Reader) (ReplayCommand, error) {
	var cmd CreateProp
	var err error
	if cmd.Blueprint, err = r.CString(); err != nil {
		return nil, err
	}
	if cmd.Position, err = readPosition(r); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeDestroyEntity(r *Reader) (ReplayCommand, error) {
	unit, err := r.U32()
	if err != nil {
		return nil, err
	}
	return DestroyEntity{Unit: unit}, nil
}

func decodeWarpEntity(r *Reader) (ReplayCommand, error) {
	var cmd WarpEntity
	var err error
	if cmd.Unit, err = r.U32(); err != nil {
		return nil, err
	}
	if cmd.X, err = readFloat(r); err != nil {
		return nil, err
	}
	if cmd.Y, err = readFloat(r); err != nil {
		return nil, err
	}
	if cmd.Z, err = readFloat(r); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeProcessInfoPair(r *Reader) (ReplayCommand, error) {
	var cmd ProcessInfoPair
	var err error
	if cmd.Unit, err = r.U32(); err != nil {
		return nil, err
	}
	if cmd.Arg1, err = r.CString(); err != nil {
		return nil, err
	}
	if cmd.Arg2, err = r.CString(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeIssueCommand(r *Reader) (ReplayCommand, error) {
	gc, err := readGameCommand(r)
	if err != nil {
		return nil, err
	}
	return IssueCommand{gc}, nil
}

func decodeIssueFactoryCommand(r *Reader) (ReplayCommand, error) {
	gc, err := readGameCommand(r)
	if err != nil {
		return nil, err
	}
	return IssueFactoryCommand{gc}, nil
}

func decodeIncreaseCommandCount(r *Reader) (ReplayCommand, error) {
	id, delta, err := readIDPair(r)
	if err != nil {
		return nil, err
	}
	return IncreaseCommandCount{ID: id, Delta: delta}, nil
}

func decodeDecreaseCommandCount(r *Reader) (ReplayCommand, error) {
	id, delta, err := readIDPair(r)
	if err != nil {
		return nil, err
	}
	return DecreaseCommandCount{ID: id, Delta: delta}, nil
}

func decodeSetCommandTarget(r *Reader) (ReplayCommand, error) {
	var cmd SetCommandTarget
	var err error
	if cmd.ID, err = r.I32(); err != nil {
		return nil, err
	}
	if cmd.Target, err = readTarget(r); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeSetCommandType(r *Reader) (ReplayCommand, error) {
	id, typ, err := readIDPair(r)
	if err != nil {
		return nil, err
	}
	return SetCommandType{ID: id, Type: typ}, nil
}

func decodeSetCommandCells(r *Reader) (ReplayCommand, error) {
	var cmd SetCommandCells
	var err error
	if cmd.ID, err = r.I32(); err != nil {
		return nil, err
	}
	if cmd.Cells, err = ReadLuaObject(r); err != nil {
		return nil, err
	}
	if cmd.Position, err = readPosition(r); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeRemoveCommandFromQueue(r *Reader) (ReplayCommand, error) {
	var cmd RemoveCommandFromQueue
	var err error
	if cmd.ID, err = r.I32(); err != nil {
		return nil, err
	}
	if cmd.Unit, err = r.U32(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// decodeDebugCommand reads command (1 byte), position, focus army (1 byte)
// and the selected entity ids.
func decodeDebugCommand(r *Reader) (ReplayCommand, error) {
	var cmd DebugCommand
	var err error
	if cmd.Command, err = r.U8(); err != nil {
		return nil, err
	}
	if cmd.Position, err = readPosition(r); err != nil {
		return nil, err
	}
	if cmd.FocusArmy, err = r.U8(); err != nil {
		return nil, err
	}
	if cmd.Selection, err = readEntityIDs(r); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeExecuteLuaInSim(r *Reader) (ReplayCommand, error) {
	code, err := r.CString()
	if err != nil {
		return nil, err
	}
	return ExecuteLuaInSim{Code: code}, nil
}

func decodeLuaSimCallback(r *Reader) (ReplayCommand, error) {
	var cmd LuaSimCallback
	var err error
	if cmd.Func, err = r.CString(); err != nil {
		return nil, err
	}
	if cmd.Args, err = ReadLuaObject(r); err != nil {
		return nil, err
	}
	if cmd.Selection, err = readEntityIDs(r); err != nil {
		return nil, err
	}
	return cmd, nil
}

// readGameCommand parses the payload shared by IssueCommand and
// IssueFactoryCommand.
//
// GameCommand structure:
//   - entity ids (1 dword count + n dwords)
//   - 1 dword: Command id
//   - 1 dword: Coordinated attack command id
//   - 1 byte: Command type
//   - 1 byte: Unknown (arg2)
//   - Target
//   - 1 float: Unknown (arg3)
//   - Formation (1 dword id, -1 when absent, then 4 floats)
//   - n bytes: Blueprint (null-terminated)
//   - 3 dwords: Unknown (arg4 to arg6)
//   - ST value: Upgrades
//   - 1 byte: Clear queue flag
func readGameCommand(r *Reader) (GameCommand, error) {
	var gc GameCommand
	var err error
	if gc.EntityIDs, err = readEntityIDs(r); err != nil {
		return gc, err
	}
	if gc.ID, err = r.I32(); err != nil {
		return gc, err
	}
	if gc.CoordinatedAttackCmdID, err = r.I32(); err != nil {
		return gc, err
	}
	if gc.Type, err = r.U8(); err != nil {
		return gc, err
	}
	if gc.Arg2, err = r.U8(); err != nil {
		return gc, err
	}
	if gc.Target, err = readTarget(r); err != nil {
		return gc, err
	}
	if gc.Arg3, err = readFloat(r); err != nil {
		return gc, err
	}
	if gc.Formation, err = readFormation(r); err != nil {
		return gc, err
	}
	if gc.Blueprint, err = r.CString(); err != nil {
		return gc, err
	}
	if gc.Arg4, err = r.I32(); err != nil {
		return gc, err
	}
	if gc.Arg5, err = r.I32(); err != nil {
		return gc, err
	}
	if gc.Arg6, err = r.I32(); err != nil {
		return gc, err
	}
	if gc.Upgrades, err = ReadLuaObject(r); err != nil {
		return gc, err
	}
	if gc.ClearQueue, err = r.Bool(); err != nil {
		return gc, err
	}
	return gc, nil
}

// readTarget parses a 1 byte discriminator followed by the target data.
func readTarget(r *Reader) (Target, error) {
	offset := r.Position()
	kind, err := r.U8()
	if err != nil {
		return Target{}, err
	}
	switch TargetKind(kind) {
	case TargetNone:
		return Target{Kind: TargetNone}, nil
	case TargetEntity:
		id, err := r.U32()
		if err != nil {
			return Target{}, err
		}
		return Target{Kind: TargetEntity, Entity: id}, nil
	case TargetPosition:
		pos, err := readPosition(r)
		if err != nil {
			return Target{}, err
		}
		return Target{Kind: TargetPosition, Position: pos}, nil
	default:
		return Target{}, newMalformedError(fmt.Sprintf("unknown target type %d", kind), offset)
	}
}

func readFormation(r *Reader) (*Formation, error) {
	a, err := r.I32()
	if err != nil {
		return nil, err
	}
	if a == NoFormation {
		return nil, nil
	}
	f := &Formation{A: a}
	if f.B, err = readFloat(r); err != nil {
		return nil, err
	}
	if f.C, err = readFloat(r); err != nil {
		return nil, err
	}
	if f.D, err = readFloat(r); err != nil {
		return nil, err
	}
	if f.Scale, err = readFloat(r); err != nil {
		return nil, err
	}
	return f, nil
}

func readPosition(r *Reader) (Position, error) {
	var p Position
	var err error
	if p.X, err = readFloat(r); err != nil {
		return p, err
	}
	if p.Y, err = readFloat(r); err != nil {
		return p, err
	}
	if p.Z, err = readFloat(r); err != nil {
		return p, err
	}
	return p, nil
}

// readEntityIDs reads a dword count followed by that many dword ids.
func readEntityIDs(r *Reader) ([]uint32, error) {
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	// Commands are at most 64k long, which bounds any honest count.
	ids := make([]uint32, 0, min(int(count), 1<<14))
	for i := uint32(0); i < count; i++ {
		id, err := r.U32()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func readIDPair(r *Reader) (int32, int32, error) {
	a, err := r.I32()
	if err != nil {
		return 0, 0, err
	}
	b, err := r.I32()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func readFloat(r *Reader) (Float, error) {
	f, err := r.F32()
	return Float(f), err
}
