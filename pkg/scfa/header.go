package scfa

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// parseHeader decodes the replay header.
//
// The header consists of:
//   - n bytes: Game version (null-terminated)
//   - n bytes: Marker, "\r\n" (null-terminated)
//   - n bytes: Replay version and map file joined by "\r\n" (null-terminated)
//   - n bytes: Marker, "\r\n\x1a" (null-terminated)
//   - 1 dword: Mods block size, then the mods ST value
//   - 1 dword: Scenario block size, then the scenario ST value
//   - Player records (see readPlayers)
//   - 1 byte: Cheats enabled
//   - Army records (see readArmies)
//   - 1 dword: Random seed
func parseHeader(r *Reader) (*ReplayHeader, error) {
	h := &ReplayHeader{}
	var err error

	if h.SCFAVersion, err = r.CString(); err != nil {
		return nil, errors.WithMessage(err, "game version")
	}
	if _, err = r.CBytes(); err != nil {
		return nil, errors.WithMessage(err, "header marker")
	}

	offset := r.Position()
	versionAndMap, err := r.CString()
	if err != nil {
		return nil, errors.WithMessage(err, "replay version")
	}
	if h.ReplayVersion, h.MapFile, err = splitReplayVersion(versionAndMap, offset); err != nil {
		return nil, err
	}
	if _, err = r.CBytes(); err != nil {
		return nil, errors.WithMessage(err, "header marker")
	}

	if h.Mods, err = readLuaBlock(r); err != nil {
		return nil, errors.WithMessage(err, "mods")
	}
	if h.Scenario, err = readLuaBlock(r); err != nil {
		return nil, errors.WithMessage(err, "scenario")
	}

	if h.Players, err = readPlayers(r); err != nil {
		return nil, err
	}
	if h.CheatsEnabled, err = r.Bool(); err != nil {
		return nil, errors.WithMessage(err, "cheats flag")
	}
	if h.ArmyCount, h.Armies, err = readArmies(r); err != nil {
		return nil, err
	}
	if h.Seed, err = r.U32(); err != nil {
		return nil, errors.WithMessage(err, "seed")
	}
	return h, nil
}

// skipHeader walks the header layout without decoding any ST value and
// returns the offset of the first body byte.
func skipHeader(r *Reader) (int, error) {
	for i := 0; i < 4; i++ {
		if _, err := r.CBytes(); err != nil {
			return 0, errors.WithMessage(err, "header strings")
		}
	}
	if err := skipLuaBlock(r); err != nil {
		return 0, errors.WithMessage(err, "mods")
	}
	if err := skipLuaBlock(r); err != nil {
		return 0, errors.WithMessage(err, "scenario")
	}
	if err := skipPlayers(r); err != nil {
		return 0, err
	}
	if err := r.Skip(1); err != nil {
		return 0, errors.WithMessage(err, "cheats flag")
	}
	if err := skipArmies(r); err != nil {
		return 0, err
	}
	if err := r.Skip(4); err != nil {
		return 0, errors.WithMessage(err, "seed")
	}
	return r.Position(), nil
}

// splitReplayVersion separates "Replay v1.9\r\n/maps/x/x.scmap" into the
// replay version and the map file.
func splitReplayVersion(s string, offset int) (string, string, error) {
	version, mapFile, ok := strings.Cut(s, headerVersionSeparator)
	if !ok {
		return "", "", newMalformedError(
			fmt.Sprintf("replay version %q has no map file separator", s), offset,
		)
	}
	return version, mapFile, nil
}

// readLuaBlock reads a dword block size followed by an ST value that must fit
// inside the block. Unused block bytes are skipped.
func readLuaBlock(r *Reader) (LuaObject, error) {
	size, err := r.U32()
	if err != nil {
		return nil, err
	}
	start := r.Position()
	obj, err := ReadLuaObject(r)
	if err != nil {
		return nil, err
	}
	used := r.Position() - start
	if used > int(size) {
		return nil, newMalformedError(
			fmt.Sprintf("value of %d bytes overruns its %d byte block", used, size), start,
		)
	}
	if err := r.Skip(int(size) - used); err != nil {
		return nil, err
	}
	return obj, nil
}

func skipLuaBlock(r *Reader) error {
	size, err := r.U32()
	if err != nil {
		return err
	}
	return r.Skip(int(size))
}
