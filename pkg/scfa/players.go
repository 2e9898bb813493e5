package scfa

import (
	"github.com/pkg/errors"
)

// noArmySource is the army record source byte of armies without a player.
const noArmySource int8 = -1

// readPlayers parses the command source list.
//
// Player list structure:
//   - 1 byte: Player count
//   - For each player:
//   - n bytes: Player name (null-terminated)
//   - 1 dword: Command source id
func readPlayers(r *Reader) ([]Player, error) {
	count, err := r.U8()
	if err != nil {
		return nil, errors.WithMessage(err, "player count")
	}
	players := make([]Player, 0, count)
	for i := 0; i < int(count); i++ {
		var p Player
		if p.Name, err = r.CString(); err != nil {
			return nil, errors.WithMessagef(err, "player %d name", i)
		}
		if p.ID, err = r.U32(); err != nil {
			return nil, errors.WithMessagef(err, "player %d id", i)
		}
		players = append(players, p)
	}
	return players, nil
}

func skipPlayers(r *Reader) error {
	count, err := r.U8()
	if err != nil {
		return errors.WithMessage(err, "player count")
	}
	for i := 0; i < int(count); i++ {
		if _, err := r.CBytes(); err != nil {
			return errors.WithMessagef(err, "player %d name", i)
		}
		if err := r.Skip(4); err != nil {
			return errors.WithMessagef(err, "player %d id", i)
		}
	}
	return nil
}

// readArmies parses the army records.
//
// Army list structure:
//   - 1 byte: Army count
//   - For each army:
//   - 1 dword: Settings block size, then the settings ST value
//   - 1 byte: Source player id (0xFF for none)
//   - 1 byte: Padding, present only when the source is set
func readArmies(r *Reader) (uint8, map[uint8]*Army, error) {
	count, err := r.U8()
	if err != nil {
		return 0, nil, errors.WithMessage(err, "army count")
	}
	armies := make(map[uint8]*Army, count)
	for i := 0; i < int(count); i++ {
		army := &Army{}
		if army.Settings, err = readLuaBlock(r); err != nil {
			return 0, nil, errors.WithMessagef(err, "army %d settings", i)
		}
		source, err := readArmySource(r)
		if err != nil {
			return 0, nil, errors.WithMessagef(err, "army %d source", i)
		}
		army.Source = source
		armies[uint8(i)] = army
	}
	return count, armies, nil
}

func readArmySource(r *Reader) (*uint8, error) {
	source, err := r.I8()
	if err != nil {
		return nil, err
	}
	if source == noArmySource {
		return nil, nil
	}
	if err := r.Skip(1); err != nil {
		return nil, err
	}
	id := uint8(source)
	return &id, nil
}

func skipArmies(r *Reader) error {
	count, err := r.U8()
	if err != nil {
		return errors.WithMessage(err, "army count")
	}
	for i := 0; i < int(count); i++ {
		if err := skipLuaBlock(r); err != nil {
			return errors.WithMessagef(err, "army %d settings", i)
		}
		if _, err := readArmySource(r); err != nil {
			return errors.WithMessagef(err, "army %d source", i)
		}
	}
	return nil
}
