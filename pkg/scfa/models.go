package scfa

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Player is a command source listed in the replay header.
type Player struct {
	Name string `json:"name"`
	ID   uint32 `json:"id"`
}

// Army is one army slot of the header: its settings table and the command
// source controlling it, if any.
type Army struct {
	Settings LuaObject `json:"settings"`
	Source   *uint8    `json:"source"`
}

// PlayerName returns the PlayerName field of the army settings, if present.
func (a *Army) PlayerName() string {
	t, ok := a.Settings.(*LuaTable)
	if !ok {
		return ""
	}
	v, ok := t.Field("PlayerName")
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case LuaUnicode:
		return string(s)
	case LuaString:
		return string(s)
	}
	return ""
}

// ReplayHeader contains everything stored before the command stream.
type ReplayHeader struct {
	SCFAVersion   string          `json:"scfa_version"`
	ReplayVersion string          `json:"replay_version"`
	MapFile       string          `json:"map_file"`
	Mods          LuaObject       `json:"mods"`
	Scenario      LuaObject       `json:"scenario"`
	Players       []Player        `json:"players"`
	CheatsEnabled bool            `json:"cheats_enabled"`
	ArmyCount     uint8           `json:"army_count"`
	Armies        map[uint8]*Army `json:"armies"`
	Seed          uint32          `json:"seed"`
}

// Player returns the player with the given command source id.
func (h *ReplayHeader) Player(id uint32) *Player {
	for i := range h.Players {
		if h.Players[i].ID == id {
			return &h.Players[i]
		}
	}
	return nil
}

// PlayerByName returns player by name (case-insensitive).
func (h *ReplayHeader) PlayerByName(name string) *Player {
	nameLower := strings.ToLower(name)
	for i := range h.Players {
		if strings.ToLower(h.Players[i].Name) == nameLower {
			return &h.Players[i]
		}
	}
	return nil
}

// ArmyIndexes returns the army indexes in ascending order.
func (h *ReplayHeader) ArmyIndexes() []uint8 {
	idx := make([]uint8, 0, len(h.Armies))
	for i := range h.Armies {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a] < idx[b] })
	return idx
}

// SimData is the simulation state tracked while decoding the body.
type SimData struct {
	Tick            uint32
	CommandSource   int8
	PlayersLastTick map[uint8]uint32
	Checksum        Digest
	ChecksumTick    uint32
	DesyncTick      *uint32
	DesyncTicks     []uint32

	// hasChecksum is set once a VerifyChecksum was seen.
	hasChecksum bool
}

func newSimData() SimData {
	return SimData{
		CommandSource:   NoCommandSource,
		PlayersLastTick: make(map[uint8]uint32),
		DesyncTicks:     []uint32{},
	}
}

// Duration returns the simulated game time.
func (s *SimData) Duration() time.Duration {
	return TicksToDuration(s.Tick)
}

// Desynced reports whether any checksum mismatch was observed.
func (s *SimData) Desynced() bool {
	return s.DesyncTick != nil
}

// MarshalJSON implements json.Marshaler for SimData.
func (s SimData) MarshalJSON() ([]byte, error) {
	lastTick := make(map[string]uint32, len(s.PlayersLastTick))
	for id, tick := range s.PlayersLastTick {
		lastTick[fmt.Sprint(id)] = tick
	}
	return json.Marshal(map[string]interface{}{
		"tick":              s.Tick,
		"command_source":    s.CommandSource,
		"players_last_tick": lastTick,
		"checksum":          s.Checksum,
		"checksum_tick":     s.ChecksumTick,
		"desync_tick":       s.DesyncTick,
		"desync_ticks":      s.DesyncTicks,
	})
}

// ReplayBody contains the decoded command stream.
type ReplayBody struct {
	Sim      SimData         `json:"sim"`
	Commands []ReplayCommand `json:"-"`
}

// MarshalJSON implements json.Marshaler for ReplayBody.
func (b *ReplayBody) MarshalJSON() ([]byte, error) {
	commands := make([]json.RawMessage, len(b.Commands))
	for i, c := range b.Commands {
		raw, err := MarshalCommand(c)
		if err != nil {
			return nil, err
		}
		commands[i] = raw
	}
	return json.Marshal(struct {
		Sim      SimData           `json:"sim"`
		Commands []json.RawMessage `json:"commands"`
	}{b.Sim, commands})
}

// Replay represents a complete parsed replay.
type Replay struct {
	Header *ReplayHeader `json:"header"`
	Body   *ReplayBody   `json:"body"`
}

// ToJSON exports replay to JSON bytes.
func (r *Replay) ToJSON(indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}
