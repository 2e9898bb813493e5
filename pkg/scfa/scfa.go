// Package scfa provides a parser for Supreme Commander: Forged Alliance
// replay (.scfareplay) files.
//
// A replay is a header describing the scenario, players, map and mods,
// followed by a body of tagged simulation commands. The parser decodes both
// and tracks the simulation tick and checksum desyncs while reading the
// body.
//
// Basic usage:
//
//	data, err := os.ReadFile("my_replay.scfareplay")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	replay, err := scfa.NewParser().Parse(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Map: %s\n", replay.Header.MapFile)
//	fmt.Printf("Duration: %s\n", scfa.FormatDuration(replay.Body.Sim.Duration()))
//
//	for _, player := range replay.Header.Players {
//	    fmt.Printf("  %s (%d)\n", player.Name, player.ID)
//	}
package scfa

import (
	"fmt"
	"os"
	"time"
)

// Parse is a convenience function to parse a replay held in memory.
func Parse(data []byte) (*Replay, error) {
	return NewParser().Parse(data)
}

// ParseFile is a convenience function to parse a replay file.
func ParseFile(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return NewParser().ParseStream(f)
}

// BodyOffset returns the offset at which the body starts. The header is
// walked without decoding its ST values.
func BodyOffset(replay []byte) (int, error) {
	return skipHeader(NewBytesReader(replay))
}

// BodyTicks counts the ticks of a replay body without checking for desyncs.
// body must start at the body offset.
func BodyTicks(body []byte) (uint32, error) {
	return bodyTicks(NewBytesReader(body))
}

// FormatDuration formats a duration as H:MM:SS or M:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// TicksToDuration converts simulation ticks to game time.
func TicksToDuration(ticks uint32) time.Duration {
	return time.Duration(ticks) * time.Second / TicksPerSecond
}
