package scfa

import (
	"github.com/pkg/errors"
)

// affectsSim reports whether commands with this tag change SimData and must
// therefore be decoded even when they are not selected.
func affectsSim(tag CommandTag) bool {
	switch tag {
	case CmdAdvance, CmdSetCommandSource, CmdCommandSourceTerminated, CmdVerifyChecksum:
		return true
	}
	return false
}

// parseBody drives the command stream until EOF or the configured limit.
//
// Every selected command is decoded and validated. Commands outside the
// selected set that do not change SimData are skipped through their size
// field without decoding the payload.
func (p *Parser) parseBody(r *Reader) (*ReplayBody, error) {
	body := &ReplayBody{
		Sim:      newSimData(),
		Commands: []ReplayCommand{},
	}

	processed := 0
	skipped := 0
	for {
		if p.limit > 0 && processed >= p.limit {
			p.logger.Debug().Int("limit", p.limit).Int("offset", r.Position()).Msg("command limit reached")
			break
		}
		eof, err := r.AtEOF()
		if err != nil {
			return nil, err
		}
		if eof {
			break
		}

		frame, err := readCommandFrame(r)
		if err != nil {
			return nil, errors.WithMessagef(err, "command %d", processed)
		}

		if !p.commands[frame.tag] && !affectsSim(frame.tag) {
			if err := skipCommandPayload(r, frame); err != nil {
				return nil, errors.WithMessagef(err, "command %d (%s)", processed, frame.tag)
			}
			processed++
			skipped++
			continue
		}

		cmd, err := decodeCommandPayload(r, frame)
		if err != nil {
			return nil, errors.WithMessagef(err, "command %d (%s)", processed, frame.tag)
		}
		if err := p.applyCommand(&body.Sim, cmd); err != nil {
			return nil, err
		}
		if p.saveCommands && p.commands[frame.tag] {
			body.Commands = append(body.Commands, cmd)
		}
		processed++
	}

	p.logger.Debug().
		Int("commands", processed).
		Int("skipped", skipped).
		Int("retained", len(body.Commands)).
		Uint32("tick", body.Sim.Tick).
		Msg("body decoded")
	return body, nil
}

// applyCommand updates the simulation state for one command.
func (p *Parser) applyCommand(sim *SimData, cmd ReplayCommand) error {
	switch c := cmd.(type) {
	case Advance:
		sim.Tick += c.Ticks

	case SetCommandSource:
		sim.CommandSource = int8(c.ID)
		sim.PlayersLastTick[c.ID] = sim.Tick

	case CommandSourceTerminated:
		sim.CommandSource = NoCommandSource

	case VerifyChecksum:
		if sim.hasChecksum && sim.ChecksumTick == c.Tick && sim.Checksum != c.Digest {
			tick := c.Tick
			sim.DesyncTicks = append(sim.DesyncTicks, tick)
			if sim.DesyncTick == nil || tick < *sim.DesyncTick {
				sim.DesyncTick = &tick
			}
			p.logger.Debug().
				Uint32("tick", tick).
				Int8("command_source", sim.CommandSource).
				Str("expected", sim.Checksum.String()).
				Str("got", c.Digest.String()).
				Msg("checksum mismatch")
			if p.stopOnDesync {
				return newDesyncedError(tick)
			}
		}
		sim.Checksum = c.Digest
		sim.ChecksumTick = c.Tick
		sim.hasChecksum = true
	}
	return nil
}

// bodyTicks sums the Advance commands of a body, skipping every other
// payload through its size field.
func bodyTicks(r *Reader) (uint32, error) {
	var ticks uint32
	for {
		eof, err := r.AtEOF()
		if err != nil {
			return 0, err
		}
		if eof {
			return ticks, nil
		}

		frame, err := readCommandFrame(r)
		if err != nil {
			return 0, err
		}
		if frame.tag != CmdAdvance {
			if err := skipCommandPayload(r, frame); err != nil {
				return 0, err
			}
			continue
		}
		cmd, err := decodeCommandPayload(r, frame)
		if err != nil {
			return 0, err
		}
		ticks += cmd.(Advance).Ticks
	}
}
