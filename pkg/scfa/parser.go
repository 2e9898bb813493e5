package scfa

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Parser is the SCFA replay parser. A Parser is immutable once built and may
// be used from several goroutines at once.
type Parser struct {
	limit        int
	commands     [MaxCommand]bool
	saveCommands bool
	stopOnDesync bool
	logger       zerolog.Logger
}

// NewParser creates a parser with the default configuration: no command
// limit, all commands selected, commands discarded, stop on desync.
func NewParser() *Parser {
	p, _ := NewParserBuilder().Build()
	return p
}

// ParserBuilder configures a Parser.
type ParserBuilder struct {
	limit        int
	commands     []CommandTag
	saveCommands bool
	stopOnDesync bool
	logger       zerolog.Logger
}

// NewParserBuilder returns a builder holding the default configuration.
func NewParserBuilder() *ParserBuilder {
	return &ParserBuilder{
		commands:     AllCommands(),
		stopOnDesync: true,
		logger:       zerolog.Nop(),
	}
}

// Limit stops body parsing after n commands. Zero means no limit.
func (b *ParserBuilder) Limit(n int) *ParserBuilder {
	b.limit = n
	return b
}

// Commands selects the command tags retained when SaveCommands is on.
func (b *ParserBuilder) Commands(tags ...CommandTag) *ParserBuilder {
	b.commands = append([]CommandTag(nil), tags...)
	return b
}

// CommandsDefault selects every command.
func (b *ParserBuilder) CommandsDefault() *ParserBuilder {
	b.commands = AllCommands()
	return b
}

// SaveCommands keeps decoded commands in ReplayBody.Commands.
func (b *ParserBuilder) SaveCommands(save bool) *ParserBuilder {
	b.saveCommands = save
	return b
}

// StopOnDesync makes a checksum mismatch fail the parse with DesyncedError.
func (b *ParserBuilder) StopOnDesync(stop bool) *ParserBuilder {
	b.stopOnDesync = stop
	return b
}

// Logger sets the logger receiving debug events. The default discards them.
func (b *ParserBuilder) Logger(l zerolog.Logger) *ParserBuilder {
	b.logger = l
	return b
}

// Build validates the configuration and returns the parser.
func (b *ParserBuilder) Build() (*Parser, error) {
	if b.limit < 0 {
		return nil, fmt.Errorf("limit must not be negative, got %d", b.limit)
	}
	p := &Parser{
		limit:        b.limit,
		saveCommands: b.saveCommands,
		stopOnDesync: b.stopOnDesync,
		logger:       b.logger,
	}
	for _, tag := range b.commands {
		if !tag.Valid() {
			return nil, fmt.Errorf("unknown command tag %d", tag)
		}
		p.commands[tag] = true
	}
	return p, nil
}

// Parse parses a complete replay held in memory.
func (p *Parser) Parse(data []byte) (*Replay, error) {
	return p.parse(NewBytesReader(data))
}

// ParseStream parses a replay from an io.Reader.
func (p *Parser) ParseStream(r io.Reader) (*Replay, error) {
	return p.parse(NewReader(r))
}

// ParseHeader parses just the header (for quick metadata access).
func (p *Parser) ParseHeader(data []byte) (*ReplayHeader, error) {
	return p.parseHeader(NewBytesReader(data))
}

// ParseHeaderStream parses just the header from an io.Reader.
func (p *Parser) ParseHeaderStream(r io.Reader) (*ReplayHeader, error) {
	return p.parseHeader(NewReader(r))
}

// ParseBody parses a replay body. data must start at the body offset, i.e.
// the header has already been consumed by the caller.
func (p *Parser) ParseBody(data []byte) (*ReplayBody, error) {
	return p.parseBody(NewBytesReader(data))
}

// ParseBodyStream parses a replay body from an io.Reader positioned at the
// body offset.
func (p *Parser) ParseBodyStream(r io.Reader) (*ReplayBody, error) {
	return p.parseBody(NewReader(r))
}

func (p *Parser) parse(r *Reader) (*Replay, error) {
	// 1. Parse header
	header, err := p.parseHeader(r)
	if err != nil {
		return nil, err
	}

	// 2. Parse body
	body, err := p.parseBody(r)
	if err != nil {
		return nil, err
	}
	return &Replay{Header: header, Body: body}, nil
}

func (p *Parser) parseHeader(r *Reader) (*ReplayHeader, error) {
	header, err := parseHeader(r)
	if err != nil {
		return nil, errors.WithMessage(err, "header")
	}
	p.logger.Debug().
		Str("scfa_version", header.SCFAVersion).
		Str("replay_version", header.ReplayVersion).
		Str("map", header.MapFile).
		Int("players", len(header.Players)).
		Uint8("armies", header.ArmyCount).
		Int("body_offset", r.Position()).
		Msg("header decoded")
	return header, nil
}
