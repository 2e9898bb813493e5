package scfa

import (
	"fmt"
	"unicode/utf8"
)

// ParseError is the base error type for parsing errors. The concrete error
// types below embed it.
type ParseError struct {
	Message string
	Offset  *int
}

func (e *ParseError) Error() string {
	if e.Offset != nil {
		return fmt.Sprintf("%s at offset 0x%X", e.Message, *e.Offset)
	}
	return e.Message
}

// UnexpectedEOFError indicates the input ended mid-field or mid-command.
type UnexpectedEOFError struct {
	ParseError
}

// MalformedUTF8Error indicates a text field that is not valid UTF-8. Bytes
// holds the raw field so callers can report or recover.
type MalformedUTF8Error struct {
	ParseError
	Bytes     []byte
	ValidUpTo int
}

// DesyncedError indicates a checksum mismatch while the parser is
// configured to stop on desyncs.
type DesyncedError struct {
	ParseError
	Tick uint32
}

// MalformedError indicates a structural violation of the replay format.
type MalformedError struct {
	ParseError
}

// IOError wraps a failure of the underlying reader.
type IOError struct {
	ParseError
	Err error
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsReplayReadError reports whether err (or anything it wraps) was produced
// by the decoder rather than by the caller's environment.
func IsReplayReadError(err error) bool {
	for err != nil {
		switch err.(type) {
		case *UnexpectedEOFError, *MalformedUTF8Error, *DesyncedError, *MalformedError, *IOError:
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			// github.com/pkg/errors wrappers expose Cause as well as Unwrap.
			c, ok := err.(interface{ Cause() error })
			if !ok {
				return false
			}
			err = c.Cause()
			continue
		}
		err = u.Unwrap()
	}
	return false
}

// Helper functions for creating errors

func newUnexpectedEOFError(what string, offset int) *UnexpectedEOFError {
	return &UnexpectedEOFError{ParseError{
		Message: fmt.Sprintf("unexpected end of input reading %s", what),
		Offset:  &offset,
	}}
}

func newMalformedUTF8Error(raw []byte, offset int) *MalformedUTF8Error {
	valid := 0
	for valid < len(raw) {
		r, size := utf8.DecodeRune(raw[valid:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		valid += size
	}
	return &MalformedUTF8Error{
		ParseError: ParseError{
			Message: fmt.Sprintf("invalid utf-8 sequence of %d bytes from index %d", len(raw)-valid, valid),
			Offset:  &offset,
		},
		Bytes:     raw,
		ValidUpTo: valid,
	}
}

func newDesyncedError(tick uint32) *DesyncedError {
	return &DesyncedError{
		ParseError: ParseError{Message: fmt.Sprintf("replay desynced at tick %d", tick)},
		Tick:       tick,
	}
}

func newMalformedError(msg string, offset int) *MalformedError {
	return &MalformedError{ParseError{Message: msg, Offset: &offset}}
}

func newIOError(err error, offset int) *IOError {
	return &IOError{
		ParseError: ParseError{Message: fmt.Sprintf("read failed: %v", err), Offset: &offset},
		Err:        err,
	}
}
