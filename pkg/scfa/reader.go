package scfa

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"unicode/utf8"
)

const (
	readerBufferSize = 64 * 1024
	readChunkSize    = 64 * 1024
)

// Reader is a little-endian cursor over replay data. It reads from a byte
// slice or from any io.Reader; both go through the same buffered path so
// every decoder works on streams.
type Reader struct {
	r       *bufio.Reader
	pos     int
	scratch [8]byte
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReaderSize(r, readerBufferSize)}
}

// NewBytesReader returns a Reader over data. The slice is only read.
func NewBytesReader(data []byte) *Reader {
	size := len(data)
	if size < 16 {
		size = 16
	}
	if size > readerBufferSize {
		size = readerBufferSize
	}
	return &Reader{r: bufio.NewReaderSize(bytes.NewReader(data), size)}
}

// Position returns the number of bytes consumed so far.
func (r *Reader) Position() int {
	return r.pos
}

// AtEOF reports whether the input is exhausted. It does not consume data.
func (r *Reader) AtEOF() (bool, error) {
	_, err := r.r.Peek(1)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, newIOError(err, r.pos)
}

// fail converts an error of the underlying reader into the package taxonomy.
func (r *Reader) fail(err error, what string, offset int) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return newUnexpectedEOFError(what, offset)
	}
	return newIOError(err, offset)
}

// fixed reads exactly n <= 8 bytes into the scratch buffer.
func (r *Reader) fixed(n int, what string) ([]byte, error) {
	buf := r.scratch[:n]
	read, err := io.ReadFull(r.r, buf)
	start := r.pos
	r.pos += read
	if err != nil {
		return nil, r.fail(err, what, start)
	}
	return buf, nil
}

// U8 reads an unsigned byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, r.fail(err, "u8", r.pos)
	}
	r.pos++
	return b, nil
}

// I8 reads a signed byte.
func (r *Reader) I8() (int8, error) {
	b, err := r.U8()
	return int8(b), err
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	buf, err := r.fixed(2, "u16")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

// I16 reads a little-endian int16.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	buf, err := r.fixed(4, "u32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// I32 reads a little-endian int32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	buf, err := r.fixed(8, "u64")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// F32 reads a little-endian IEEE 754 float.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// Bool reads a single byte, nonzero meaning true.
func (r *Reader) Bool() (bool, error) {
	b, err := r.U8()
	return b != 0, err
}

// CBytes reads bytes up to the next zero byte. The terminator is consumed
// but not returned. The result is owned by the caller.
func (r *Reader) CBytes() ([]byte, error) {
	start := r.pos
	line, err := r.r.ReadBytes(0)
	r.pos += len(line)
	if err != nil {
		return nil, r.fail(err, "zero-terminated string", start)
	}
	return line[:len(line)-1], nil
}

// CString reads a zero-terminated UTF-8 string.
func (r *Reader) CString() (string, error) {
	start := r.pos
	raw, err := r.CBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", newMalformedUTF8Error(raw, start)
	}
	return string(raw), nil
}

// Bytes reads exactly n bytes into a new slice.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, newMalformedError("negative length", r.pos)
	}
	start := r.pos
	// Grow in chunks so a corrupt length cannot force a huge allocation
	// before the input proves it holds that many bytes.
	buf := make([]byte, 0, min(n, readChunkSize))
	for len(buf) < n {
		chunk := min(n-len(buf), readChunkSize)
		off := len(buf)
		buf = append(buf, make([]byte, chunk)...)
		read, err := io.ReadFull(r.r, buf[off:])
		r.pos += read
		if err != nil {
			return nil, r.fail(err, "byte block", start)
		}
	}
	return buf, nil
}

// LengthPrefixed reads a u32 byte count followed by that many bytes.
func (r *Reader) LengthPrefixed() ([]byte, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	return r.Bytes(int(n))
}

// Skip advances over n bytes without returning them.
func (r *Reader) Skip(n int) error {
	if n < 0 {
		return newMalformedError("negative skip", r.pos)
	}
	start := r.pos
	skipped, err := r.r.Discard(n)
	r.pos += skipped
	if err != nil {
		return r.fail(err, "skipped bytes", start)
	}
	return nil
}
