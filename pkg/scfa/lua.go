package scfa

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// LuaObject is a value of the serialized scripted-table format embedded in
// replay headers and some commands. The concrete types are LuaFloat,
// LuaString, LuaUnicode, LuaNil, LuaBool and *LuaTable.
type LuaObject interface {
	luaTag() uint8
}

// LuaFloat is a number (tag 0).
type LuaFloat float32

// LuaString is a byte string (tag 1). It need not be valid UTF-8.
type LuaString string

// LuaUnicode is a UTF-8 text string (tag 2).
type LuaUnicode string

// LuaNil is the nil value (tag 3).
type LuaNil struct{}

// LuaBool is a boolean (tag 4).
type LuaBool bool

func (LuaFloat) luaTag() uint8   { return LuaTagFloat }
func (LuaString) luaTag() uint8  { return LuaTagString }
func (LuaUnicode) luaTag() uint8 { return LuaTagUnicode }
func (LuaNil) luaTag() uint8     { return LuaTagNil }
func (LuaBool) luaTag() uint8    { return LuaTagBool }
func (*LuaTable) luaTag() uint8  { return LuaTagTable }

// Bytes returns a copy of the raw string bytes.
func (s LuaString) Bytes() []byte {
	return []byte(s)
}

// MarshalJSON implements json.Marshaler for LuaFloat. Non-finite numbers
// have no JSON form and are written as strings.
func (f LuaFloat) MarshalJSON() ([]byte, error) {
	return marshalFloat32(float64(f))
}

// MarshalJSON implements json.Marshaler for LuaNil.
func (LuaNil) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// LuaEntry is one key/value pair of a LuaTable.
type LuaEntry struct {
	Key   LuaObject
	Value LuaObject
}

// LuaTable is a table value (tag 5). Entries keep their wire order and keys
// compare structurally.
type LuaTable struct {
	entries []LuaEntry
	// index holds the position of every non-table key.
	index map[LuaObject]int
}

// NewLuaTable returns an empty table.
func NewLuaTable() *LuaTable {
	return &LuaTable{index: make(map[LuaObject]int)}
}

// Set stores value under key, replacing any structurally equal key.
func (t *LuaTable) Set(key, value LuaObject) {
	if i, ok := t.find(key); ok {
		t.entries[i].Value = value
		return
	}
	if _, isTable := key.(*LuaTable); !isTable {
		t.index[key] = len(t.entries)
	}
	t.entries = append(t.entries, LuaEntry{Key: key, Value: value})
}

func (t *LuaTable) find(key LuaObject) (int, bool) {
	if _, isTable := key.(*LuaTable); !isTable {
		i, ok := t.index[key]
		return i, ok
	}
	for i, e := range t.entries {
		if LuaEqual(e.Key, key) {
			return i, true
		}
	}
	return 0, false
}

// Get returns the value stored under key.
func (t *LuaTable) Get(key LuaObject) (LuaObject, bool) {
	i, ok := t.find(key)
	if !ok {
		return nil, false
	}
	return t.entries[i].Value, true
}

// Field looks up a string key, trying the text form before the byte form.
func (t *LuaTable) Field(name string) (LuaObject, bool) {
	if v, ok := t.Get(LuaUnicode(name)); ok {
		return v, true
	}
	return t.Get(LuaString(name))
}

// Index looks up the numeric key i.
func (t *LuaTable) Index(i int) (LuaObject, bool) {
	return t.Get(LuaFloat(i))
}

// Len returns the number of entries.
func (t *LuaTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entries in wire order.
func (t *LuaTable) Entries() []LuaEntry {
	out := make([]LuaEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// IsSequence reports whether the keys are exactly 1..Len() in order.
func (t *LuaTable) IsSequence() bool {
	for i, e := range t.entries {
		f, ok := e.Key.(LuaFloat)
		if !ok || f != LuaFloat(i+1) {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler for LuaTable. Sequences become
// arrays; other tables become objects with stringified keys in wire order.
func (t *LuaTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if t.Len() > 0 && t.IsSequence() {
		buf.WriteByte('[')
		for i, e := range t.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			v, err := json.Marshal(e.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}

	buf.WriteByte('{')
	for i, e := range t.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(LuaKeyString(e.Key))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// LuaKeyString renders a table key as text.
func LuaKeyString(key LuaObject) string {
	switch k := key.(type) {
	case LuaFloat:
		return strconv.FormatFloat(float64(k), 'g', -1, 32)
	case LuaString:
		return string(k)
	case LuaUnicode:
		return string(k)
	case LuaBool:
		return strconv.FormatBool(bool(k))
	case LuaNil:
		return "nil"
	case *LuaTable:
		return fmt.Sprintf("table(%d)", k.Len())
	default:
		return fmt.Sprintf("%v", k)
	}
}

// LuaEqual compares two values structurally.
func LuaEqual(a, b LuaObject) bool {
	ta, aIsTable := a.(*LuaTable)
	tb, bIsTable := b.(*LuaTable)
	if aIsTable != bIsTable {
		return false
	}
	if !aIsTable {
		return a == b
	}
	if ta == tb {
		return true
	}
	if ta == nil || tb == nil || ta.Len() != tb.Len() {
		return false
	}
	for _, e := range ta.entries {
		v, ok := tb.Get(e.Key)
		if !ok || !LuaEqual(e.Value, v) {
			return false
		}
	}
	return true
}

// ReadLuaObject decodes one ST value.
//
// Each value starts with a 1 byte type tag:
//   - 0: float (4 bytes)
//   - 1: byte string (zero-terminated)
//   - 2: text string (zero-terminated UTF-8)
//   - 3: nil
//   - 4: bool (1 byte)
//   - 5: table, (key, value) pairs until an end marker (tag 6)
func ReadLuaObject(r *Reader) (LuaObject, error) {
	offset := r.Position()
	tag, err := r.U8()
	if err != nil {
		return nil, err
	}
	return readLuaValue(r, tag, offset, 0)
}

func readLuaValue(r *Reader, tag uint8, offset int, depth int) (LuaObject, error) {
	switch tag {
	case LuaTagFloat:
		f, err := r.F32()
		if err != nil {
			return nil, err
		}
		return LuaFloat(f), nil

	case LuaTagString:
		raw, err := r.CBytes()
		if err != nil {
			return nil, err
		}
		return LuaString(raw), nil

	case LuaTagUnicode:
		s, err := r.CString()
		if err != nil {
			return nil, err
		}
		return LuaUnicode(s), nil

	case LuaTagNil:
		return LuaNil{}, nil

	case LuaTagBool:
		b, err := r.Bool()
		if err != nil {
			return nil, err
		}
		return LuaBool(b), nil

	case LuaTagTable:
		if depth >= MaxLuaDepth {
			return nil, newMalformedError("lua table nesting too deep", offset)
		}
		return readLuaTable(r, depth+1)

	case LuaTagEnd:
		return nil, newMalformedError("unexpected lua table end marker", offset)

	default:
		return nil, newMalformedError(fmt.Sprintf("unknown lua type tag %d", tag), offset)
	}
}

func readLuaTable(r *Reader, depth int) (*LuaTable, error) {
	table := NewLuaTable()
	for {
		keyOffset := r.Position()
		keyTag, err := r.U8()
		if err != nil {
			return nil, err
		}
		if keyTag == LuaTagEnd {
			return table, nil
		}
		key, err := readLuaValue(r, keyTag, keyOffset, depth)
		if err != nil {
			return nil, err
		}

		valueOffset := r.Position()
		valueTag, err := r.U8()
		if err != nil {
			return nil, err
		}
		value, err := readLuaValue(r, valueTag, valueOffset, depth)
		if err != nil {
			return nil, err
		}
		table.Set(key, value)
	}
}
