package scfa

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestReadCommandRoundTrip(t *testing.T) {
	cmds := sampleCommands()
	if len(cmds) != int(MaxCommand) {
		t.Fatalf("sampleCommands() has %d commands, want %d", len(cmds), MaxCommand)
	}

	for i, want := range cmds {
		t.Run(want.Tag().String(), func(t *testing.T) {
			if int(want.Tag()) != i {
				t.Errorf("Tag() = %d, want %d", want.Tag(), i)
			}
			data := encodeCommand(want)
			r := NewBytesReader(data)
			got, err := ReadCommand(r)
			if err != nil {
				t.Fatalf("ReadCommand() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("ReadCommand() = %#v, want %#v", got, want)
			}
			if r.Position() != len(data) {
				t.Errorf("consumed %d bytes, want %d", r.Position(), len(data))
			}
		})
	}
}

func TestReadCommandUnknownTag(t *testing.T) {
	for _, tag := range []byte{24, 25, 0xFF} {
		_, err := ReadCommand(NewBytesReader([]byte{tag, 3, 0}))
		var malformed *MalformedError
		if !errors.As(err, &malformed) {
			t.Fatalf("tag %d: error = %v, want MalformedError", tag, err)
		}
		if malformed.Message != "unknown command tag" {
			t.Errorf("tag %d: Message = %q", tag, malformed.Message)
		}
	}
}

func TestReadCommandSizeMismatch(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"size too large", []byte{byte(CmdAdvance), 8, 0, 5, 0, 0, 0, 0}},
		{"size too small", []byte{byte(CmdAdvance), 6, 0, 5, 0, 0, 0}},
		{"size below header", []byte{byte(CmdEndGame), 2, 0}},
		{"empty command with payload", []byte{byte(CmdEndGame), 4, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCommand(NewBytesReader(tt.data))
			var malformed *MalformedError
			if !errors.As(err, &malformed) {
				t.Errorf("error = %v, want MalformedError", err)
			}
		})
	}
}

func TestReadCommandBadTarget(t *testing.T) {
	payload := (&encoder{}).i32(1).u8(3).bytes()
	data := (&encoder{}).
		u8(uint8(CmdSetCommandTarget)).
		u16(uint16(len(payload) + CommandHeaderSize)).
		raw(payload).
		bytes()

	_, err := ReadCommand(NewBytesReader(data))
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedError", err)
	}
	if !strings.Contains(malformed.Message, "target") {
		t.Errorf("Message = %q, want it to mention the target", malformed.Message)
	}
}

func TestReadCommandTruncated(t *testing.T) {
	for _, cmd := range sampleCommands() {
		data := encodeCommand(cmd)
		for n := 0; n < len(data); n++ {
			_, err := ReadCommand(NewBytesReader(data[:n]))
			var eofErr *UnexpectedEOFError
			if !errors.As(err, &eofErr) {
				t.Fatalf("%s truncated to %d bytes: error = %v, want UnexpectedEOFError", cmd.Tag(), n, err)
			}
		}
	}
}

func TestCommandNames(t *testing.T) {
	if len(CommandNames) != int(MaxCommand) {
		t.Fatalf("len(CommandNames) = %d, want %d", len(CommandNames), MaxCommand)
	}
	for _, tag := range AllCommands() {
		name := tag.String()
		if name == "" || name == "Unknown" {
			t.Errorf("tag %d has no name", tag)
		}
		if got, ok := CommandTagByName(name); !ok || got != tag {
			t.Errorf("CommandTagByName(%q) = %d, %v, want %d", name, got, ok, tag)
		}
	}
	if MaxCommand.Valid() || MaxCommand.String() != "Unknown" {
		t.Errorf("MaxCommand is treated as a command")
	}
	if _, ok := CommandTagByName("Teleport"); ok {
		t.Error("CommandTagByName(Teleport) found a tag")
	}
}

func TestMarshalCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  ReplayCommand
		want map[string]interface{}
	}{
		{
			name: "empty payload",
			cmd:  EndGame{},
			want: map[string]interface{}{"name": "EndGame"},
		},
		{
			name: "advance",
			cmd:  Advance{Ticks: 5},
			want: map[string]interface{}{"name": "Advance", "ticks": 5.0},
		},
		{
			name: "entity target",
			cmd:  SetCommandTarget{ID: 2, Target: Target{Kind: TargetEntity, Entity: 9}},
			want: map[string]interface{}{
				"name":   "SetCommandTarget",
				"id":     2.0,
				"target": map[string]interface{}{"id": 9.0},
			},
		},
		{
			name: "no target",
			cmd:  SetCommandTarget{ID: 2, Target: Target{Kind: TargetNone}},
			want: map[string]interface{}{"name": "SetCommandTarget", "id": 2.0, "target": nil},
		},
		{
			name: "checksum",
			cmd:  VerifyChecksum{Digest: digestOf(0xAB), Tick: 3},
			want: map[string]interface{}{
				"name":   "VerifyChecksum",
				"digest": strings.Repeat("ab", ChecksumSize),
				"tick":   3.0,
			},
		},
		{
			name: "non-finite coordinates",
			cmd:  WarpEntity{Unit: 7, X: Float(math.NaN()), Y: Float(math.Inf(1)), Z: 1.5},
			want: map[string]interface{}{
				"name": "WarpEntity",
				"unit": 7.0,
				"x":    "NaN",
				"y":    "+Inf",
				"z":    1.5,
			},
		},
		{
			name: "negative infinite heading",
			cmd:  CreateUnit{Army: 1, Blueprint: "uel0001", X: 2, Z: 3, Heading: Float(math.Inf(-1))},
			want: map[string]interface{}{
				"name":      "CreateUnit",
				"army":      1.0,
				"blueprint": "uel0001",
				"x":         2.0,
				"z":         3.0,
				"heading":   "-Inf",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := MarshalCommand(tt.cmd)
			if err != nil {
				t.Fatalf("MarshalCommand() error = %v", err)
			}
			var got map[string]interface{}
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("invalid JSON %s: %v", raw, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MarshalCommand() = %s, want %v", raw, tt.want)
			}
		})
	}
}

func TestMarshalGameCommand(t *testing.T) {
	raw, err := MarshalCommand(sampleCommands()[CmdIssueCommand])
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("invalid JSON %s: %v", raw, err)
	}
	if got["name"] != "IssueCommand" {
		t.Errorf("name = %v", got["name"])
	}
	target, ok := got["target"].(map[string]interface{})
	if !ok || target["x"] != 256.5 {
		t.Errorf("target = %v, want a position", got["target"])
	}
	if got["upgrades"] != nil {
		t.Errorf("upgrades = %v, want null", got["upgrades"])
	}
	if _, ok := got["formation"].(map[string]interface{}); !ok {
		t.Errorf("formation = %v, want an object", got["formation"])
	}
}
