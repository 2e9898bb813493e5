package scfa

// CommandTag identifies a replay body command. The values are fixed by the
// replay format.
type CommandTag uint8

// Command tags
const (
	CmdAdvance                 CommandTag = 0
	CmdSetCommandSource        CommandTag = 1
	CmdCommandSourceTerminated CommandTag = 2
	CmdVerifyChecksum          CommandTag = 3
	CmdRequestPause            CommandTag = 4
	CmdResume                  CommandTag = 5
	CmdSingleStep              CommandTag = 6
	CmdCreateUnit              CommandTag = 7
	CmdCreateProp              CommandTag = 8
	CmdDestroyEntity           CommandTag = 9
	CmdWarpEntity              CommandTag = 10
	CmdProcessInfoPair         CommandTag = 11
	CmdIssueCommand            CommandTag = 12
	CmdIssueFactoryCommand     CommandTag = 13
	CmdIncreaseCommandCount    CommandTag = 14
	CmdDecreaseCommandCount    CommandTag = 15
	CmdSetCommandTarget        CommandTag = 16
	CmdSetCommandType          CommandTag = 17
	CmdSetCommandCells         CommandTag = 18
	CmdRemoveCommandFromQueue  CommandTag = 19
	CmdDebugCommand            CommandTag = 20
	CmdExecuteLuaInSim         CommandTag = 21
	CmdLuaSimCallback          CommandTag = 22
	CmdEndGame                 CommandTag = 23

	// MaxCommand is the first tag value that is not a command.
	MaxCommand CommandTag = 24
)

// CommandNames maps command tags to their canonical names.
var CommandNames = [MaxCommand]string{
	CmdAdvance:                 "Advance",
	CmdSetCommandSource:        "SetCommandSource",
	CmdCommandSourceTerminated: "CommandSourceTerminated",
	CmdVerifyChecksum:          "VerifyChecksum",
	CmdRequestPause:            "RequestPause",
	CmdResume:                  "Resume",
	CmdSingleStep:              "SingleStep",
	CmdCreateUnit:              "CreateUnit",
	CmdCreateProp:              "CreateProp",
	CmdDestroyEntity:           "DestroyEntity",
	CmdWarpEntity:              "WarpEntity",
	CmdProcessInfoPair:         "ProcessInfoPair",
	CmdIssueCommand:            "IssueCommand",
	CmdIssueFactoryCommand:     "IssueFactoryCommand",
	CmdIncreaseCommandCount:    "IncreaseCommandCount",
	CmdDecreaseCommandCount:    "DecreaseCommandCount",
	CmdSetCommandTarget:        "SetCommandTarget",
	CmdSetCommandType:          "SetCommandType",
	CmdSetCommandCells:         "SetCommandCells",
	CmdRemoveCommandFromQueue:  "RemoveCommandFromQueue",
	CmdDebugCommand:            "DebugCommand",
	CmdExecuteLuaInSim:         "ExecuteLuaInSim",
	CmdLuaSimCallback:          "LuaSimCallback",
	CmdEndGame:                 "EndGame",
}

func (t CommandTag) String() string {
	if t < MaxCommand {
		return CommandNames[t]
	}
	return "Unknown"
}

// Valid reports whether t names a known command.
func (t CommandTag) Valid() bool {
	return t < MaxCommand
}

// CommandTagByName looks up a tag by its canonical name.
func CommandTagByName(name string) (CommandTag, bool) {
	for i, n := range CommandNames {
		if n == name {
			return CommandTag(i), true
		}
	}
	return 0, false
}

// AllCommands returns every known command tag in order.
func AllCommands() []CommandTag {
	tags := make([]CommandTag, MaxCommand)
	for i := range tags {
		tags[i] = CommandTag(i)
	}
	return tags
}

// Command framing
const (
	CommandHeaderSize = 3  // u8 tag + u16 size
	ChecksumSize      = 16 // VerifyChecksum digest length
)

// ST value type tags used inside the header and some commands.
const (
	LuaTagFloat   = 0
	LuaTagString  = 1
	LuaTagUnicode = 2
	LuaTagNil     = 3
	LuaTagBool    = 4
	LuaTagTable   = 5
	LuaTagEnd     = 6
)

// MaxLuaDepth bounds table nesting when decoding ST values.
const MaxLuaDepth = 64

// NoFormation is the formation id marking a GameCommand without formation.
const NoFormation int32 = -1

// NoCommandSource is the SimData command source outside any SetCommandSource.
const NoCommandSource int8 = -1

// TicksPerSecond is the simulation rate of SCFA.
const TicksPerSecond = 10

// Header markers
const (
	headerVersionSeparator = "\r\n"
)
