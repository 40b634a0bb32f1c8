package sftp

import "fmt"

// ProtocolVersion is the only SFTP version this server speaks.
const ProtocolVersion uint32 = 3

// PacketType identifies an SFTP packet (draft-ietf-secsh-filexfer-02, section 3).
type PacketType uint8

const (
	PacketInit     PacketType = 1
	PacketVersion  PacketType = 2
	PacketOpen     PacketType = 3
	PacketClose    PacketType = 4
	PacketRead     PacketType = 5
	PacketWrite    PacketType = 6
	PacketLstat    PacketType = 7
	PacketFstat    PacketType = 8
	PacketSetstat  PacketType = 9
	PacketFsetstat PacketType = 10
	PacketOpendir  PacketType = 11
	PacketReaddir  PacketType = 12
	PacketRemove   PacketType = 13
	PacketMkdir    PacketType = 14
	PacketRmdir    PacketType = 15
	PacketRealpath PacketType = 16
	PacketStat     PacketType = 17
	PacketRename   PacketType = 18
	PacketReadlink PacketType = 19
	PacketSymlink  PacketType = 20

	PacketStatus PacketType = 101
	PacketHandle PacketType = 102
	PacketData   PacketType = 103
	PacketName   PacketType = 104
	PacketAttrs  PacketType = 105

	PacketExtended      PacketType = 200
	PacketExtendedReply PacketType = 201
)

var packetNames = map[PacketType]string{
	PacketInit:          "INIT",
	PacketVersion:       "VERSION",
	PacketOpen:          "OPEN",
	PacketClose:         "CLOSE",
	PacketRead:          "READ",
	PacketWrite:         "WRITE",
	PacketLstat:         "LSTAT",
	PacketFstat:         "FSTAT",
	PacketSetstat:       "SETSTAT",
	PacketFsetstat:      "FSETSTAT",
	PacketOpendir:       "OPENDIR",
	PacketReaddir:       "READDIR",
	PacketRemove:        "REMOVE",
	PacketMkdir:         "MKDIR",
	PacketRmdir:         "RMDIR",
	PacketRealpath:      "REALPATH",
	PacketStat:          "STAT",
	PacketRename:        "RENAME",
	PacketReadlink:      "READLINK",
	PacketSymlink:       "SYMLINK",
	PacketStatus:        "STATUS",
	PacketHandle:        "HANDLE",
	PacketData:          "DATA",
	PacketName:          "NAME",
	PacketAttrs:         "ATTRS",
	PacketExtended:      "EXTENDED",
	PacketExtendedReply: "EXTENDED_REPLY",
}

func (t PacketType) String() string {
	if name, ok := packetNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// StatusCode is the error/status code carried by SSH_FXP_STATUS.
type StatusCode uint32

const (
	StatusOK               StatusCode = 0
	StatusEOF              StatusCode = 1
	StatusNoSuchFile       StatusCode = 2
	StatusPermissionDenied StatusCode = 3
	StatusFailure          StatusCode = 4
	StatusBadMessage       StatusCode = 5
	StatusNoConnection     StatusCode = 6
	StatusConnectionLost   StatusCode = 7
	StatusOpUnsupported    StatusCode = 8
)

func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "OK"
	case StatusEOF:
		return "EOF"
	case StatusNoSuchFile:
		return "NO_SUCH_FILE"
	case StatusPermissionDenied:
		return "PERMISSION_DENIED"
	case StatusFailure:
		return "FAILURE"
	case StatusBadMessage:
		return "BAD_MESSAGE"
	case StatusNoConnection:
		return "NO_CONNECTION"
	case StatusConnectionLost:
		return "CONNECTION_LOST"
	case StatusOpUnsupported:
		return "OP_UNSUPPORTED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint32(c))
	}
}

// Message returns the default human readable text for a status code.
func (c StatusCode) Message() string {
	switch c {
	case StatusOK:
		return "Success"
	case StatusEOF:
		return "End of file"
	case StatusNoSuchFile:
		return "No such file"
	case StatusPermissionDenied:
		return "Permission denied"
	case StatusFailure:
		return "Failure"
	case StatusBadMessage:
		return "Bad message"
	case StatusNoConnection:
		return "No connection"
	case StatusConnectionLost:
		return "Connection lost"
	case StatusOpUnsupported:
		return "Operation unsupported"
	default:
		return "Unknown error"
	}
}

// Open flags (SSH_FXF_*).
const (
	OpenRead   uint32 = 0x00000001
	OpenWrite  uint32 = 0x00000002
	OpenAppend uint32 = 0x00000004
	OpenCreate uint32 = 0x00000008
	OpenTrunc  uint32 = 0x00000010
	OpenExcl   uint32 = 0x00000020
)

// Attribute flags (SSH_FILEXFER_ATTR_*).
const (
	AttrSize        uint32 = 0x00000001
	AttrUIDGID      uint32 = 0x00000002
	AttrPermissions uint32 = 0x00000004
	AttrACModTime   uint32 = 0x00000008
	AttrExtended    uint32 = 0x80000000
)

// Extension is a name/data pair used by INIT, VERSION and attrs.
type Extension struct {
	Name string
	Data string
}
