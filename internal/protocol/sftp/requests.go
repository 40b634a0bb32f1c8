package sftp

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPacket is returned by DecodeRequest for packet types the
// server does not decode. The request id, when present, is still reported.
var ErrUnsupportedPacket = errors.New("sftp: unsupported packet type")

// Request is a decoded client request that carries a request id. INIT is
// the only request without one and is decoded separately.
type Request interface {
	RequestID() uint32
}

// InitRequest is SSH_FXP_INIT.
type InitRequest struct {
	Version    uint32
	Extensions []Extension
}

// OpenRequest is SSH_FXP_OPEN.
type OpenRequest struct {
	ID       uint32
	Filename string
	PFlags   uint32
	Attrs    Attrs
}

// ReadRequest is SSH_FXP_READ.
type ReadRequest struct {
	ID     uint32
	Handle string
	Offset uint64
	Length uint32
}

// WriteRequest is SSH_FXP_WRITE.
type WriteRequest struct {
	ID     uint32
	Handle string
	Offset uint64
	Data   []byte
}

// HandleRequest carries only a handle: CLOSE, FSTAT and READDIR.
type HandleRequest struct {
	ID     uint32
	Handle string
}

// PathRequest carries only a path: LSTAT, STAT, OPENDIR, REMOVE, RMDIR,
// REALPATH and READLINK.
type PathRequest struct {
	ID   uint32
	Path string
}

// PathAttrsRequest carries a path and attrs: MKDIR and SETSTAT.
type PathAttrsRequest struct {
	ID    uint32
	Path  string
	Attrs Attrs
}

// FsetstatRequest is SSH_FXP_FSETSTAT.
type FsetstatRequest struct {
	ID     uint32
	Handle string
	Attrs  Attrs
}

// RenameRequest is SSH_FXP_RENAME.
type RenameRequest struct {
	ID      uint32
	OldPath string
	NewPath string
}

// SymlinkRequest is SSH_FXP_SYMLINK.
type SymlinkRequest struct {
	ID         uint32
	LinkPath   string
	TargetPath string
}

// ExtendedRequest is SSH_FXP_EXTENDED.
type ExtendedRequest struct {
	ID   uint32
	Name string
	Data []byte
}

func (r *OpenRequest) RequestID() uint32      { return r.ID }
func (r *ReadRequest) RequestID() uint32      { return r.ID }
func (r *WriteRequest) RequestID() uint32     { return r.ID }
func (r *HandleRequest) RequestID() uint32    { return r.ID }
func (r *PathRequest) RequestID() uint32      { return r.ID }
func (r *PathAttrsRequest) RequestID() uint32 { return r.ID }
func (r *FsetstatRequest) RequestID() uint32  { return r.ID }
func (r *RenameRequest) RequestID() uint32    { return r.ID }
func (r *SymlinkRequest) RequestID() uint32   { return r.ID }
func (r *ExtendedRequest) RequestID() uint32  { return r.ID }

// DecodeInit decodes the payload of an SSH_FXP_INIT packet.
func DecodeInit(payload []byte) (*InitRequest, error) {
	r := NewReader(payload)
	req := &InitRequest{Version: r.ReadUint32()}
	for r.Err() == nil && r.Remaining() > 0 {
		req.Extensions = append(req.Extensions, Extension{Name: r.ReadString(), Data: r.ReadString()})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode INIT: %w", err)
	}
	return req, nil
}

// PeekRequestID returns the request id at the start of a payload, if any.
func PeekRequestID(payload []byte) (uint32, bool) {
	r := NewReader(payload)
	id := r.ReadUint32()
	return id, r.Err() == nil
}

// DecodeRequest decodes the payload of any request packet except INIT.
// Unknown or unsupported types yield ErrUnsupportedPacket.
func DecodeRequest(t PacketType, payload []byte) (Request, error) {
	r := NewReader(payload)
	id := r.ReadUint32()

	var req Request
	switch t {
	case PacketOpen:
		req = &OpenRequest{ID: id, Filename: r.ReadString(), PFlags: r.ReadUint32(), Attrs: ReadAttrs(r)}
	case PacketClose, PacketFstat, PacketReaddir:
		req = &HandleRequest{ID: id, Handle: r.ReadString()}
	case PacketRead:
		req = &ReadRequest{ID: id, Handle: r.ReadString(), Offset: r.ReadUint64(), Length: r.ReadUint32()}
	case PacketWrite:
		req = &WriteRequest{ID: id, Handle: r.ReadString(), Offset: r.ReadUint64(), Data: r.ReadBytes()}
	case PacketLstat, PacketStat, PacketOpendir, PacketRemove, PacketRmdir, PacketRealpath, PacketReadlink:
		req = &PathRequest{ID: id, Path: r.ReadString()}
	case PacketMkdir, PacketSetstat:
		req = &PathAttrsRequest{ID: id, Path: r.ReadString(), Attrs: ReadAttrs(r)}
	case PacketFsetstat:
		req = &FsetstatRequest{ID: id, Handle: r.ReadString(), Attrs: ReadAttrs(r)}
	case PacketRename:
		req = &RenameRequest{ID: id, OldPath: r.ReadString(), NewPath: r.ReadString()}
	case PacketSymlink:
		req = &SymlinkRequest{ID: id, LinkPath: r.ReadString(), TargetPath: r.ReadString()}
	case PacketExtended:
		req = &ExtendedRequest{ID: id, Name: r.ReadString(), Data: r.ReadRest()}
	default:
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("decode %s: %w", t, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPacket, t)
	}

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return req, nil
}
