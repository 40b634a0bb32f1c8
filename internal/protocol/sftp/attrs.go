package sftp

import (
	"io/fs"
	"time"
)

// Unix file type bits carried in the permissions field.
const (
	modeTypeMask  = 0o170000
	modeDir       = 0o040000
	modeRegular   = 0o100000
	modeSymlink   = 0o120000
	modeNamedPipe = 0o010000
	modeSocket    = 0o140000
	modeCharDev   = 0o020000
	modeBlockDev  = 0o060000
	modeSetuid    = 0o4000
	modeSetgid    = 0o2000
	modeSticky    = 0o1000
)

// Attrs is the SFTP v3 ATTRS structure. Only fields whose bit is set in
// Flags are present on the wire.
type Attrs struct {
	Flags       uint32
	Size        uint64
	UID         uint32
	GID         uint32
	Permissions uint32
	Atime       uint32
	Mtime       uint32
	Extended    []Extension
}

// Has reports whether every bit of flag is set.
func (a *Attrs) Has(flag uint32) bool {
	return a != nil && a.Flags&flag == flag
}

// SetSize records the size and sets its flag.
func (a *Attrs) SetSize(size uint64) {
	a.Size = size
	a.Flags |= AttrSize
}

// SetOwner records uid/gid and sets their flag.
func (a *Attrs) SetOwner(uid, gid uint32) {
	a.UID, a.GID = uid, gid
	a.Flags |= AttrUIDGID
}

// SetPermissions records the permission word (type bits included) and
// sets its flag.
func (a *Attrs) SetPermissions(perm uint32) {
	a.Permissions = perm
	a.Flags |= AttrPermissions
}

// SetTimes records access and modification times, truncated to 32-bit
// Unix seconds, and sets their flag.
func (a *Attrs) SetTimes(atime, mtime time.Time) {
	a.Atime = uint32(atime.Unix())
	a.Mtime = uint32(mtime.Unix())
	a.Flags |= AttrACModTime
}

// AccessTime returns Atime as a time.Time.
func (a *Attrs) AccessTime() time.Time { return time.Unix(int64(a.Atime), 0) }

// ModTime returns Mtime as a time.Time.
func (a *Attrs) ModTime() time.Time { return time.Unix(int64(a.Mtime), 0) }

// FileMode converts the permission word to an fs.FileMode.
func (a *Attrs) FileMode() fs.FileMode {
	return ToFileMode(a.Permissions)
}

// ReadAttrs decodes an ATTRS structure.
func ReadAttrs(r *Reader) Attrs {
	var a Attrs
	a.Flags = r.ReadUint32()
	if a.Flags&AttrSize != 0 {
		a.Size = r.ReadUint64()
	}
	if a.Flags&AttrUIDGID != 0 {
		a.UID = r.ReadUint32()
		a.GID = r.ReadUint32()
	}
	if a.Flags&AttrPermissions != 0 {
		a.Permissions = r.ReadUint32()
	}
	if a.Flags&AttrACModTime != 0 {
		a.Atime = r.ReadUint32()
		a.Mtime = r.ReadUint32()
	}
	if a.Flags&AttrExtended != 0 {
		count := r.ReadUint32()
		for i := uint32(0); i < count && r.Err() == nil; i++ {
			a.Extended = append(a.Extended, Extension{Name: r.ReadString(), Data: r.ReadString()})
		}
	}
	return a
}

// WriteAttrs encodes an ATTRS structure.
func WriteAttrs(w *Writer, a Attrs) {
	w.WriteUint32(a.Flags)
	if a.Flags&AttrSize != 0 {
		w.WriteUint64(a.Size)
	}
	if a.Flags&AttrUIDGID != 0 {
		w.WriteUint32(a.UID)
		w.WriteUint32(a.GID)
	}
	if a.Flags&AttrPermissions != 0 {
		w.WriteUint32(a.Permissions)
	}
	if a.Flags&AttrACModTime != 0 {
		w.WriteUint32(a.Atime)
		w.WriteUint32(a.Mtime)
	}
	if a.Flags&AttrExtended != 0 {
		w.WriteUint32(uint32(len(a.Extended)))
		for _, ext := range a.Extended {
			w.WriteString(ext.Name)
			w.WriteString(ext.Data)
		}
	}
}

// FromFileMode converts an fs.FileMode to the Unix permission word used on
// the wire, file type bits included.
func FromFileMode(m fs.FileMode) uint32 {
	perm := uint32(m.Perm())
	switch {
	case m.IsDir():
		perm |= modeDir
	case m&fs.ModeSymlink != 0:
		perm |= modeSymlink
	case m&fs.ModeNamedPipe != 0:
		perm |= modeNamedPipe
	case m&fs.ModeSocket != 0:
		perm |= modeSocket
	case m&fs.ModeDevice != 0 && m&fs.ModeCharDevice != 0:
		perm |= modeCharDev
	case m&fs.ModeDevice != 0:
		perm |= modeBlockDev
	default:
		perm |= modeRegular
	}
	if m&fs.ModeSetuid != 0 {
		perm |= modeSetuid
	}
	if m&fs.ModeSetgid != 0 {
		perm |= modeSetgid
	}
	if m&fs.ModeSticky != 0 {
		perm |= modeSticky
	}
	return perm
}

// ToFileMode converts a wire permission word to an fs.FileMode.
func ToFileMode(perm uint32) fs.FileMode {
	m := fs.FileMode(perm & 0o777)
	switch perm & modeTypeMask {
	case modeDir:
		m |= fs.ModeDir
	case modeSymlink:
		m |= fs.ModeSymlink
	case modeNamedPipe:
		m |= fs.ModeNamedPipe
	case modeSocket:
		m |= fs.ModeSocket
	case modeCharDev:
		m |= fs.ModeDevice | fs.ModeCharDevice
	case modeBlockDev:
		m |= fs.ModeDevice
	}
	if perm&modeSetuid != 0 {
		m |= fs.ModeSetuid
	}
	if perm&modeSetgid != 0 {
		m |= fs.ModeSetgid
	}
	if perm&modeSticky != 0 {
		m |= fs.ModeSticky
	}
	return m
}
