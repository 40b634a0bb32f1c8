package handlers

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// ownerInfo is the part of a stat result fs.FileInfo does not expose
// portably. Filled by platform specific helpers.
type ownerInfo struct {
	uid, gid uint32
	nlink    uint64
	atime    time.Time
}

// buildAttrs converts a FileInfo (plus owner details when available) into
// SFTP attributes. Timestamps are truncated to 32-bit Unix seconds.
func buildAttrs(info fs.FileInfo, owner *ownerInfo) sftp.Attrs {
	var a sftp.Attrs
	a.SetSize(uint64(info.Size()))
	a.SetPermissions(sftp.FromFileMode(info.Mode()))

	atime := info.ModTime()
	if owner != nil {
		a.SetOwner(owner.uid, owner.gid)
		if !owner.atime.IsZero() {
			atime = owner.atime
		}
	}
	a.SetTimes(atime, info.ModTime())
	return a
}

// pathAttrs stats path without following a final symlink when lstat is set.
func pathAttrs(path string, lstat bool) (sftp.Attrs, fs.FileInfo, error) {
	var (
		info fs.FileInfo
		err  error
	)
	if lstat {
		info, err = os.Lstat(path)
	} else {
		info, err = os.Stat(path)
	}
	if err != nil {
		return sftp.Attrs{}, nil, err
	}
	owner, _ := statOwner(path, lstat)
	return buildAttrs(info, owner), info, nil
}

// fileAttrs stats an open file.
func fileAttrs(f *os.File) (sftp.Attrs, error) {
	info, err := f.Stat()
	if err != nil {
		return sftp.Attrs{}, err
	}
	owner, _ := fstatOwner(f)
	return buildAttrs(info, owner), nil
}

// dirEntry builds the NAME entry for one directory member.
func dirEntry(dir string, entry fs.DirEntry) (sftp.NameEntry, error) {
	info, err := entry.Info()
	if err != nil {
		return sftp.NameEntry{}, err
	}
	owner, _ := statOwner(filepath.Join(dir, entry.Name()), true)
	attrs := buildAttrs(info, owner)
	return sftp.NameEntry{
		Filename: entry.Name(),
		Longname: longName(entry.Name(), info, owner),
		Attrs:    attrs,
	}, nil
}

// longName renders an `ls -l` style line, the format SFTP v3 clients
// display verbatim:
//
//	-rw-r--r--    1 1000     1000         1024 Jan  2 15:04 name
func longName(name string, info fs.FileInfo, owner *ownerInfo) string {
	var (
		nlink    uint64 = 1
		uid, gid string = "0", "0"
	)
	if owner != nil {
		if owner.nlink > 0 {
			nlink = owner.nlink
		}
		uid = strconv.FormatUint(uint64(owner.uid), 10)
		gid = strconv.FormatUint(uint64(owner.gid), 10)
	}

	mtime := info.ModTime()
	stamp := mtime.Format("Jan _2 15:04")
	if time.Since(mtime) > 180*24*time.Hour || mtime.After(time.Now().Add(time.Hour)) {
		stamp = mtime.Format("Jan _2  2006")
	}

	return fmt.Sprintf("%s %4d %-8s %-8s %8d %s %s",
		modeString(info.Mode()), nlink, uid, gid, info.Size(), stamp, name)
}

// modeString formats a mode the way ls does; fs.FileMode.String uses
// different type letters.
func modeString(m fs.FileMode) string {
	var b [10]byte
	switch {
	case m.IsDir():
		b[0] = 'd'
	case m&fs.ModeSymlink != 0:
		b[0] = 'l'
	case m&fs.ModeNamedPipe != 0:
		b[0] = 'p'
	case m&fs.ModeSocket != 0:
		b[0] = 's'
	case m&fs.ModeCharDevice != 0:
		b[0] = 'c'
	case m&fs.ModeDevice != 0:
		b[0] = 'b'
	default:
		b[0] = '-'
	}

	const rwx = "rwxrwxrwx"
	for i := 0; i < 9; i++ {
		if m&(1<<uint(8-i)) != 0 {
			b[i+1] = rwx[i]
		} else {
			b[i+1] = '-'
		}
	}

	if m&fs.ModeSetuid != 0 {
		b[3] = special(b[3], 's')
	}
	if m&fs.ModeSetgid != 0 {
		b[6] = special(b[6], 's')
	}
	if m&fs.ModeSticky != 0 {
		b[9] = special(b[9], 't')
	}
	return string(b[:])
}

func special(current, letter byte) byte {
	if current == '-' {
		return letter - 'a' + 'A'
	}
	return letter
}
