//go:build linux

package handlers

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func statOwner(path string, lstat bool) (*ownerInfo, error) {
	var st unix.Stat_t
	var err error
	if lstat {
		err = unix.Lstat(path, &st)
	} else {
		err = unix.Stat(path, &st)
	}
	if err != nil {
		return nil, err
	}
	return ownerFromStat(&st), nil
}

func fstatOwner(f *os.File) (*ownerInfo, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return nil, err
	}
	return ownerFromStat(&st), nil
}

func ownerFromStat(st *unix.Stat_t) *ownerInfo {
	return &ownerInfo{
		uid:   st.Uid,
		gid:   st.Gid,
		nlink: uint64(st.Nlink),
		atime: time.Unix(st.Atim.Unix()),
	}
}
