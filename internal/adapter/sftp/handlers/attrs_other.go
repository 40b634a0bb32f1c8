//go:build !linux

package handlers

import (
	"errors"
	"os"
)

var errNoOwnerInfo = errors.New("owner information unavailable on this platform")

func statOwner(string, bool) (*ownerInfo, error) { return nil, errNoOwnerInfo }

func fstatOwner(*os.File) (*ownerInfo, error) { return nil, errNoOwnerInfo }
