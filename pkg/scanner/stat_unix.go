//go:build !windows

package scanner

import (
	"os"
	"syscall"

	"github.com/sonemaro/arbor/pkg/tree"
)

func identityOf(info os.FileInfo) (tree.Identity, bool) {
	switch sys := info.Sys().(type) {
	case *syscall.Stat_t:
		return tree.Identity{
			Dev:   uint64(sys.Dev),
			Ino:   uint64(sys.Ino),
			Nlink: uint64(sys.Nlink),
		}, true
	case tree.Identity:
		return sys, true
	}
	return tree.Identity{}, false
}
