//go:build windows

package scanner

import (
	"os"

	"github.com/sonemaro/arbor/pkg/tree"
)

// FileInfo on windows carries no inode; hardlinks are not deduplicated.
func identityOf(info os.FileInfo) (tree.Identity, bool) {
	if id, ok := info.Sys().(tree.Identity); ok {
		return id, true
	}
	return tree.Identity{}, false
}
