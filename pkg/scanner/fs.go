package scanner

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/sonemaro/arbor/pkg/tree"
)

// SymlinkFs extends afero.Fs with lstat and readlink support.
type SymlinkFs interface {
	afero.Fs
	afero.Lstater
	afero.LinkReader
}

// basicSymlinkFs adapts filesystems without native symlink support.
type basicSymlinkFs struct {
	afero.Fs
}

func asSymlinkFs(fs afero.Fs) SymlinkFs {
	if sf, ok := fs.(SymlinkFs); ok {
		return sf
	}
	return &basicSymlinkFs{Fs: fs}
}

func (fs *basicSymlinkFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	if l, ok := fs.Fs.(afero.Lstater); ok {
		return l.LstatIfPossible(name)
	}
	info, err := fs.Fs.Stat(name)
	return info, false, err
}

func (fs *basicSymlinkFs) ReadlinkIfPossible(name string) (string, error) {
	if r, ok := fs.Fs.(afero.LinkReader); ok {
		return r.ReadlinkIfPossible(name)
	}
	return "", &os.PathError{Op: "readlink", Path: name, Err: fmt.Errorf("symlinks not supported")}
}

func metadataOf(info os.FileInfo) tree.Metadata {
	meta := tree.Metadata{
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
	}
	if id, ok := identityOf(info); ok {
		meta.Dev = id.Dev
		meta.Ino = id.Ino
		meta.Nlink = id.Nlink
		meta.HasIdentity = true
	}
	return meta
}
