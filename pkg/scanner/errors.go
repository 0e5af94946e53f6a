package scanner

import "fmt"

// RootError reports a root path that cannot be scanned at all. It is fatal
// and aborts the run before any output.
type RootError struct {
	Path string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("cannot scan %s: %v", e.Path, e.Err)
}

func (e *RootError) Unwrap() error {
	return e.Err
}

// EntryError is attached to ErrorMarker nodes: an entry that vanished, could
// not be read, or whose symlink target could not be resolved.
type EntryError struct {
	Path string
	Op   string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
