package filter

import (
	"errors"
	"fmt"
)

var errNotText = errors.New("not a text file")

// PatternError reports an include or exclude expression that does not compile.
type PatternError struct {
	Kind    string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Kind, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// IgnoreFileError reports an ignore file that cannot be parsed at all.
type IgnoreFileError struct {
	Path string
	Err  error
}

func (e *IgnoreFileError) Error() string {
	return fmt.Sprintf("malformed ignore file %s: %v", e.Path, e.Err)
}

func (e *IgnoreFileError) Unwrap() error {
	return e.Err
}
