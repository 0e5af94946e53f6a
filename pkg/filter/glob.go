package filter

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Glob is an include pattern written as a gitignore-style glob instead of a
// regex. It is matched against the root-relative path: a pattern without a
// slash matches any path component, "**" spans directories and a trailing
// slash only matches directories. A leading "!" inverts it, so matching
// entries are hidden instead of kept.
type Glob struct {
	expr    string
	fold    bool
	negated bool
	pattern gitignore.Pattern
}

// CompileGlob parses expr. With caseInsensitive both the pattern and the
// paths it is matched against are lower-cased. An empty expression yields
// nil, which disables the rule.
func CompileGlob(expr string, caseInsensitive bool) (*Glob, error) {
	if expr == "" {
		return nil, nil
	}
	src := expr
	if caseInsensitive {
		src = strings.ToLower(src)
	}

	body := strings.TrimSuffix(strings.TrimPrefix(src, "!"), "/")
	if body == "" {
		return nil, &PatternError{Kind: "glob", Pattern: expr, Err: filepath.ErrBadPattern}
	}
	for _, segment := range strings.Split(strings.TrimPrefix(body, "/"), "/") {
		if segment == "**" {
			continue
		}
		if _, err := filepath.Match(segment, ""); err != nil {
			return nil, &PatternError{Kind: "glob", Pattern: expr, Err: err}
		}
	}

	return &Glob{
		expr:    expr,
		fold:    caseInsensitive,
		negated: strings.HasPrefix(src, "!"),
		pattern: gitignore.ParsePattern(src, nil),
	}, nil
}

// String returns the pattern as written.
func (g *Glob) String() string {
	return g.expr
}

// Negated reports whether the pattern hides what it matches.
func (g *Glob) Negated() bool {
	return g.negated
}

// Match reports whether relPath (slash separated) matches, ignoring the
// leading "!".
func (g *Glob) Match(relPath string, isDir bool) bool {
	if g.fold {
		relPath = strings.ToLower(relPath)
	}
	return g.pattern.Match(strings.Split(relPath, "/"), isDir) != gitignore.NoMatch
}
