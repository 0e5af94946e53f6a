/*
Package filter decides which directory entries become part of a scanned tree.

A Filter is immutable and shared by all scanner workers. Per-directory state
(ignore-file rules in effect, whether an ancestor already matched the include
pattern) lives in a Scope, an immutable stack that grows by one frame for each
directory entered. Workers never share a mutable scope, so no locking is
needed.

Rules are applied in this order:

  - depth: entries deeper than MaxDepth are dropped
  - hidden: dot-names are dropped unless ShowHidden; ".git" stays hidden
    unless IncludeGitDir
  - ignore files: last matching pattern wins across the scope stack; a "!"
    pattern re-includes a path, and excluded directories are still descended
    (tentatively) while a negation could re-include something below them
  - exclude regex: matched against the entry name and its root-relative path
  - include regex or glob: files must match; non-matching directories are
    descended tentatively and pruned later when nothing below them matched.
    A negated glob hides what it matches instead
*/
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/sonemaro/arbor/pkg/logger"
)

// Decision is the visibility verdict for one entry.
type Decision int

const (
	// Descend keeps the entry and, for directories, scans its contents.
	Descend Decision = iota
	// Skip drops the entry.
	Skip
	// SkipSubtree drops a directory together with everything below it.
	SkipSubtree
)

func (d Decision) String() string {
	switch d {
	case Descend:
		return "descend"
	case Skip:
		return "skip"
	case SkipSubtree:
		return "skip-subtree"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Verdict is a Decision plus the bookkeeping a directory hands to its scope.
type Verdict struct {
	Decision Decision

	// Tentative directories are kept only if a descendant survives.
	Tentative bool

	// Included is set when the directory itself matched the include pattern,
	// which includes its whole subtree.
	Included bool

	// Ignored is set when an ignore rule excluded the directory but a negated
	// rule may still re-include something below it.
	Ignored bool
}

// DefaultIgnoreFileNames are read in every directory when ignore files are respected.
var DefaultIgnoreFileNames = []string{".gitignore", ".ignore"}

// GitDirName is hidden unless IncludeGitDir is set.
const GitDirName = ".git"

// Unlimited disables the depth rule.
const Unlimited = -1

// Options configures a Filter.
type Options struct {
	MaxDepth           int
	ShowHidden         bool
	IncludeGitDir      bool
	RespectIgnoreFiles bool
	IgnoreFileNames    []string
	Include            *regexp.Regexp
	Exclude            *regexp.Regexp

	// Glob replaces Include when set.
	Glob *Glob
}

// Filter evaluates entries against Options.
type Filter struct {
	opts Options
	log  logger.Logger
}

// New creates a Filter.
func New(opts Options, log logger.Logger) *Filter {
	if opts.RespectIgnoreFiles && len(opts.IgnoreFileNames) == 0 {
		opts.IgnoreFileNames = DefaultIgnoreFileNames
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Filter{opts: opts, log: log}
}

// Options returns the filter configuration.
func (f *Filter) Options() Options {
	return f.opts
}

// IgnoreFileNames lists the per-directory pattern files to load, or nothing
// when ignore files are not respected.
func (f *Filter) IgnoreFileNames() []string {
	if !f.opts.RespectIgnoreFiles {
		return nil
	}
	return f.opts.IgnoreFileNames
}

// IncludeOnly reports whether an include pattern is active, which means the
// tree needs a pruning pass after the walk.
func (f *Filter) IncludeOnly() bool {
	if g := f.opts.Glob; g != nil {
		return !g.Negated()
	}
	return f.opts.Include != nil
}

// CanDescend reports whether entries below a directory at depth could be kept.
func (f *Filter) CanDescend(depth int) bool {
	return f.opts.MaxDepth < 0 || depth < f.opts.MaxDepth
}

// Decide returns the verdict for the entry name at relPath (slash separated,
// relative to the walk root) found at depth inside scope.
func (f *Filter) Decide(scope *Scope, relPath, name string, depth int, isDir bool) Verdict {
	drop := Verdict{Decision: Skip}
	if isDir {
		drop.Decision = SkipSubtree
	}

	if f.opts.MaxDepth >= 0 && depth > f.opts.MaxDepth {
		return drop
	}

	if isDir && name == GitDirName && !f.opts.IncludeGitDir {
		return drop
	}
	if !f.opts.ShowHidden && strings.HasPrefix(name, ".") {
		return drop
	}

	var verdict Verdict
	if f.opts.RespectIgnoreFiles {
		switch scope.match(relPath, isDir) {
		case gitignore.Exclude:
			if !isDir || !scope.hasNegations() {
				f.log.WithFields(logger.Fields{"path": relPath}).Trace("Excluded by ignore file")
				return drop
			}
			verdict.Tentative = true
			verdict.Ignored = true
		}
	}

	if f.opts.Exclude != nil && matchEither(f.opts.Exclude, name, relPath) {
		return drop
	}

	if g := f.opts.Glob; g != nil && g.Negated() && g.Match(relPath, isDir) {
		return drop
	}

	if f.IncludeOnly() && !scope.included {
		if f.includes(name, relPath, isDir) {
			verdict.Included = isDir
		} else if isDir {
			verdict.Tentative = true
		} else {
			return Verdict{Decision: Skip}
		}
	}

	verdict.Decision = Descend
	return verdict
}

func (f *Filter) includes(name, relPath string, isDir bool) bool {
	if g := f.opts.Glob; g != nil {
		return g.Match(relPath, isDir)
	}
	return matchEither(f.opts.Include, name, relPath)
}

func matchEither(re *regexp.Regexp, name, relPath string) bool {
	return re.MatchString(name) || re.MatchString(relPath)
}

// Scope is the immutable per-directory filter state.
type Scope struct {
	parent    *Scope
	rules     []Rule
	negations int
	included  bool
	ignored   bool
}

// RootScope is the scope of the walk root before its ignore files are read.
func RootScope() *Scope {
	return &Scope{}
}

// Push returns the scope for a directory entered with verdict v, carrying
// the rules loaded from that directory's ignore files.
func (s *Scope) Push(rules []Rule, v Verdict) *Scope {
	negations := s.negations
	for _, r := range rules {
		if r.Negated {
			negations++
		}
	}
	return &Scope{
		parent:    s,
		rules:     rules,
		negations: negations,
		included:  s.included || v.Included,
		ignored:   v.Ignored,
	}
}

// Pop returns the enclosing scope.
func (s *Scope) Pop() *Scope {
	if s.parent == nil {
		return s
	}
	return s.parent
}

// Len counts the rules in effect.
func (s *Scope) Len() int {
	n := 0
	for cur := s; cur != nil; cur = cur.parent {
		n += len(cur.rules)
	}
	return n
}

func (s *Scope) hasNegations() bool {
	return s.negations > 0
}

// match walks the stack innermost first and each frame's rules last first,
// which is the same as "last matching pattern wins" over the whole stack.
func (s *Scope) match(relPath string, isDir bool) gitignore.MatchResult {
	parts := strings.Split(relPath, "/")
	for cur := s; cur != nil; cur = cur.parent {
		for i := len(cur.rules) - 1; i >= 0; i-- {
			if res := cur.rules[i].pattern.Match(parts, isDir); res != gitignore.NoMatch {
				return res
			}
		}
	}
	if s.ignored {
		return gitignore.Exclude
	}
	return gitignore.NoMatch
}
