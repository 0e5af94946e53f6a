package filter

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/spf13/afero"

	"github.com/sonemaro/arbor/pkg/logger"
)

// Rule is one parsed line of an ignore file.
type Rule struct {
	pattern gitignore.Pattern

	// Negated rules start with "!" and re-include what they match.
	Negated bool

	// Source is "file:line" for diagnostics.
	Source string
}

// ParseRule parses a single ignore-file line. domain is the slash-separated
// directory, relative to the walk root, that holds the ignore file. It
// returns ok=false for blank lines and comments.
func ParseRule(line, domain, source string) (Rule, bool, error) {
	line = trimTrailingSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Rule{}, false, nil
	}
	if err := validateGlob(line); err != nil {
		return Rule{}, false, err
	}

	var dom []string
	if domain != "" && domain != "." {
		dom = strings.Split(domain, "/")
	}
	return Rule{
		pattern: gitignore.ParsePattern(line, dom),
		Negated: strings.HasPrefix(line, "!"),
		Source:  source,
	}, true, nil
}

// trimTrailingSpace drops unescaped trailing spaces and tabs.
func trimTrailingSpace(line string) string {
	trimmed := strings.TrimRight(line, " \t")
	if strings.HasSuffix(trimmed, `\`) && len(trimmed) < len(line) {
		return trimmed + " "
	}
	return trimmed
}

func validateGlob(line string) error {
	body := strings.TrimPrefix(line, "!")
	body = strings.Trim(body, "/")
	for _, segment := range strings.Split(body, "/") {
		if segment == "**" || segment == "" {
			continue
		}
		if _, err := path.Match(segment, ""); err != nil {
			return fmt.Errorf("bad pattern %q: %w", line, err)
		}
	}
	return nil
}

// LoadRules reads every configured ignore file in dir. rel is dir relative
// to the walk root in slash form. Missing or unreadable files contribute no
// rules; unreadable files and bad patterns are logged. A file that is not
// text cannot be parsed at all and yields an *IgnoreFileError.
func (f *Filter) LoadRules(fsys afero.Fs, dir, rel string) ([]Rule, error) {
	var rules []Rule
	for _, name := range f.IgnoreFileNames() {
		fileRules, err := f.loadFile(fsys, filepath.Join(dir, name), rel)
		if err != nil {
			return nil, err
		}
		rules = append(rules, fileRules...)
	}
	return rules, nil
}

func (f *Filter) loadFile(fsys afero.Fs, file, rel string) ([]Rule, error) {
	data, err := afero.ReadFile(fsys, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		f.log.WithFields(logger.Fields{
			"path":  file,
			"error": err,
		}).Warn("Ignore file unreadable")
		return nil, nil
	}

	if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
		return nil, &IgnoreFileError{Path: file, Err: errNotText}
	}

	var rules []Rule
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		source := fmt.Sprintf("%s:%d", file, lineNo)
		rule, ok, err := ParseRule(scanner.Text(), rel, source)
		if err != nil {
			f.log.WithFields(logger.Fields{
				"source": source,
				"error":  err,
			}).Warn("Skipping ignore pattern")
			continue
		}
		if ok {
			rules = append(rules, rule)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &IgnoreFileError{Path: file, Err: err}
	}

	f.log.WithFields(logger.Fields{
		"path":  file,
		"rules": len(rules),
	}).Debug("Loaded ignore file")
	return rules, nil
}
