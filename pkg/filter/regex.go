package filter

import "regexp"

// CompilePattern compiles an include or exclude expression. An empty
// expression yields nil, which disables the rule.
func CompilePattern(kind, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &PatternError{Kind: kind, Pattern: expr, Err: err}
	}
	return re, nil
}
