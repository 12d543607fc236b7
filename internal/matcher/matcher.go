// Package matcher matches case fields against glob or regex patterns.
package matcher

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// PatternType is the syntax of a pattern.
type PatternType int

const (
	// Glob uses shell-style patterns (*, ?, []).
	Glob PatternType = iota
	// Regex uses regular expressions.
	Regex
	// Auto detects the syntax from the pattern.
	Auto
)

// String returns the name of the pattern type.
func (pt PatternType) String() string {
	switch pt {
	case Glob:
		return "glob"
	case Regex:
		return "regex"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// Matcher reports whether a value matches a pattern.
type Matcher interface {
	Match(input string) bool
	Pattern() string
	Type() PatternType
}

// Options configures matching.
type Options struct {
	// CaseInsensitive ignores case for both syntaxes.
	CaseInsensitive bool
	// Anchored wraps regex patterns in ^ and $ when missing.
	Anchored bool
}

type matcher struct {
	pattern     string
	patternType PatternType
	glob        string
	re          *regexp.Regexp
	fold        bool
}

// New compiles pattern. A nil opts uses case-sensitive, unanchored matching.
func New(patternType PatternType, pattern string, opts *Options) (Matcher, error) {
	if opts == nil {
		opts = &Options{}
	}
	if patternType == Auto {
		patternType = detect(pattern)
	}

	m := &matcher{pattern: pattern, patternType: patternType, fold: opts.CaseInsensitive}
	switch patternType {
	case Glob:
		m.glob = pattern
		if m.fold {
			m.glob = strings.ToLower(pattern)
		}
		if _, err := path.Match(m.glob, ""); err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
	case Regex:
		expr := pattern
		if opts.Anchored {
			if !strings.HasPrefix(expr, "^") {
				expr = "^" + expr
			}
			if !strings.HasSuffix(expr, "$") {
				expr += "$"
			}
		}
		if m.fold && !strings.HasPrefix(expr, "(?i)") {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		m.re = re
	default:
		return nil, fmt.Errorf("unsupported pattern type %v", patternType)
	}
	return m, nil
}

func (m *matcher) Match(input string) bool {
	if m.re != nil {
		return m.re.MatchString(input)
	}
	if m.fold {
		input = strings.ToLower(input)
	}
	ok, _ := path.Match(m.glob, input)
	return ok
}

func (m *matcher) Pattern() string { return m.pattern }

func (m *matcher) Type() PatternType { return m.patternType }

// detect treats a pattern with regex-only syntax as a regex and anything
// else as a glob.
func detect(pattern string) PatternType {
	for _, indicator := range []string{
		"^", "$", `\d`, `\w`, `\s`, "(?", "{", "}", "+", "|", "(", ")",
	} {
		if strings.Contains(pattern, indicator) {
			return Regex
		}
	}
	return Glob
}

// Set matches when any of its matchers does. An empty Set matches
// everything.
type Set []Matcher

// NewSet compiles each comma-separated pattern in list with Auto
// detection. Blank entries are skipped.
func NewSet(list string, opts *Options) (Set, error) {
	var set Set
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		m, err := New(Auto, p, opts)
		if err != nil {
			return nil, err
		}
		set = append(set, m)
	}
	return set, nil
}

// Match reports whether input matches any pattern in s.
func (s Set) Match(input string) bool {
	if len(s) == 0 {
		return true
	}
	for _, m := range s {
		if m.Match(input) {
			return true
		}
	}
	return false
}
