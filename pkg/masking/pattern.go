package masking

import (
	"fmt"
	"regexp"
)

// Rule is a compiled regex substitution. Rules are shared between policies
// and goroutines and must not be modified after construction.
type Rule struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// CompileRule compiles pattern into a Rule. The replacement is a
// regexp.Expand template: $1 or ${1} refers to a capture group of this
// rule's own match, $$ is a literal dollar sign. A reference followed by
// letters, digits or an underscore must be braced: $1abc names the group
// "1abc" and expands to nothing, so write ${1}abc.
//
// Patterns use RE2 syntax, so matching time is linear in the input length
// regardless of the pattern.
func CompileRule(name, pattern, replacement, description string) (*Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &Rule{
		Name:        name,
		Regex:       re,
		Replacement: replacement,
		Description: description,
	}, nil
}

// MustCompileRule is like CompileRule but panics on an invalid pattern.
func MustCompileRule(name, pattern, replacement, description string) *Rule {
	r, err := CompileRule(name, pattern, replacement, description)
	if err != nil {
		panic(err)
	}
	return r
}

// Pattern returns the source text of the rule's regex.
func (r *Rule) Pattern() string { return r.Regex.String() }

// WithReplacement returns a copy of r using a different replacement
// template. The compiled regex is shared.
func (r *Rule) WithReplacement(replacement string) *Rule {
	out := *r
	out.Replacement = replacement
	return &out
}

// Apply replaces every non-overlapping match of the rule in s, left to right.
func (r *Rule) Apply(s string) string {
	return r.Regex.ReplaceAllString(s, r.Replacement)
}
