package masking

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidPath is returned by ParsePath for an empty path or one with an
// empty segment.
var ErrInvalidPath = errors.New("invalid sensitive path")

// Path is a parsed dotted key sequence such as "user.email".
type Path struct {
	raw      string
	segments []string
}

// ParsePath splits a dotted path into segments. Every segment must be
// non-empty: "", ".a", "a..b" and "a." are rejected.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segments := strings.Split(s, ".")
	for i, seg := range segments {
		if seg == "" {
			return Path{}, fmt.Errorf("%w: %q has an empty segment at position %d", ErrInvalidPath, s, i)
		}
	}
	return Path{raw: s, segments: segments}, nil
}

// MustParsePath is like ParsePath but panics on an invalid path.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the dotted form.
func (p Path) String() string { return p.raw }

// Segments returns a copy of the path segments.
func (p Path) Segments() []string { return slices.Clone(p.segments) }

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segments) }
