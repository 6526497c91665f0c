package masking

import (
	"github.com/codeready-toolchain/logmask/pkg/value"
)

// PatternMasker rewrites string content matched by an ordered list of rules.
// It never adds or removes map keys or list elements.
type PatternMasker struct {
	rules    []*Rule
	deepScan bool
	maxDepth int
	observer Observer
}

// NewPatternMasker returns a masker applying rules in order. With deepScan
// set, every string leaf of a map is scanned; otherwise only the top-level
// string values are. maxDepth <= 0 selects value.DefaultMaxDepth.
func NewPatternMasker(rules []*Rule, deepScan bool, maxDepth int, obs Observer) *PatternMasker {
	return &PatternMasker{
		rules:    rules,
		deepScan: deepScan,
		maxDepth: maxDepth,
		observer: observerOrNop(obs),
	}
}

// MaskString applies each rule in turn to s. A rule that panics is skipped
// and reported; the remaining rules still run.
func (p *PatternMasker) MaskString(field, s string) string {
	for _, r := range p.rules {
		s = Guard(p.observer, field, r.Name, s, func() string { return r.Apply(s) })
	}
	return s
}

// MaskMap scans the string values of m. Untouched subtrees are shared with
// the input.
func (p *PatternMasker) MaskMap(field string, m *value.Map) *value.Map {
	if len(p.rules) == 0 || m.Len() == 0 {
		return m
	}
	w := value.Walker{MaxDepth: p.maxDepth}
	if p.deepScan {
		w.OnDepthExceeded = func() {
			p.observer.Observe(Anomaly{
				Kind:   AnomalyDepthExceeded,
				Field:  field,
				Detail: "nested value left unscanned",
			})
		}
	} else {
		// The root map is the only container visited.
		w.MaxDepth = 1
	}
	return w.TransformMap(m, func(s string) string { return p.MaskString(field, s) })
}

// PathMasker replaces whole fields addressed by dotted paths with a fixed
// mask value.
type PathMasker struct {
	paths     []Path
	maskValue value.Value
	observer  Observer
}

// NewPathMasker returns a masker for paths.
func NewPathMasker(paths []Path, maskValue string, obs Observer) *PathMasker {
	return &PathMasker{
		paths:     paths,
		maskValue: value.StringValue(maskValue),
		observer:  observerOrNop(obs),
	}
}

// MaskMap applies every path to m independently. A path whose key is missing
// is a no-op. A path that runs into a list or scalar before its last segment
// is a no-op reported as AnomalyUnreachablePath. Only the maps along a
// masked path are copied.
func (p *PathMasker) MaskMap(field string, m *value.Map) *value.Map {
	for _, path := range p.paths {
		m = Guard(p.observer, field, path.raw, m, func() *value.Map {
			out, unreachableAt := maskPath(m, path.segments, p.maskValue)
			if unreachableAt >= 0 {
				p.observer.Observe(Anomaly{
					Kind:   AnomalyUnreachablePath,
					Field:  field,
					Rule:   path.raw,
					Detail: "segment " + path.segments[unreachableAt] + " is not a map",
				})
			}
			return out
		})
	}
	return m
}

// maskPath returns m with the key at segs replaced by mask. The second
// result is the index of the segment whose value was not a map, or -1.
func maskPath(m *value.Map, segs []string, mask value.Value) (*value.Map, int) {
	v, ok := m.Get(segs[0])
	if !ok {
		return m, -1
	}
	if len(segs) == 1 {
		return m.With(segs[0], mask), -1
	}
	child, ok := v.AsMap()
	if !ok {
		return m, 0
	}
	next, at := maskPath(child, segs[1:], mask)
	if at >= 0 {
		at++
	}
	if next == child {
		return m, at
	}
	return m.With(segs[0], value.MapValue(next)), at
}
