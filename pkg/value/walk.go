package value

// DefaultMaxDepth bounds how deep Transform descends into nested lists and
// maps. Deeper subtrees are returned unchanged.
const DefaultMaxDepth = 64

// Walker rewrites the string leaves of a value tree.
type Walker struct {
	// MaxDepth is the number of container levels Transform descends into.
	// Zero means DefaultMaxDepth.
	MaxDepth int

	// OnDepthExceeded, if set, is called once for every container that was
	// left unvisited because it sits below MaxDepth.
	OnDepthExceeded func()
}

// Transform applies visit to every string leaf of v and returns the
// resulting tree. Null, boolean and numeric leaves pass through. Lists keep
// their length and order, maps keep their key set and key order.
//
// Containers in which visit changed nothing are returned as-is, so the
// result shares storage with v for every untouched subtree.
func (w Walker) Transform(v Value, visit func(string) string) Value {
	maxDepth := w.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	out, _ := w.transform(v, visit, 0, maxDepth)
	return out
}

// TransformMap is Transform for a map root.
func (w Walker) TransformMap(m *Map, visit func(string) string) *Map {
	if m == nil {
		return nil
	}
	out, _ := w.Transform(MapValue(m), visit).AsMap()
	return out
}

func (w Walker) transform(v Value, visit func(string) string, depth, maxDepth int) (Value, bool) {
	switch v.kind {
	case KindString:
		s := visit(v.s)
		if s == v.s {
			return v, false
		}
		return StringValue(s), true

	case KindList:
		if depth >= maxDepth {
			w.depthExceeded()
			return v, false
		}
		var out []Value
		for i, item := range v.list {
			next, changed := w.transform(item, visit, depth+1, maxDepth)
			if changed && out == nil {
				out = make([]Value, len(v.list))
				copy(out, v.list[:i])
			}
			if out != nil {
				out[i] = next
			}
		}
		if out == nil {
			return v, false
		}
		return ListValue(out...), true

	case KindMap:
		if depth >= maxDepth {
			w.depthExceeded()
			return v, false
		}
		var values []Value
		for i, e := range v.m.Entries() {
			next, changed := w.transform(e.Value, visit, depth+1, maxDepth)
			if changed && values == nil {
				values = make([]Value, len(v.m.entries))
				for j := 0; j < i; j++ {
					values[j] = v.m.entries[j].Value
				}
			}
			if values != nil {
				values[i] = next
			}
		}
		if values == nil {
			return v, false
		}
		return MapValue(v.m.withValues(values)), true
	}

	return v, false
}

func (w Walker) depthExceeded() {
	if w.OnDepthExceeded != nil {
		w.OnDepthExceeded()
	}
}

// Transform applies visit to every string leaf of v using a default Walker.
func Transform(v Value, visit func(string) string) Value {
	return Walker{}.Transform(v, visit)
}
