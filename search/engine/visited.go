package engine

// VisitedSet is the closed set of expanded (position, heading, run) keys.
// Popped states whose key is already present are discarded instead of
// being re-expanded, which stands in for a decrease-key operation.
type VisitedSet struct {
	keys map[StateKey]struct{}
}

// NewVisitedSet creates an empty closed set
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{keys: make(map[StateKey]struct{})}
}

// Contains reports whether k has been expanded
func (v *VisitedSet) Contains(k StateKey) bool {
	_, ok := v.keys[k]
	return ok
}

// Visit marks k expanded and reports whether it was new
func (v *VisitedSet) Visit(k StateKey) bool {
	if _, ok := v.keys[k]; ok {
		return false
	}
	v.keys[k] = struct{}{}
	return true
}

// Len returns the number of expanded keys
func (v *VisitedSet) Len() int { return len(v.keys) }
