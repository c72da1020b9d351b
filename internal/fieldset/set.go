// Package fieldset accumulates field names across pages.
package fieldset

import "sort"

// Set is a deduplicated collection of field names. Membership is exact,
// case-sensitive string equality. It is owned by a single pipeline run and
// is not safe for concurrent mutation.
type Set struct {
	names map[string]struct{}
}

// New creates an empty set
func New() *Set {
	return &Set{names: make(map[string]struct{})}
}

// Add unions names into the set and returns how many were new. Empty
// strings are ignored.
func (s *Set) Add(names ...string) int {
	added := 0
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := s.names[name]; ok {
			continue
		}
		s.names[name] = struct{}{}
		added++
	}
	return added
}

// Contains reports whether name is in the set
func (s *Set) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of distinct names
func (s *Set) Len() int {
	return len(s.names)
}

// Finalize returns the names in lexicographic order. The returned slice is a
// fresh copy; the set itself is left unchanged.
func (s *Set) Finalize() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
