package postings

import "sort"

// Set is a set of document identifiers. Iteration order is unspecified.
type Set map[string]struct{}

// NewSet returns a Set holding values.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s Set) Add(value string) {
	s[value] = struct{}{}
}

func (s Set) Contains(value string) bool {
	_, ok := s[value]
	return ok
}

// Intersect returns the values present in both sets. It iterates the smaller
// set and leaves both inputs untouched.
func (s Set) Intersect(other Set) Set {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(Set, len(small))
	for v := range small {
		if _, ok := large[v]; ok {
			out[v] = struct{}{}
		}
	}
	return out
}

// Sorted returns the values in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
