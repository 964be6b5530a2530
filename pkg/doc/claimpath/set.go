/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package claimpath

import (
	"golang.org/x/exp/slices"
)

// Set is a set of claim paths keyed by the canonical path key. The nil Set is
// a valid empty set for all read operations; use NewSet before Add.
type Set map[string]Path

// NewSet builds a set from the given paths.
func NewSet(paths ...Path) Set {
	s := make(Set, len(paths))
	for _, p := range paths {
		s.Add(p)
	}

	return s
}

// Add inserts a path. Adding to a nil set panics, as with any nil map.
func (s Set) Add(p Path) {
	s[p.Key()] = p
}

// Contains reports membership.
func (s Set) Contains(p Path) bool {
	_, ok := s[p.Key()]

	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s)
}

// IsEmpty reports whether the set has no members.
func (s Set) IsEmpty() bool {
	return len(s) == 0
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, p := range s {
		out[k] = p
	}

	return out
}

// Union returns a new set with the members of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))

	for k, p := range s {
		out[k] = p
	}

	for k, p := range other {
		out[k] = p
	}

	return out
}

// Intersect returns a new set with the members present in both sets.
func (s Set) Intersect(other Set) Set {
	out := make(Set)

	for k, p := range s {
		if _, ok := other[k]; ok {
			out[k] = p
		}
	}

	return out
}

// Subtract returns a new set with the members of s not present in other.
func (s Set) Subtract(other Set) Set {
	out := make(Set)

	for k, p := range s {
		if _, ok := other[k]; !ok {
			out[k] = p
		}
	}

	return out
}

// SubsetOf reports whether every member of s is in other.
func (s Set) SubsetOf(other Set) bool {
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}

	return true
}

// Equal reports whether both sets have exactly the same members.
func (s Set) Equal(other Set) bool {
	return len(s) == len(other) && s.SubsetOf(other)
}

// Paths returns the members sorted by the path total order. The snapshot is
// independent of the set.
func (s Set) Paths() []Path {
	out := make([]Path, 0, len(s))
	for _, p := range s {
		out = append(out, p)
	}

	slices.SortFunc(out, func(a, b Path) int {
		return a.Compare(b)
	})

	return out
}

// Strings returns the sorted pointer strings of the members.
func (s Set) Strings() []string {
	paths := s.Paths()

	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}

	return out
}
