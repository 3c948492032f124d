package domain

import (
	"slices"

	"github.com/bwmarrin/snowflake"
)

// IDSet is a set of record identifiers. The zero value is not usable; use
// NewIDSet.
type IDSet map[snowflake.ID]struct{}

func NewIDSet(ids ...snowflake.ID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was absent.
func (s IDSet) Add(id snowflake.ID) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s IDSet) Has(id snowflake.ID) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

// Slice returns the members in ascending order.
func (s IDSet) Slice() []snowflake.ID {
	out := make([]snowflake.ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
