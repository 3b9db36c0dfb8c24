package models

import (
	"encoding/json"
	"sort"
)

// ActorSet is a set of actor ids. The zero value is an empty set ready to use.
type ActorSet struct {
	m map[string]struct{}
}

// NewActorSet builds a set holding ids
func NewActorSet(ids ...string) ActorSet {
	s := ActorSet{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Has reports membership of id
func (s ActorSet) Has(id string) bool {
	_, ok := s.m[id]
	return ok
}

// Add inserts id and reports whether the set changed
func (s *ActorSet) Add(id string) bool {
	if s.m == nil {
		s.m = make(map[string]struct{})
	}
	if _, ok := s.m[id]; ok {
		return false
	}
	s.m[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether the set changed
func (s *ActorSet) Remove(id string) bool {
	if _, ok := s.m[id]; !ok {
		return false
	}
	delete(s.m, id)
	return true
}

// Len returns the number of members
func (s ActorSet) Len() int {
	return len(s.m)
}

// Members returns the ids in ascending order
func (s ActorSet) Members() []string {
	out := make([]string, 0, len(s.m))
	for id := range s.m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy
func (s ActorSet) Clone() ActorSet {
	c := ActorSet{m: make(map[string]struct{}, len(s.m))}
	for id := range s.m {
		c.m[id] = struct{}{}
	}
	return c
}

// Overlap returns a member shared by s and o, if any
func (s ActorSet) Overlap(o ActorSet) (string, bool) {
	small, large := s, o
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for id := range small.m {
		if large.Has(id) {
			return id, true
		}
	}
	return "", false
}

// MarshalJSON encodes the set as a sorted array
func (s ActorSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Members())
}

// UnmarshalJSON decodes an array of ids, collapsing duplicates
func (s *ActorSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewActorSet(ids...)
	return nil
}
