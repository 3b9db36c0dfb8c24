package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorSet_AddRemove(t *testing.T) {
	var s ActorSet

	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"), "second add must not change the set")
	assert.True(t, s.Has("a"))
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, 0, s.Len())
}

func TestActorSet_Overlap(t *testing.T) {
	tests := []struct {
		name   string
		a, b   ActorSet
		wantID string
		want   bool
	}{
		{"disjoint", NewActorSet("a", "b"), NewActorSet("c"), "", false},
		{"shared", NewActorSet("a", "b"), NewActorSet("b", "c", "d"), "b", true},
		{"empty", ActorSet{}, NewActorSet("a"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tt.a.Overlap(tt.b)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestActorSet_JSON(t *testing.T) {
	data, err := json.Marshal(NewActorSet("b", "a"))
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))

	var s ActorSet
	require.NoError(t, json.Unmarshal([]byte(`["x","x","y"]`), &s))
	assert.Equal(t, []string{"x", "y"}, s.Members())
}

func TestActorSet_CloneIsIndependent(t *testing.T) {
	s := NewActorSet("a")
	c := s.Clone()
	c.Add("b")

	assert.False(t, s.Has("b"))
	assert.True(t, c.Has("a"))
}
