package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process listing cache bounded by entry count.
// Values are stored encoded so callers never share decoded posts.
type Memory struct {
	entries    *lru.Cache[string, memoryEntry]
	generation atomic.Int64
	now        func() time.Time
}

// NewMemory creates a cache holding at most size listings
func NewMemory(size int) (*Memory, error) {
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &Memory{entries: entries, now: time.Now}, nil
}

// Generation returns the current listing generation
func (m *Memory) Generation(context.Context) (int64, error) {
	return m.generation.Load(), nil
}

// Invalidate advances the generation and drops every stored listing
func (m *Memory) Invalidate(context.Context) error {
	m.generation.Add(1)
	m.entries.Purge()
	return nil
}

// Get decodes the listing stored under key into dst
func (m *Memory) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	e, ok := m.entries.Get(key)
	if !ok {
		return false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.entries.Remove(key)
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key for ttl; zero ttl never expires
func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	e := memoryEntry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries.Add(key, e)
	return nil
}

// Len reports the number of stored listings
func (m *Memory) Len() int {
	return m.entries.Len()
}
