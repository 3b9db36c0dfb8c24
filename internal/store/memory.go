package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/internal/ranking"
)

type entry struct {
	mu   sync.Mutex
	post *models.Post // replaced, never modified in place
}

func (e *entry) load() *models.Post {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.post
}

// Memory keeps posts in process. Each post has its own lock so mutations of
// different posts never wait on each other.
type Memory struct {
	mu    sync.RWMutex
	posts map[string]*entry
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{posts: make(map[string]*entry)}
}

// Create stores a copy of p
func (m *Memory) Create(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[p.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, p.ID)
	}
	stored := p.Clone()
	stored.Version = 1
	m.posts[p.ID] = &entry{post: stored}
	p.Version = stored.Version
	p.ClearChanges()
	return nil
}

// Get returns a copy of the post
func (m *Memory) Get(_ context.Context, id string) (*models.Post, error) {
	e, ok := m.lookup(id)
	if !ok {
		return nil, models.PostNotFound(id)
	}
	return e.load().Clone(), nil
}

// Mutate runs fn under the post's lock. It never reports a conflict.
func (m *Memory) Mutate(_ context.Context, id string, fn MutateFunc) (*models.Post, error) {
	e, ok := m.lookup(id)
	if !ok {
		return nil, models.PostNotFound(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	updated, err := apply(e.post, fn)
	if err != nil {
		return nil, err
	}
	updated.Version = e.post.Version + 1
	updated.ClearChanges()
	e.post = updated
	return updated.Clone(), nil
}

// Rank orders a snapshot of the live posts
func (m *Memory) Rank(_ context.Context, q ranking.Query) (*ranking.Ranked, error) {
	m.mu.RLock()
	snapshot := make([]*models.Post, 0, len(m.posts))
	for _, e := range m.posts {
		snapshot = append(snapshot, e.load())
	}
	m.mu.RUnlock()

	ranked := ranking.Apply(snapshot, q)
	for i, p := range ranked.Posts {
		ranked.Posts[i] = p.Clone()
	}
	return ranked, nil
}

func (m *Memory) lookup(id string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.posts[id]
	return e, ok
}
