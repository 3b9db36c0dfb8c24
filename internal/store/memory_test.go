package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/internal/ranking"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newPost(t *testing.T, title string) *models.Post {
	t.Helper()
	p, err := models.NewPost(models.PostInput{
		Title:    title,
		Content:  "body of " + title,
		Category: models.CategoryTech,
	}, "author", t0)
	require.NoError(t, err)
	return p
}

func TestMemory_CreateGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := newPost(t, "hello")

	require.NoError(t, m.Create(ctx, p))
	assert.ErrorIs(t, m.Create(ctx, p), ErrExists)

	got, err := m.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.EqualValues(t, 1, got.Version)

	got.Title = "changed"
	again, err := m.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Title, "Get returns copies")

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemory_Mutate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := newPost(t, "hello")
	require.NoError(t, m.Create(ctx, p))

	updated, err := m.Mutate(ctx, p.ID, func(p *models.Post) error {
		p.AddReaction(models.ReactionLike, "u1", t0.Add(time.Minute))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.LikeCount())
	assert.EqualValues(t, 2, updated.Version)
	assert.Empty(t, updated.Changes())

	_, err = m.Mutate(ctx, "missing", func(*models.Post) error { return nil })
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemory_MutateAbortsOnError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := newPost(t, "hello")
	require.NoError(t, m.Create(ctx, p))

	boom := errors.New("boom")
	_, err := m.Mutate(ctx, p.ID, func(p *models.Post) error {
		p.AddReaction(models.ReactionLike, "u1", t0)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = m.Mutate(ctx, p.ID, func(p *models.Post) error {
		p.Likes.Add("u2")
		p.Dislikes.Add("u2")
		return nil
	})
	assert.ErrorIs(t, err, models.ErrInvariant)

	got, err := m.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikeCount())
	assert.Equal(t, 0, got.DislikeCount())
	assert.EqualValues(t, 1, got.Version)
}

func TestMemory_ConcurrentMutationsLoseNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := newPost(t, "busy")
	require.NoError(t, m.Create(ctx, p))

	const actors = 100
	var wg sync.WaitGroup
	for i := 0; i < actors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := fmt.Sprintf("u%d", i)
			_, err := m.Mutate(ctx, p.ID, func(p *models.Post) error {
				p.AddReaction(models.ReactionLike, actor, t0)
				p.AddReaction(models.ReactionBookmark, actor, t0)
				p.IncrementViews()
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := m.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, actors, got.LikeCount())
	assert.Equal(t, actors, got.BookmarkCount())
	assert.EqualValues(t, actors, got.Views)
	assert.EqualValues(t, actors+1, got.Version)
}

func TestMemory_Rank(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i, views := range []int64{10, 5, 20} {
		p := newPost(t, fmt.Sprintf("post %d", i))
		p.Views = views
		require.NoError(t, m.Create(ctx, p))
	}
	gone := newPost(t, "deleted")
	gone.Views = 100
	gone.MarkDeleted("author", t0)
	require.NoError(t, m.Create(ctx, gone))

	ranked, err := m.Rank(ctx, ranking.Query{Sort: ranking.SortPopular, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, ranked.Total)
	assert.Equal(t, t0, ranked.Oldest)
	require.Len(t, ranked.Posts, 2)
	assert.EqualValues(t, 20, ranked.Posts[0].Views)
	assert.EqualValues(t, 10, ranked.Posts[1].Views)
}
