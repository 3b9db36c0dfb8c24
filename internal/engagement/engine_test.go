package engagement

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/internal/store"
)

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func actor(id string) models.Actor { return models.Actor{ID: id, Role: models.RoleUser} }

func setup(t *testing.T) (*Engine, store.Store, string) {
	t.Helper()
	s := store.NewMemory()
	p, err := models.NewPost(models.PostInput{Title: "A", Content: "body", Category: models.CategoryTech}, "author", t0)
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), p))

	now := t0
	e := NewEngine(s, func() time.Time {
		now = now.Add(time.Second)
		return now
	})
	return e, s, p.ID
}

func TestToggleLike_LikeThenDislikeScenario(t *testing.T) {
	e, _, id := setup(t)
	ctx := context.Background()

	res, err := e.ToggleLike(ctx, actor("actor1"), id)
	require.NoError(t, err)
	assert.Equal(t, &Result{Active: true, LikeCount: 1, Score: 1}, res)

	res, err = e.ToggleLike(ctx, actor("actor2"), id)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LikeCount)

	res, err = e.ToggleDislike(ctx, actor("actor1"), id)
	require.NoError(t, err)
	assert.True(t, res.Active)
	assert.Equal(t, 1, res.LikeCount)
	assert.Equal(t, 1, res.DislikeCount)
	assert.Equal(t, 0, res.Score)
}

func TestToggle_DoubleToggleRoundTrips(t *testing.T) {
	kinds := []models.ReactionKind{models.ReactionLike, models.ReactionDislike, models.ReactionBookmark}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			e, s, id := setup(t)
			ctx := context.Background()
			before, err := s.Get(ctx, id)
			require.NoError(t, err)

			first, err := e.toggle(ctx, actor("u1"), id, kind)
			require.NoError(t, err)
			assert.True(t, first.Active)

			second, err := e.toggle(ctx, actor("u1"), id, kind)
			require.NoError(t, err)
			assert.False(t, second.Active)

			after, err := s.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, before.Likes.Members(), after.Likes.Members())
			assert.Equal(t, before.Dislikes.Members(), after.Dislikes.Members())
			assert.Equal(t, before.Bookmarks.Members(), after.Bookmarks.Members())
		})
	}
}

func TestToggle_Activity(t *testing.T) {
	e, s, id := setup(t)
	ctx := context.Background()

	_, err := e.ToggleBookmark(ctx, actor("u1"), id)
	require.NoError(t, err)
	p, _ := s.Get(ctx, id)
	assert.Equal(t, t0, p.LastActivity, "bookmarks are not activity")
	assert.True(t, p.UpdatedAt.After(t0))

	_, err = e.ToggleDislike(ctx, actor("u1"), id)
	require.NoError(t, err)
	p, _ = s.Get(ctx, id)
	assert.True(t, p.LastActivity.After(t0))
	assert.Equal(t, 1, p.BookmarkCount(), "bookmark is independent of dislike")
}

func TestToggle_Errors(t *testing.T) {
	e, s, id := setup(t)
	ctx := context.Background()

	_, err := e.ToggleLike(ctx, models.Actor{}, id)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = e.ToggleLike(ctx, actor("u1"), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.Mutate(ctx, id, func(p *models.Post) error {
		p.MarkDeleted("author", t0)
		return nil
	})
	require.NoError(t, err)
	_, err = e.ToggleLike(ctx, actor("u1"), id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestToggle_MutualExclusionUnderConcurrency(t *testing.T) {
	e, s, id := setup(t)
	ctx := context.Background()

	const actors = 50
	var wg sync.WaitGroup
	for i := 0; i < actors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := actor(fmt.Sprintf("u%d", i))
			// odd actors end on dislike, even actors on like
			_, _ = e.ToggleLike(ctx, a, id)
			if i%2 == 1 {
				_, _ = e.ToggleDislike(ctx, a, id)
			}
		}(i)
	}
	wg.Wait()

	p, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, actors/2, p.LikeCount())
	assert.Equal(t, actors/2, p.DislikeCount())
	_, overlap := p.Likes.Overlap(p.Dislikes)
	assert.False(t, overlap)
	assert.NoError(t, p.CheckInvariants())
}

func TestToggle_Pure(t *testing.T) {
	p := &models.Post{ID: "p", CreatedAt: t0, LastActivity: t0}

	assert.True(t, Toggle(p, models.ReactionDislike, "u", t0))
	assert.True(t, Toggle(p, models.ReactionLike, "u", t0))
	assert.True(t, p.Likes.Has("u"))
	assert.False(t, p.Dislikes.Has("u"))
	assert.False(t, Toggle(p, models.ReactionLike, "u", t0))
	assert.Equal(t, 0, p.LikeCount())
}
