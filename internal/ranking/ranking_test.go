package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/community/internal/models"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type sliceSource struct {
	posts []*models.Post
	calls int
}

func (s *sliceSource) Rank(_ context.Context, q Query) (*Ranked, error) {
	s.calls++
	return Apply(s.posts, q), nil
}

type mapCache struct {
	gen     int64
	entries map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (c *mapCache) Generation(context.Context) (int64, error) { return c.gen, nil }

func (c *mapCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.gen++
	return nil
}

type postOpt func(*models.Post)

func views(n int64) postOpt { return func(p *models.Post) { p.Views = n } }

func age(d time.Duration) postOpt {
	return func(p *models.Post) {
		p.CreatedAt = now.Add(-d)
		p.LastActivity = p.CreatedAt
	}
}

func likes(ids ...string) postOpt { return func(p *models.Post) { p.Likes = models.NewActorSet(ids...) } }

func category(c models.Category) postOpt { return func(p *models.Post) { p.Category = c } }

func tags(t ...string) postOpt { return func(p *models.Post) { p.Tags = t } }

func text(title, content string) postOpt {
	return func(p *models.Post) {
		p.Title = title
		p.Content = content
	}
}

func deleted() postOpt { return func(p *models.Post) { p.IsDeleted = true } }

func post(id string, opts ...postOpt) *models.Post {
	p := &models.Post{
		ID:           id,
		Title:        "title " + id,
		Content:      "content",
		Category:     models.CategoryTech,
		CreatedAt:    now.Add(-time.Hour),
		LastActivity: now.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func ids(posts []*models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func newTestService(posts ...*models.Post) (*Service, *sliceSource) {
	src := &sliceSource{posts: posts}
	return NewService(src, WithClock(func() time.Time { return now })), src
}

func TestList_Popular(t *testing.T) {
	svc, _ := newTestService(
		post("a", views(10)),
		post("b", views(5)),
		post("c", views(20)),
	)

	res, err := svc.List(context.Background(), Filter{}, SortPopular, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids(res.Posts))
}

func TestList_PopularTieBreaks(t *testing.T) {
	svc, _ := newTestService(
		post("old", views(7), likes("x"), age(48*time.Hour)),
		post("liked", views(7), likes("x", "y")),
		post("new", views(7), likes("z"), age(time.Minute)),
	)

	res, err := svc.List(context.Background(), Filter{}, SortPopular, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"liked", "new", "old"}, ids(res.Posts))
}

func TestList_LatestExcludesDeleted(t *testing.T) {
	svc, _ := newTestService(
		post("a", age(3*time.Hour)),
		post("b", age(time.Hour)),
		post("gone", age(time.Minute), deleted()),
		post("c", age(2*time.Hour)),
	)

	res, err := svc.List(context.Background(), Filter{}, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(res.Posts))
	assert.Equal(t, 3, res.Pagination.Total)
}

func TestList_TrendingWindowIsInclusive(t *testing.T) {
	svc, _ := newTestService(
		post("ancient", views(1000), age(8*24*time.Hour)),
		post("edge", views(1), age(TrendingWindow)),
		post("fresh", views(10), age(time.Hour)),
	)

	res, err := svc.List(context.Background(), Filter{}, SortTrending, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh", "edge"}, ids(res.Posts))

	top, err := svc.Trending(context.Background(), 0)
	require.NoError(t, err)
	assert.NotContains(t, ids(top), "ancient")
}

func TestList_TrendingOrdersByViewsThenLikes(t *testing.T) {
	svc, _ := newTestService(
		post("a", views(5), likes("1")),
		post("b", views(5), likes("1", "2")),
		post("c", views(9)),
	)

	top, err := svc.Trending(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids(top))
}

func TestList_Filters(t *testing.T) {
	posts := []*models.Post{
		post("go", text("Learning Go channels", "select and goroutines"), tags("go", "concurrency")),
		post("ai", text("AI tools roundup", "copilot review"), category(models.CategoryAITools), tags("ai")),
		post("cn", text("学习笔记", "今天学习了闭包"), category(models.CategoryLearning), tags("javascript")),
	}

	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{"category", Filter{Category: models.CategoryAITools}, []string{"ai"}},
		{"tags any of", Filter{Tags: []string{"ai", "javascript"}}, []string{"ai", "cn"}},
		{"search whole word in title", Filter{Search: "channels"}, []string{"go"}},
		{"search word in content", Filter{Search: "copilot"}, []string{"ai"}},
		{"search is case insensitive", Filter{Search: "GOROUTINES"}, []string{"go"}},
		{"search matches tag", Filter{Search: "concurrency"}, []string{"go"}},
		{"search cjk", Filter{Search: "闭包"}, []string{"cn"}},
		{"search any term", Filter{Search: "copilot 闭包"}, []string{"ai", "cn"}},
		{"search miss", Filter{Search: "rust"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(posts...)
			res, err := svc.List(context.Background(), tt.filter, SortLatest, 1, 10)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expected, ids(res.Posts))
		})
	}
}

func TestList_Pagination(t *testing.T) {
	var posts []*models.Post
	for i := 0; i < 60; i++ {
		posts = append(posts, post(fmt.Sprintf("p%02d", i), age(time.Duration(i)*time.Minute)))
	}
	svc, _ := newTestService(posts...)

	res, err := svc.List(context.Background(), Filter{}, SortLatest, 2, 25)
	require.NoError(t, err)
	assert.Len(t, res.Posts, 25)
	assert.Equal(t, "p25", res.Posts[0].ID)
	assert.Equal(t, Pagination{Current: 2, Pages: 3, Total: 60, PageSize: 25, HasNext: true, HasPrev: true}, res.Pagination)

	res, err = svc.List(context.Background(), Filter{}, SortLatest, 1, 500)
	require.NoError(t, err)
	assert.Len(t, res.Posts, MaxPageSize, "page size is capped")
	assert.Equal(t, MaxPageSize, res.Pagination.PageSize)

	res, err = svc.List(context.Background(), Filter{}, SortLatest, 4, 20)
	require.NoError(t, err)
	assert.Empty(t, res.Posts)
	assert.False(t, res.Pagination.HasNext)
	assert.True(t, res.Pagination.HasPrev)
}

func TestList_InvalidInput(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name     string
		filter   Filter
		sort     Sort
		page     int
		pageSize int
	}{
		{"page zero", Filter{}, SortLatest, 0, 10},
		{"negative size", Filter{}, SortLatest, 1, -1},
		{"unknown sort", Filter{}, "hot", 1, 10},
		{"unknown category", Filter{Category: "news"}, SortLatest, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.List(context.Background(), tt.filter, tt.sort, tt.page, tt.pageSize)
			assert.True(t, models.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestList_CacheAndInvalidate(t *testing.T) {
	src := &sliceSource{posts: []*models.Post{post("a", views(1))}}
	cache := newMapCache()
	svc := NewService(src, WithCache(cache), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := svc.List(ctx, Filter{}, SortPopular, 1, 10)
	require.NoError(t, err)
	res, err := svc.List(ctx, Filter{}, SortPopular, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "second call served from cache")
	assert.Equal(t, []string{"a"}, ids(res.Posts))

	src.posts = append(src.posts, post("b", views(2)))
	svc.Invalidate(ctx, "b")

	res, err = svc.List(ctx, Filter{}, SortPopular, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, []string{"b", "a"}, ids(res.Posts))
}

func TestList_LateWriteAfterInvalidateIsUnreachable(t *testing.T) {
	src := &sliceSource{posts: []*models.Post{post("a")}}
	cache := newMapCache()
	svc := NewService(src, WithCache(cache), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	// a reader that computed its page before an invalidation writes it afterwards
	key, ok := svc.cacheKey(ctx, listKey(Query{Sort: SortLatest, Limit: 10}))
	require.True(t, ok)
	svc.Invalidate(ctx, "b")
	svc.store(ctx, key, &Result{Posts: []*models.Post{post("stale")}}, time.Time{}, time.Minute)

	res, err := svc.List(ctx, Filter{}, SortLatest, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(res.Posts))
}

func TestTrending_StaleCacheEntryIsIgnored(t *testing.T) {
	clock := now
	src := &sliceSource{posts: []*models.Post{post("a", age(TrendingWindow-time.Minute))}}
	svc := NewService(src, WithCache(newMapCache()), WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	top, err := svc.Trending(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(top))

	clock = now.Add(2 * time.Minute)
	top, err = svc.Trending(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, top)
	assert.Equal(t, 2, src.calls)
}

func TestList_TrendingPageLapsesWhenEarlierPostAgesOut(t *testing.T) {
	clock := now
	src := &sliceSource{posts: []*models.Post{
		post("aging", views(10), age(TrendingWindow-time.Minute)),
		post("fresh", views(5), age(time.Hour)),
	}}
	svc := NewService(src, WithCache(newMapCache()), WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	res, err := svc.List(ctx, Filter{}, SortTrending, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, ids(res.Posts))
	assert.Equal(t, 2, res.Pagination.Total)

	clock = now.Add(30 * time.Second)
	_, err = svc.List(ctx, Filter{}, SortTrending, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "still inside the window, served from cache")

	clock = now.Add(2 * time.Minute)
	res, err = svc.List(ctx, Filter{}, SortTrending, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Empty(t, res.Posts)
	assert.Equal(t, 1, res.Pagination.Total)
	assert.True(t, res.Pagination.HasPrev)
	assert.False(t, res.Pagination.HasNext)
}

func TestApply_ReportsOldestMatch(t *testing.T) {
	ranked := Apply([]*models.Post{
		post("new", age(time.Hour)),
		post("old", age(3*24*time.Hour)),
		post("gone", age(5*24*time.Hour), deleted()),
	}, Query{Sort: SortLatest, Limit: 1})

	assert.Equal(t, 2, ranked.Total)
	assert.Equal(t, []string{"new"}, ids(ranked.Posts))
	assert.Equal(t, now.Add(-3*24*time.Hour), ranked.Oldest)
}
