// Package ranking orders and pages community posts.
package ranking

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/learnhub/community/internal/models"
)

// Sort is a listing order
type Sort string

// Listing orders
const (
	SortLatest   Sort = "latest"
	SortPopular  Sort = "popular"
	SortTrending Sort = "trending"
)

// Valid reports whether s is a known order
func (s Sort) Valid() bool {
	return s == SortLatest || s == SortPopular || s == SortTrending
}

const (
	// TrendingWindow bounds trending listings to recently created posts
	TrendingWindow = 7 * 24 * time.Hour
	// MaxPageSize caps every page request
	MaxPageSize = 50
	// DefaultPageSize applies when the caller gives none
	DefaultPageSize = 20
	// DefaultTrendingLimit is the size of the trending list
	DefaultTrendingLimit = 10
)

// Filter narrows a listing
type Filter struct {
	Category models.Category `json:"category,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
	Search   string          `json:"search,omitempty"`
}

// Query is a resolved listing request handed to a Source.
// CreatedAfter is an inclusive lower bound on createdAt; zero disables it.
type Query struct {
	Filter
	Sort         Sort
	CreatedAfter time.Time
	Offset       int
	Limit        int
}

// Ranked is one ordered page of a query plus facts about the whole match set
type Ranked struct {
	Posts []*models.Post
	Total int
	// Oldest is the earliest createdAt among all matches; zero when nothing matched
	Oldest time.Time
}

// Source produces one ordered page of live posts
type Source interface {
	Rank(ctx context.Context, q Query) (*Ranked, error)
}

// SearchTerms splits a free-text query into lowercase terms
func SearchTerms(search string) []string {
	return lo.Map(strings.Fields(search), func(term string, _ int) string {
		return strings.ToLower(term)
	})
}

// Matches reports whether a live post passes q's filters and window
func Matches(p *models.Post, q Query) bool {
	if p.IsDeleted {
		return false
	}
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	if len(q.Tags) > 0 && !lo.Some(p.Tags, q.Tags) {
		return false
	}
	if !q.CreatedAfter.IsZero() && p.CreatedAt.Before(q.CreatedAfter) {
		return false
	}
	return matchesSearch(p, SearchTerms(q.Search))
}

// a term matches a substring of title or content, or a whole tag
func matchesSearch(p *models.Post, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	title := strings.ToLower(p.Title)
	content := strings.ToLower(p.Content)
	for _, term := range terms {
		if strings.Contains(title, term) || strings.Contains(content, term) {
			return true
		}
		for _, tag := range p.Tags {
			if strings.EqualFold(tag, term) {
				return true
			}
		}
	}
	return false
}

type compareFunc func(a, b *models.Post) int

func byViews(a, b *models.Post) int { return compareDesc(a.Views, b.Views) }

func byLikes(a, b *models.Post) int {
	return compareDesc(int64(a.LikeCount()), int64(b.LikeCount()))
}

func byCreated(a, b *models.Post) int { return compareTimeDesc(a.CreatedAt, b.CreatedAt) }

func byActivity(a, b *models.Post) int { return compareTimeDesc(a.LastActivity, b.LastActivity) }

func byID(a, b *models.Post) int { return strings.Compare(a.ID, b.ID) }

func compareDesc(a, b int64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

func compareTimeDesc(a, b time.Time) int {
	switch {
	case a.After(b):
		return -1
	case a.Before(b):
		return 1
	}
	return 0
}

// Less returns the strict ordering used by sort s
func Less(s Sort) func(a, b *models.Post) bool {
	var chain []compareFunc
	switch s {
	case SortPopular:
		chain = []compareFunc{byViews, byLikes, byCreated, byID}
	case SortTrending:
		chain = []compareFunc{byViews, byLikes, byActivity, byCreated, byID}
	default:
		chain = []compareFunc{byCreated, byID}
	}
	return func(a, b *models.Post) bool {
		for _, cmp := range chain {
			if c := cmp(a, b); c != 0 {
				return c < 0
			}
		}
		return false
	}
}

// Apply runs q over an in-memory snapshot
func Apply(posts []*models.Post, q Query) *Ranked {
	matched := lo.Filter(posts, func(p *models.Post, _ int) bool {
		return Matches(p, q)
	})
	less := Less(q.Sort)
	sort.Slice(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	out := &Ranked{Posts: []*models.Post{}, Total: len(matched)}
	for _, p := range matched {
		if out.Oldest.IsZero() || p.CreatedAt.Before(out.Oldest) {
			out.Oldest = p.CreatedAt
		}
	}
	if q.Offset >= out.Total {
		return out
	}
	end := out.Total
	if q.Limit > 0 && q.Offset+q.Limit < out.Total {
		end = q.Offset + q.Limit
	}
	out.Posts = matched[q.Offset:end]
	return out
}
