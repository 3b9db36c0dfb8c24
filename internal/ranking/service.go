package ranking

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/pkg/logging"
	"github.com/learnhub/community/pkg/telemetry"
)

// Cache stores listing results. Keys are scoped by Generation; Invalidate
// advances the generation so every earlier entry becomes unreachable, including
// entries written late by a reader that started before the invalidation.
type Cache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// Result is one listing page
type Result struct {
	Posts      []*models.Post `json:"posts"`
	Pagination Pagination     `json:"pagination"`
}

// Service answers listing queries. It keeps no state of its own apart from the optional cache.
type Service struct {
	source        Source
	cache         Cache
	now           func() time.Time
	trendingLimit int
	pageSize      int
	logger        *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithCache puts a result cache in front of the source
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock overrides the time source used for the trending window
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTrendingLimit sets the default size of the trending list
func WithTrendingLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.trendingLimit = n
		}
	}
}

// WithDefaultPageSize sets the page size used when a request gives none
func WithDefaultPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 && n <= MaxPageSize {
			s.pageSize = n
		}
	}
}

// NewService creates a ranking service over source
func NewService(source Source, opts ...Option) *Service {
	s := &Service{
		source:        source,
		now:           time.Now,
		trendingLimit: DefaultTrendingLimit,
		pageSize:      DefaultPageSize,
		logger:        logging.WithComponent("ranking"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of posts matching filter in the given order
func (s *Service) List(ctx context.Context, filter Filter, sort Sort, page, pageSize int) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "ranking.list", trace.WithAttributes(
		attribute.String("sort", string(sort)),
		attribute.Int("page", page),
	))
	defer span.End()

	if sort == "" {
		sort = SortLatest
	}
	filter.Tags = normalizeTags(filter.Tags)
	filter.Search = strings.TrimSpace(filter.Search)
	if pageSize == 0 {
		pageSize = s.pageSize
	}
	if err := validateList(filter, sort, page, pageSize); err != nil {
		return nil, err
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	q := Query{
		Filter: filter,
		Sort:   sort,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}
	if sort == SortTrending {
		q.CreatedAfter = s.now().Add(-TrendingWindow)
	}

	key, cacheable := s.cacheKey(ctx, listKey(q))
	var cached Result
	if cacheable && s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	ranked, err := s.source.Rank(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("rank posts: %w", err)
	}
	res := &Result{Posts: ranked.Posts, Pagination: NewPagination(page, pageSize, ranked.Total)}
	if cacheable {
		s.store(ctx, key, res, validUntil(q, ranked), cacheTTL(sort))
	}
	return res, nil
}

// Trending returns the most viewed posts created within TrendingWindow
func (s *Service) Trending(ctx context.Context, limit int) ([]*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "ranking.trending")
	defer span.End()

	if limit <= 0 {
		limit = s.trendingLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	q := Query{
		Sort:         SortTrending,
		CreatedAfter: s.now().Add(-TrendingWindow),
		Limit:        limit,
	}

	key, cacheable := s.cacheKey(ctx, "trending|"+strconv.Itoa(limit))
	var cached Result
	if cacheable && s.lookup(ctx, key, &cached) {
		return cached.Posts, nil
	}

	ranked, err := s.source.Rank(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("rank trending posts: %w", err)
	}
	if cacheable {
		res := &Result{Posts: ranked.Posts, Pagination: NewPagination(1, limit, ranked.Total)}
		s.store(ctx, key, res, validUntil(q, ranked), cacheTTL(SortTrending))
	}
	return ranked.Posts, nil
}

// Invalidate drops cached listings after a post changed. It is the store's mutation hook.
func (s *Service) Invalidate(ctx context.Context, postID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate listing cache", zap.String("post_id", postID), zap.Error(err))
	}
}

// cacheKey prefixes base with the current cache generation. It reports false
// when there is no usable cache.
func (s *Service) cacheKey(ctx context.Context, base string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.Debug("Listing cache generation unavailable", zap.Error(err))
		return "", false
	}
	return strconv.FormatInt(gen, 10) + "|" + base, true
}

// cachedResult is a stored listing. Past ValidUntil the window has moved over
// at least one matched post, so the page, total and neighbours may all be wrong.
type cachedResult struct {
	Result
	ValidUntil time.Time `json:"validUntil"`
}

// validUntil is the last instant at which a windowed query still matches the
// same posts: the oldest match leaves the window right after it.
func validUntil(q Query, ranked *Ranked) time.Time {
	if q.CreatedAfter.IsZero() || ranked.Oldest.IsZero() {
		return time.Time{}
	}
	return ranked.Oldest.Add(TrendingWindow)
}

// lookup reads a cached result, treating lapsed entries as misses
func (s *Service) lookup(ctx context.Context, key string, dst *Result) bool {
	var entry cachedResult
	ok, err := s.cache.Get(ctx, key, &entry)
	if err != nil {
		s.logger.Debug("Listing cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if !entry.ValidUntil.IsZero() && s.now().After(entry.ValidUntil) {
		return false
	}
	*dst = entry.Result
	return true
}

// store caches res for ttl, shortened so it never outlives until
func (s *Service) store(ctx context.Context, key string, res *Result, until time.Time, ttl time.Duration) {
	if !until.IsZero() {
		left := until.Sub(s.now())
		if left <= 0 {
			return
		}
		if left < ttl {
			ttl = left
		}
	}
	if err := s.cache.Set(ctx, key, cachedResult{Result: *res, ValidUntil: until}, ttl); err != nil {
		// Log error but don't fail the request
		s.logger.Debug("Listing cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func validateList(filter Filter, sort Sort, page, pageSize int) error {
	ve := &models.ValidationError{}
	if !sort.Valid() {
		ve.Add("sort", fmt.Sprintf("unknown sort %q", sort))
	}
	if page < 1 {
		ve.Add("page", "page must be at least 1")
	}
	if pageSize < 1 {
		ve.Add("pageSize", "pageSize must be at least 1")
	}
	if filter.Category != "" && !filter.Category.Valid() {
		ve.Add("category", fmt.Sprintf("unknown category %q", filter.Category))
	}
	return ve.OrNil()
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func listKey(q Query) string {
	return strings.Join([]string{
		"list",
		string(q.Sort),
		string(q.Category),
		strings.Join(q.Tags, ","),
		q.Search,
		strconv.Itoa(q.Offset),
		strconv.Itoa(q.Limit),
	}, "|")
}

// cacheTTL returns cache TTL based on sort type
func cacheTTL(sort Sort) time.Duration {
	switch sort {
	case SortLatest:
		return 3 * time.Second
	case SortTrending:
		return 300 * time.Second
	default:
		return 60 * time.Second
	}
}
