// Package engagement toggles likes, dislikes and bookmarks on posts.
package engagement

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/internal/store"
	"github.com/learnhub/community/pkg/logging"
	"github.com/learnhub/community/pkg/telemetry"
)

// Result is the actor's new membership state plus the post's counters after a toggle
type Result struct {
	Active        bool `json:"active"`
	LikeCount     int  `json:"likeCount"`
	DislikeCount  int  `json:"dislikeCount"`
	BookmarkCount int  `json:"bookmarkCount"`
	Score         int  `json:"score"`
}

// Engine flips reaction membership. Every toggle is a state flip, so a
// retried request never double counts.
type Engine struct {
	store  store.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewEngine creates an engine over s. A nil clock means time.Now.
func NewEngine(s store.Store, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:  s,
		now:    now,
		logger: logging.WithComponent("engagement"),
	}
}

// ToggleLike likes or un-likes postID. Liking drops an existing dislike.
func (e *Engine) ToggleLike(ctx context.Context, actor models.Actor, postID string) (*Result, error) {
	return e.toggle(ctx, actor, postID, models.ReactionLike)
}

// ToggleDislike dislikes or un-dislikes postID. Disliking drops an existing like.
func (e *Engine) ToggleDislike(ctx context.Context, actor models.Actor, postID string) (*Result, error) {
	return e.toggle(ctx, actor, postID, models.ReactionDislike)
}

// ToggleBookmark bookmarks or un-bookmarks postID
func (e *Engine) ToggleBookmark(ctx context.Context, actor models.Actor, postID string) (*Result, error) {
	return e.toggle(ctx, actor, postID, models.ReactionBookmark)
}

func (e *Engine) toggle(ctx context.Context, actor models.Actor, postID string, kind models.ReactionKind) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "engagement.toggle", trace.WithAttributes(
		attribute.String("post_id", postID),
		attribute.String("kind", string(kind)),
	))
	defer span.End()

	if actor.Anonymous() {
		return nil, models.ErrUnauthenticated
	}

	var active bool
	p, err := e.store.Mutate(ctx, postID, func(p *models.Post) error {
		if p.IsDeleted {
			return models.PostNotFound(postID)
		}
		active = Toggle(p, kind, actor.ID, e.now())
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrInvariant) {
			logging.FromContext(ctx, e.logger).Error("Reaction toggle broke a post invariant",
				zap.String("post_id", postID),
				zap.String("actor_id", actor.ID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	telemetry.RecordReactionToggle(ctx, string(kind), active)
	logging.FromContext(ctx, e.logger).Debug("Reaction toggled",
		zap.String("post_id", postID),
		zap.String("actor_id", actor.ID),
		zap.String("kind", string(kind)),
		zap.Bool("active", active),
	)
	return &Result{
		Active:        active,
		LikeCount:     p.LikeCount(),
		DislikeCount:  p.DislikeCount(),
		BookmarkCount: p.BookmarkCount(),
		Score:         p.Score(),
	}, nil
}

// Toggle flips actorID's membership in p's kind set and reports the new state.
// Joining like or dislike leaves the opposite set.
func Toggle(p *models.Post, kind models.ReactionKind, actorID string, now time.Time) bool {
	if p.Reactions(kind).Has(actorID) {
		p.RemoveReaction(kind, actorID, now)
		return false
	}
	p.AddReaction(kind, actorID, now)
	if opposite, ok := kind.Opposite(); ok {
		p.RemoveReaction(opposite, actorID, now)
	}
	return true
}
