// Package thread manages comments and one level of replies on a post.
package thread

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/internal/moderation"
	"github.com/learnhub/community/internal/store"
	"github.com/learnhub/community/pkg/logging"
	"github.com/learnhub/community/pkg/telemetry"
)

// CommentLike is the outcome of a comment like toggle
type CommentLike struct {
	Active    bool `json:"active"`
	LikeCount int  `json:"likeCount"`
}

// Service appends to and moderates post threads
type Service struct {
	store  store.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a thread service over s. A nil clock means time.Now.
func NewService(s store.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  s,
		now:    now,
		logger: logging.WithComponent("thread"),
	}
}

// AddComment appends a top-level comment and moves the post's lastActivity
func (s *Service) AddComment(ctx context.Context, actor models.Actor, postID, content string) (*models.Comment, error) {
	ctx, span := telemetry.StartSpan(ctx, "thread.add_comment", trace.WithAttributes(attribute.String("post_id", postID)))
	defer span.End()

	if actor.Anonymous() {
		return nil, models.ErrUnauthenticated
	}
	if err := models.ValidateCommentContent(content); err != nil {
		return nil, err
	}

	var commentID string
	p, err := s.store.Mutate(ctx, postID, func(p *models.Post) error {
		if p.IsDeleted {
			return models.PostNotFound(postID)
		}
		c, err := p.AppendComment(actor.ID, content, s.now())
		if err != nil {
			return err
		}
		commentID = c.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	c, _ := p.Comment(commentID)
	telemetry.RecordComment(ctx, "comment")
	logging.FromContext(ctx, s.logger).Debug("Comment added",
		zap.String("post_id", postID),
		zap.String("comment_id", commentID),
		zap.String("actor_id", actor.ID),
	)
	return c, nil
}

// AddReply answers a live comment. Replies leave lastActivity alone.
func (s *Service) AddReply(ctx context.Context, actor models.Actor, postID, commentID, content string) (*models.Reply, error) {
	ctx, span := telemetry.StartSpan(ctx, "thread.add_reply", trace.WithAttributes(
		attribute.String("post_id", postID),
		attribute.String("comment_id", commentID),
	))
	defer span.End()

	if actor.Anonymous() {
		return nil, models.ErrUnauthenticated
	}
	if err := models.ValidateReplyContent(content); err != nil {
		return nil, err
	}

	var replyID string
	p, err := s.store.Mutate(ctx, postID, func(p *models.Post) error {
		if p.IsDeleted {
			return models.PostNotFound(postID)
		}
		r, err := p.AppendReply(commentID, actor.ID, content, s.now())
		if err != nil {
			return err
		}
		replyID = r.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	r, _ := p.Reply(commentID, replyID)
	telemetry.RecordComment(ctx, "reply")
	logging.FromContext(ctx, s.logger).Debug("Reply added",
		zap.String("post_id", postID),
		zap.String("comment_id", commentID),
		zap.String("reply_id", replyID),
	)
	return r, nil
}

// SoftDeleteComment hides a comment. Only its author or an admin may do so;
// replies stay in place.
func (s *Service) SoftDeleteComment(ctx context.Context, actor models.Actor, postID, commentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "thread.delete_comment", trace.WithAttributes(
		attribute.String("post_id", postID),
		attribute.String("comment_id", commentID),
	))
	defer span.End()

	if actor.Anonymous() {
		return models.ErrUnauthenticated
	}
	_, err := s.store.Mutate(ctx, postID, func(p *models.Post) error {
		if p.IsDeleted {
			return models.PostNotFound(postID)
		}
		c, ok := p.Comment(commentID)
		if !ok || c.IsDeleted {
			return models.CommentNotFound(commentID)
		}
		if err := moderation.Authorize(actor, c.AuthorID, "comment "+commentID); err != nil {
			return err
		}
		return p.DeleteComment(commentID, actor.ID, s.now())
	})
	if err != nil {
		return err
	}

	logging.FromContext(ctx, s.logger).Info("Comment deleted",
		zap.String("post_id", postID),
		zap.String("comment_id", commentID),
		zap.String("actor_id", actor.ID),
	)
	return nil
}

// ToggleCommentLike flips the actor's like on a live comment
func (s *Service) ToggleCommentLike(ctx context.Context, actor models.Actor, postID, commentID string) (*CommentLike, error) {
	ctx, span := telemetry.StartSpan(ctx, "thread.toggle_comment_like", trace.WithAttributes(
		attribute.String("post_id", postID),
		attribute.String("comment_id", commentID),
	))
	defer span.End()

	if actor.Anonymous() {
		return nil, models.ErrUnauthenticated
	}
	var res CommentLike
	_, err := s.store.Mutate(ctx, postID, func(p *models.Post) error {
		if p.IsDeleted {
			return models.PostNotFound(postID)
		}
		active, count, err := p.ToggleCommentLike(commentID, actor.ID, s.now())
		if err != nil {
			return err
		}
		res = CommentLike{Active: active, LikeCount: count}
		return nil
	})
	if err != nil {
		return nil, err
	}
	telemetry.RecordReactionToggle(ctx, "comment_like", res.Active)
	return &res, nil
}
