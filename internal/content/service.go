// Package content creates, reads, edits and soft-deletes posts.
package content

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

// Service implements the post lifecycle on top of a store
type Service struct {
	store  store.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a content service. A nil clock means time.Now.
func NewService(s store.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  s,
		now:    now,
		logger: logging.WithComponent("content"),
	}
}

// Create validates in and stores a new post authored by actor
func (s *Service) Create(ctx context.Context, actor models.Actor, in models.PostInput) (*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.create")
	defer span.End()

	if actor.Anonymous() {
		return nil, models.ErrUnauthenticated
	}
	p, err := models.NewPost(in, actor.ID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("post_id", p.ID))
	logging.FromContext(ctx, s.logger).Debug("Post created",
		zap.String("post_id", p.ID),
		zap.String("author_id", p.AuthorID),
		zap.String("category", string(p.Category)),
	)
	return p, nil
}

// Get returns a live post without counting a view
func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.get", trace.WithAttributes(attribute.String("post_id", id)))
	defer span.End()

	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted {
		return nil, models.PostNotFound(id)
	}
	return p, nil
}

// View returns a live post and counts one view
func (s *Service) View(ctx context.Context, id string) (*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.view", trace.WithAttributes(attribute.String("post_id", id)))
	defer span.End()

	p, err := s.store.Mutate(ctx, id, func(p *models.Post) error {
		if p.IsDeleted {
			return models.PostNotFound(id)
		}
		p.IncrementViews()
		return nil
	})
	if err != nil {
		return nil, err
	}
	telemetry.RecordPostView(ctx)
	return p, nil
}

// GetAdmin returns a post whatever its deletion state. Admins only.
func (s *Service) GetAdmin(ctx context.Context, actor models.Actor, id string) (*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.get_admin", trace.WithAttributes(attribute.String("post_id", id)))
	defer span.End()

	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Update applies a partial patch. Only the author or an admin may edit.
func (s *Service) Update(ctx context.Context, actor models.Actor, id string, patch models.PostPatch) (*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.update", trace.WithAttributes(attribute.String("post_id", id)))
	defer span.End()

	if actor.Anonymous() {
		return nil, models.ErrUnauthenticated
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	p, err := s.store.Mutate(ctx, id, func(p *models.Post) error {
		if p.IsDeleted {
			return models.PostNotFound(id)
		}
		if err := moderation.Authorize(actor, p.AuthorID, "post "+id); err != nil {
			return err
		}
		p.Apply(patch, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.logger).Debug("Post updated",
		zap.String("post_id", id),
		zap.String("actor_id", actor.ID),
	)
	return p, nil
}

// SoftDelete hides a post from every public read. Only the author or an admin may delete.
func (s *Service) SoftDelete(ctx context.Context, actor models.Actor, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "content.soft_delete", trace.WithAttributes(attribute.String("post_id", id)))
	defer span.End()

	if actor.Anonymous() {
		return models.ErrUnauthenticated
	}
	_, err := s.store.Mutate(ctx, id, func(p *models.Post) error {
		if p.IsDeleted {
			return models.PostNotFound(id)
		}
		if err := moderation.Authorize(actor, p.AuthorID, "post "+id); err != nil {
			return err
		}
		p.MarkDeleted(actor.ID, s.now())
		return nil
	})
	if err != nil {
		return err
	}

	logging.FromContext(ctx, s.logger).Info("Post deleted",
		zap.String("post_id", id),
		zap.String("actor_id", actor.ID),
	)
	return nil
}
