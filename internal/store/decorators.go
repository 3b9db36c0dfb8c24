package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/pkg/logging"
	"github.com/learnhub/community/pkg/retry"
	"github.com/learnhub/community/pkg/telemetry"
)

const conflictBackoff = 2 * time.Millisecond

// Retrying reruns Mutate when the backend reports a conflicting write
type Retrying struct {
	Store
	maxAttempts int
	logger      *zap.Logger
}

// NewRetrying wraps s so each Mutate is attempted at most maxAttempts times
func NewRetrying(s Store, maxAttempts int) *Retrying {
	return &Retrying{
		Store:       s,
		maxAttempts: maxAttempts,
		logger:      logging.WithComponent("store"),
	}
}

// Mutate retries fn on a fresh copy of the post after each conflict
func (r *Retrying) Mutate(ctx context.Context, id string, fn MutateFunc) (*models.Post, error) {
	var out *models.Post
	shouldRetry := func(err error, attempt int) bool {
		if !errors.Is(err, models.ErrConflict) {
			return false
		}
		telemetry.RecordStoreConflict(ctx)
		r.logger.Warn("Concurrent post update, retrying",
			zap.String("post_id", id),
			zap.Int("attempt", attempt),
		)
		return true
	}
	err := retry.Do(ctx, r.maxAttempts, conflictBackoff, shouldRetry, func(ctx context.Context) error {
		p, err := r.Store.Mutate(ctx, id, fn)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Hook observes a committed change to a post
type Hook func(ctx context.Context, postID string)

// Notifying calls hooks after every successful Create and Mutate
type Notifying struct {
	Store
	hooks []Hook
}

// NewNotifying wraps s with change hooks
func NewNotifying(s Store, hooks ...Hook) *Notifying {
	return &Notifying{Store: s, hooks: hooks}
}

// Create stores p and notifies the hooks
func (n *Notifying) Create(ctx context.Context, p *models.Post) error {
	if err := n.Store.Create(ctx, p); err != nil {
		return err
	}
	n.notify(ctx, p.ID)
	return nil
}

// Mutate applies fn and notifies the hooks
func (n *Notifying) Mutate(ctx context.Context, id string, fn MutateFunc) (*models.Post, error) {
	p, err := n.Store.Mutate(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	n.notify(ctx, id)
	return p, nil
}

func (n *Notifying) notify(ctx context.Context, postID string) {
	for _, h := range n.hooks {
		h(ctx, postID)
	}
}
