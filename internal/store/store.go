// Package store persists posts and serializes their mutations.
package store

import (
	"context"
	"errors"

	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/internal/ranking"
)

// ErrExists is returned when creating a post whose id is taken
var ErrExists = errors.New("post already exists")

// MutateFunc changes a working copy of a post. It may run more than once when a
// backend retries after a conflict, so it must not keep side effects from an
// earlier call. Returning an error discards the copy.
type MutateFunc func(p *models.Post) error

// Store is the post repository shared by every service.
//
// Get returns soft-deleted posts too; hiding them is the caller's decision.
// Mutate applies fn atomically with respect to every other Mutate on the same
// post and returns the stored result. A backend that detects a concurrent
// write returns an error wrapping models.ErrConflict.
type Store interface {
	Create(ctx context.Context, p *models.Post) error
	Get(ctx context.Context, id string) (*models.Post, error)
	Mutate(ctx context.Context, id string, fn MutateFunc) (*models.Post, error)
	ranking.Source
}

// apply runs fn on a private copy of current and checks the result
func apply(current *models.Post, fn MutateFunc) (*models.Post, error) {
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	if err := working.CheckInvariants(); err != nil {
		return nil, err
	}
	return working, nil
}
