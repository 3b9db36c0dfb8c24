package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/community/internal/models"
)

// conflicting fails the first n Mutate calls with a conflict
type conflicting struct {
	*Memory
	n     int
	calls int
}

func (c *conflicting) Mutate(ctx context.Context, id string, fn MutateFunc) (*models.Post, error) {
	c.calls++
	if c.calls <= c.n {
		// run fn to show that a discarded attempt leaves no trace
		if _, err := apply(&models.Post{}, fn); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: version changed", models.ErrConflict)
	}
	return c.Memory.Mutate(ctx, id, fn)
}

func TestRetrying_Mutate(t *testing.T) {
	tests := []struct {
		name        string
		conflicts   int
		maxAttempts int
		wantCalls   int
		wantErr     error
	}{
		{"no conflict", 0, 3, 1, nil},
		{"recovers", 2, 3, 3, nil},
		{"gives up", 5, 3, 3, models.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := &conflicting{Memory: NewMemory(), n: tt.conflicts}
			p := newPost(t, "retry")
			require.NoError(t, backend.Create(ctx, p))

			s := NewRetrying(backend, tt.maxAttempts)
			updated, err := s.Mutate(ctx, p.ID, func(p *models.Post) error {
				p.IncrementViews()
				return nil
			})

			assert.Equal(t, tt.wantCalls, backend.calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, updated)
				return
			}
			require.NoError(t, err)
			assert.EqualValues(t, 1, updated.Views)
		})
	}
}

func TestRetrying_DoesNotRetryOtherErrors(t *testing.T) {
	ctx := context.Background()
	backend := &conflicting{Memory: NewMemory()}
	s := NewRetrying(backend, 5)

	_, err := s.Mutate(ctx, "missing", func(*models.Post) error { return nil })
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 1, backend.calls)
}

func TestNotifying(t *testing.T) {
	ctx := context.Background()
	var seen []string
	s := NewNotifying(NewMemory(), func(_ context.Context, id string) { seen = append(seen, id) })

	p := newPost(t, "hooked")
	require.NoError(t, s.Create(ctx, p))

	_, err := s.Mutate(ctx, p.ID, func(p *models.Post) error {
		p.IncrementViews()
		return nil
	})
	require.NoError(t, err)

	_, err = s.Mutate(ctx, p.ID, func(*models.Post) error { return errors.New("rejected") })
	require.Error(t, err)

	assert.Equal(t, []string{p.ID, p.ID}, seen)
}
