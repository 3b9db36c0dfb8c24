package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/internal/store"
)

var (
	t0     = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	author = models.Actor{ID: "author", Role: models.RoleUser}
	other  = models.Actor{ID: "other", Role: models.RoleUser}
	mod    = models.Actor{ID: "mod", Role: models.RoleModerator}
	admin  = models.Actor{ID: "admin", Role: models.RoleAdmin}
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newService(t *testing.T) (*Service, *clock) {
	t.Helper()
	c := &clock{now: t0}
	return NewService(store.NewMemory(), c.Now), c
}

func createPost(t *testing.T, s *Service) *models.Post {
	t.Helper()
	p, err := s.Create(context.Background(), author, models.PostInput{
		Title:    "A",
		Content:  "first post",
		Category: models.CategoryTech,
		Tags:     []string{"go"},
	})
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	p := createPost(t, s)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "author", p.AuthorID)
	assert.Equal(t, models.StatusDiscussing, p.Status)
	assert.Equal(t, t0, p.LastActivity)

	_, err := s.Create(ctx, models.Actor{}, models.PostInput{Title: "A", Content: "x", Category: models.CategoryTech})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = s.Create(ctx, author, models.PostInput{Title: "A", Content: "x", Category: "新闻"})
	assert.True(t, models.IsValidation(err))
}

func TestView_CountsViews(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	p := createPost(t, s)

	for i := 0; i < 3; i++ {
		_, err := s.View(ctx, p.ID)
		require.NoError(t, err)
	}
	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.Views)
	assert.Equal(t, t0, got.LastActivity, "views are not activity")

	_, err = s.View(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdate_Authorization(t *testing.T) {
	tests := []struct {
		name    string
		actor   models.Actor
		wantErr error
	}{
		{"author", author, nil},
		{"admin", admin, nil},
		{"other user", other, models.ErrForbidden},
		{"moderator", mod, models.ErrForbidden},
		{"anonymous", models.Actor{}, models.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newService(t)
			p := createPost(t, s)
			c.now = t0.Add(time.Hour)

			updated, err := s.Update(context.Background(), tt.actor, p.ID, models.PostPatch{Title: strPtr("B")})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				got, _ := s.Get(context.Background(), p.ID)
				assert.Equal(t, "A", got.Title)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "B", updated.Title)
			assert.Equal(t, "first post", updated.Content, "absent fields are untouched")
			assert.Equal(t, c.now, updated.UpdatedAt)
			assert.Equal(t, t0, updated.LastActivity)
		})
	}
}

func TestUpdate_RejectsImmutableFields(t *testing.T) {
	s, _ := newService(t)
	p := createPost(t, s)

	_, err := s.Update(context.Background(), author, p.ID, models.PostPatch{AuthorID: strPtr("someone")})
	assert.True(t, models.IsValidation(err))

	_, err = s.Update(context.Background(), author, p.ID, models.PostPatch{ID: strPtr("other-id")})
	assert.True(t, models.IsValidation(err))
}

func TestSoftDelete(t *testing.T) {
	s, c := newService(t)
	ctx := context.Background()
	p := createPost(t, s)

	assert.ErrorIs(t, s.SoftDelete(ctx, other, p.ID), models.ErrForbidden)

	c.now = t0.Add(time.Minute)
	require.NoError(t, s.SoftDelete(ctx, admin, p.ID))

	_, err := s.Get(ctx, p.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.View(ctx, p.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.Update(ctx, author, p.ID, models.PostPatch{Title: strPtr("B")})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, s.SoftDelete(ctx, author, p.ID), models.ErrNotFound)

	_, err = s.GetAdmin(ctx, author, p.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, err := s.GetAdmin(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.Equal(t, "admin", got.DeletedBy)
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, c.now, *got.DeletedAt)
}
