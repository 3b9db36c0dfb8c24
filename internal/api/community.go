package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/learnhub/community/internal/api/objects"
	"github.com/learnhub/community/internal/content"
	"github.com/learnhub/community/internal/engagement"
	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/internal/ranking"
	"github.com/learnhub/community/internal/thread"
)

// CommunityAPI exposes the community.* methods
type CommunityAPI struct {
	content    *content.Service
	engagement *engagement.Engine
	thread     *thread.Service
	ranking    *ranking.Service
}

// NewCommunityAPI creates the method set over the domain services
func NewCommunityAPI(c *content.Service, e *engagement.Engine, t *thread.Service, r *ranking.Service) *CommunityAPI {
	return &CommunityAPI{content: c, engagement: e, thread: t, ranking: r}
}

type postIDParams struct {
	ID string `json:"id"`
}

type updatePostParams struct {
	ID    string           `json:"id"`
	Patch models.PostPatch `json:"patch"`
}

type reactionParams struct {
	PostID string `json:"postId"`
}

type commentParams struct {
	PostID    string `json:"postId"`
	CommentID string `json:"commentId"`
	Content   string `json:"content"`
}

type listParams struct {
	Category models.Category `json:"category"`
	Tags     []string        `json:"tags"`
	Search   string          `json:"search"`
	Sort     ranking.Sort    `json:"sort"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

type trendingParams struct {
	Limit int `json:"limit"`
}

type deletedResult struct {
	Deleted bool `json:"deleted"`
}

// decodeParams unmarshals a params object. Absent params decode to the zero value.
func decodeParams(params json.RawMessage, dst interface{}) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return NewError(ErrInvalidParams, fmt.Sprintf("invalid parameters format: %v", err))
	}
	return nil
}

func required(field, value string) error {
	if value == "" {
		return models.NewValidationError(field, field+" is required")
	}
	return nil
}

// CreatePost handles community.create_post
func (a *CommunityAPI) CreatePost(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var in models.PostInput
	if err := decodeParams(params, &in); err != nil {
		return nil, err
	}
	actor := actorFrom(ctx)
	p, err := a.content.Create(ctx.Request.Context(), actor, in)
	if err != nil {
		return nil, err
	}
	return objects.NewPost(p, actor.ID), nil
}

// GetPost handles community.get_post and counts a view
func (a *CommunityAPI) GetPost(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p postIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := required("id", p.ID); err != nil {
		return nil, err
	}
	post, err := a.content.View(ctx.Request.Context(), p.ID)
	if err != nil {
		return nil, err
	}
	return objects.NewPost(post, actorFrom(ctx).ID), nil
}

// GetPostAdmin handles community.get_post_admin
func (a *CommunityAPI) GetPostAdmin(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p postIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := required("id", p.ID); err != nil {
		return nil, err
	}
	actor := actorFrom(ctx)
	post, err := a.content.GetAdmin(ctx.Request.Context(), actor, p.ID)
	if err != nil {
		return nil, err
	}
	return objects.NewAdminPost(post, actor.ID), nil
}

// UpdatePost handles community.update_post
func (a *CommunityAPI) UpdatePost(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p updatePostParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := required("id", p.ID); err != nil {
		return nil, err
	}
	actor := actorFrom(ctx)
	post, err := a.content.Update(ctx.Request.Context(), actor, p.ID, p.Patch)
	if err != nil {
		return nil, err
	}
	return objects.NewPost(post, actor.ID), nil
}

// DeletePost handles community.delete_post
func (a *CommunityAPI) DeletePost(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p postIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := required("id", p.ID); err != nil {
		return nil, err
	}
	if err := a.content.SoftDelete(ctx.Request.Context(), actorFrom(ctx), p.ID); err != nil {
		return nil, err
	}
	return deletedResult{Deleted: true}, nil
}

// ToggleLike handles community.toggle_like
func (a *CommunityAPI) ToggleLike(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	return a.toggle(ctx, params, a.engagement.ToggleLike)
}

// ToggleDislike handles community.toggle_dislike
func (a *CommunityAPI) ToggleDislike(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	return a.toggle(ctx, params, a.engagement.ToggleDislike)
}

// ToggleBookmark handles community.toggle_bookmark
func (a *CommunityAPI) ToggleBookmark(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	return a.toggle(ctx, params, a.engagement.ToggleBookmark)
}

type toggleFunc func(ctx context.Context, actor models.Actor, postID string) (*engagement.Result, error)

func (a *CommunityAPI) toggle(ctx *gin.Context, params json.RawMessage, fn toggleFunc) (interface{}, error) {
	var p reactionParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := required("postId", p.PostID); err != nil {
		return nil, err
	}
	return fn(ctx.Request.Context(), actorFrom(ctx), p.PostID)
}

// AddComment handles community.add_comment
func (a *CommunityAPI) AddComment(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p commentParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := required("postId", p.PostID); err != nil {
		return nil, err
	}
	actor := actorFrom(ctx)
	c, err := a.thread.AddComment(ctx.Request.Context(), actor, p.PostID, p.Content)
	if err != nil {
		return nil, err
	}
	return objects.NewComment(c, actor.ID), nil
}

// AddReply handles community.add_reply
func (a *CommunityAPI) AddReply(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p commentParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := required("postId", p.PostID); err != nil {
		return nil, err
	}
	if err := required("commentId", p.CommentID); err != nil {
		return nil, err
	}
	r, err := a.thread.AddReply(ctx.Request.Context(), actorFrom(ctx), p.PostID, p.CommentID, p.Content)
	if err != nil {
		return nil, err
	}
	return objects.NewReply(r), nil
}

// DeleteComment handles community.delete_comment
func (a *CommunityAPI) DeleteComment(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p commentParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := required("postId", p.PostID); err != nil {
		return nil, err
	}
	if err := required("commentId", p.CommentID); err != nil {
		return nil, err
	}
	if err := a.thread.SoftDeleteComment(ctx.Request.Context(), actorFrom(ctx), p.PostID, p.CommentID); err != nil {
		return nil, err
	}
	return deletedResult{Deleted: true}, nil
}

// ToggleCommentLike handles community.toggle_comment_like
func (a *CommunityAPI) ToggleCommentLike(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p commentParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := required("postId", p.PostID); err != nil {
		return nil, err
	}
	if err := required("commentId", p.CommentID); err != nil {
		return nil, err
	}
	return a.thread.ToggleCommentLike(ctx.Request.Context(), actorFrom(ctx), p.PostID, p.CommentID)
}

// ListPosts handles community.list_posts. An absent page means the first page.
func (a *CommunityAPI) ListPosts(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p listParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Page == 0 {
		p.Page = 1
	}
	filter := ranking.Filter{Category: p.Category, Tags: p.Tags, Search: p.Search}
	res, err := a.ranking.List(ctx.Request.Context(), filter, p.Sort, p.Page, p.PageSize)
	if err != nil {
		return nil, err
	}
	return objects.NewPage(res, actorFrom(ctx).ID), nil
}

// ListTrending handles community.list_trending
func (a *CommunityAPI) ListTrending(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p trendingParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	posts, err := a.ranking.Trending(ctx.Request.Context(), p.Limit)
	if err != nil {
		return nil, err
	}
	return objects.NewPostSummaries(posts, actorFrom(ctx).ID), nil
}
