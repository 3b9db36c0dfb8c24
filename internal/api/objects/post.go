// Package objects shapes posts for API responses.
package objects

import (
	"time"

	"github.com/samber/lo"

	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/internal/ranking"
)

// Viewer carries the calling actor's own reactions
type Viewer struct {
	Liked      bool `json:"liked"`
	Disliked   bool `json:"disliked"`
	Bookmarked bool `json:"bookmarked"`
}

// Post is the public post object. Reaction sets are reduced to counts plus the
// viewer's own flags; who bookmarked a post is never exposed.
type Post struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Content       string             `json:"content"`
	AuthorID      string             `json:"authorId"`
	Category      models.Category    `json:"category"`
	Tags          []string           `json:"tags"`
	CodeBlocks    []models.CodeBlock `json:"codeBlocks"`
	LikeCount     int                `json:"likeCount"`
	DislikeCount  int                `json:"dislikeCount"`
	BookmarkCount int                `json:"bookmarkCount"`
	Score         int                `json:"score"`
	Views         int64              `json:"views"`
	CommentCount  int                `json:"commentCount"`
	Comments      []Comment          `json:"comments,omitempty"`
	IsSticky      bool               `json:"isSticky"`
	IsClosed      bool               `json:"isClosed"`
	Status        models.Status      `json:"status"`
	Difficulty    models.Difficulty  `json:"difficulty"`
	LastActivity  time.Time          `json:"lastActivity"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	Viewer        *Viewer            `json:"viewer,omitempty"`

	// admin reads only
	IsDeleted bool       `json:"isDeleted,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy string     `json:"deletedBy,omitempty"`
}

// Comment is a comment with its replies
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	LikeCount int       `json:"likeCount"`
	Liked     bool      `json:"liked"`
	Replies   []Reply   `json:"replies"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	IsDeleted bool       `json:"isDeleted,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy string     `json:"deletedBy,omitempty"`
}

// Reply answers a comment
type Reply struct {
	ID        string    `json:"id"`
	CommentID string    `json:"commentId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Page is one listing page
type Page struct {
	Posts      []Post             `json:"posts"`
	Pagination ranking.Pagination `json:"pagination"`
}

// NewPost builds the detail view. A deleted comment appears only as a
// tombstone, and only while it still has replies.
func NewPost(p *models.Post, viewerID string) Post {
	out := summary(p, viewerID)
	out.Comments = lo.FilterMap(p.Comments, func(c *models.Comment, _ int) (Comment, bool) {
		if !c.IsDeleted {
			return NewComment(c, viewerID), true
		}
		return tombstone(c), len(c.Replies) > 0
	})
	return out
}

// tombstone stands in for a deleted comment whose replies are still public
func tombstone(c *models.Comment) Comment {
	return Comment{
		ID:        c.ID,
		Replies:   lo.Map(c.Replies, func(r models.Reply, _ int) Reply { return NewReply(&r) }),
		CreatedAt: c.CreatedAt,
		IsDeleted: true,
	}
}

// NewAdminPost builds the moderation view: every comment plus deletion details
func NewAdminPost(p *models.Post, viewerID string) Post {
	out := summary(p, viewerID)
	out.IsDeleted = p.IsDeleted
	out.DeletedAt = p.DeletedAt
	out.DeletedBy = p.DeletedBy
	out.Comments = lo.Map(p.Comments, func(c *models.Comment, _ int) Comment {
		cm := NewComment(c, viewerID)
		cm.IsDeleted = c.IsDeleted
		cm.DeletedAt = c.DeletedAt
		cm.DeletedBy = c.DeletedBy
		return cm
	})
	return out
}

// NewPage builds a listing page. Listed posts carry no comments.
func NewPage(res *ranking.Result, viewerID string) Page {
	return Page{
		Posts:      NewPostSummaries(res.Posts, viewerID),
		Pagination: res.Pagination,
	}
}

// NewPostSummaries maps posts to list items
func NewPostSummaries(posts []*models.Post, viewerID string) []Post {
	return lo.Map(posts, func(p *models.Post, _ int) Post {
		return summary(p, viewerID)
	})
}

// NewComment builds a comment object
func NewComment(c *models.Comment, viewerID string) Comment {
	return Comment{
		ID:        c.ID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		LikeCount: c.LikeCount(),
		Liked:     viewerID != "" && c.Likes.Has(viewerID),
		Replies:   lo.Map(c.Replies, func(r models.Reply, _ int) Reply { return NewReply(&r) }),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// NewReply builds a reply object
func NewReply(r *models.Reply) Reply {
	return Reply{
		ID:        r.ID,
		CommentID: r.CommentID,
		AuthorID:  r.AuthorID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
	}
}

func summary(p *models.Post, viewerID string) Post {
	out := Post{
		ID:            p.ID,
		Title:         p.Title,
		Content:       p.Content,
		AuthorID:      p.AuthorID,
		Category:      p.Category,
		Tags:          lo.Ternary(p.Tags == nil, []string{}, p.Tags),
		CodeBlocks:    lo.Ternary(p.CodeBlocks == nil, []models.CodeBlock{}, p.CodeBlocks),
		LikeCount:     p.LikeCount(),
		DislikeCount:  p.DislikeCount(),
		BookmarkCount: p.BookmarkCount(),
		Score:         p.Score(),
		Views:         p.Views,
		CommentCount:  p.CommentCount(),
		IsSticky:      p.IsSticky,
		IsClosed:      p.IsClosed,
		Status:        p.Status,
		Difficulty:    p.Difficulty,
		LastActivity:  p.LastActivity,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if viewerID != "" {
		out.Viewer = &Viewer{
			Liked:      p.Likes.Has(viewerID),
			Disliked:   p.Dislikes.Has(viewerID),
			Bookmarked: p.Bookmarks.Has(viewerID),
		}
	}
	return out
}
