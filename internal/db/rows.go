package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/learnhub/community/internal/models"
)

// postRow holds a post's scalar fields. Reactions, comments, comment likes and
// replies live in their own tables so each membership change is a single-row write.
type postRow struct {
	ID           string     `gorm:"type:varchar(36);primaryKey;column:id"`
	Title        string     `gorm:"type:varchar(200);not null;column:title"`
	Content      string     `gorm:"type:text;not null;column:content"`
	AuthorID     string     `gorm:"type:varchar(64);not null;index:community_posts_author;column:author_id"`
	Category     string     `gorm:"type:varchar(32);not null;index:community_posts_category;column:category"`
	Tags         string     `gorm:"type:jsonb;not null;default:'[]';column:tags"`
	CodeBlocks   string     `gorm:"type:jsonb;not null;default:'[]';column:code_blocks"`
	Views        int64      `gorm:"not null;default:0;column:views"`
	IsSticky     bool       `gorm:"not null;default:false;column:is_sticky"`
	IsClosed     bool       `gorm:"not null;default:false;column:is_closed"`
	IsDeleted    bool       `gorm:"not null;default:false;column:is_deleted"`
	DeletedAt    *time.Time `gorm:"column:deleted_at"`
	DeletedBy    string     `gorm:"type:varchar(64);not null;default:'';column:deleted_by"`
	Status       string     `gorm:"type:varchar(16);not null;column:status"`
	Difficulty   string     `gorm:"type:varchar(16);not null;column:difficulty"`
	LastActivity time.Time  `gorm:"not null;column:last_activity"`
	CreatedAt    time.Time  `gorm:"not null;index:community_posts_created;column:created_at"`
	UpdatedAt    time.Time  `gorm:"not null;column:updated_at"`
	Version      int64      `gorm:"not null;default:1;column:version"`
}

// TableName specifies the table name for postRow
func (postRow) TableName() string {
	return "community_posts"
}

type reactionRow struct {
	PostID    string    `gorm:"type:varchar(36);primaryKey;column:post_id"`
	ActorID   string    `gorm:"type:varchar(64);primaryKey;column:actor_id"`
	Kind      string    `gorm:"type:varchar(16);primaryKey;column:kind"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for reactionRow
func (reactionRow) TableName() string {
	return "community_reactions"
}

type commentRow struct {
	ID        string     `gorm:"type:varchar(36);primaryKey;column:id"`
	PostID    string     `gorm:"type:varchar(36);not null;uniqueIndex:community_comments_seq,priority:1;column:post_id"`
	Seq       int        `gorm:"not null;uniqueIndex:community_comments_seq,priority:2;column:seq"`
	AuthorID  string     `gorm:"type:varchar(64);not null;column:author_id"`
	Content   string     `gorm:"type:text;not null;column:content"`
	IsDeleted bool       `gorm:"not null;default:false;column:is_deleted"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
	DeletedBy string     `gorm:"type:varchar(64);not null;default:'';column:deleted_by"`
	CreatedAt time.Time  `gorm:"not null;column:created_at"`
	UpdatedAt time.Time  `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for commentRow
func (commentRow) TableName() string {
	return "community_comments"
}

type commentLikeRow struct {
	CommentID string `gorm:"type:varchar(36);primaryKey;column:comment_id"`
	ActorID   string `gorm:"type:varchar(64);primaryKey;column:actor_id"`
	PostID    string `gorm:"type:varchar(36);not null;index:community_comment_likes_post;column:post_id"`
}

// TableName specifies the table name for commentLikeRow
func (commentLikeRow) TableName() string {
	return "community_comment_likes"
}

type replyRow struct {
	ID        string    `gorm:"type:varchar(36);primaryKey;column:id"`
	PostID    string    `gorm:"type:varchar(36);not null;index:community_replies_post;column:post_id"`
	CommentID string    `gorm:"type:varchar(36);not null;uniqueIndex:community_replies_seq,priority:1;column:comment_id"`
	Seq       int       `gorm:"not null;uniqueIndex:community_replies_seq,priority:2;column:seq"`
	AuthorID  string    `gorm:"type:varchar(64);not null;column:author_id"`
	Content   string    `gorm:"type:text;not null;column:content"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for replyRow
func (replyRow) TableName() string {
	return "community_replies"
}

// AllTables lists every table the post store owns, in creation order
func AllTables() []interface{} {
	return []interface{}{
		&postRow{},
		&reactionRow{},
		&commentRow{},
		&commentLikeRow{},
		&replyRow{},
	}
}

// postGraph is everything stored for one post
type postGraph struct {
	post      postRow
	reactions []reactionRow
	comments  []commentRow
	likes     []commentLikeRow
	replies   []replyRow
}

func toPostRow(p *models.Post) (postRow, error) {
	tags, err := json.Marshal(nonNilTags(p.Tags))
	if err != nil {
		return postRow{}, fmt.Errorf("encode tags: %w", err)
	}
	blocks := p.CodeBlocks
	if blocks == nil {
		blocks = []models.CodeBlock{}
	}
	codeBlocks, err := json.Marshal(blocks)
	if err != nil {
		return postRow{}, fmt.Errorf("encode code blocks: %w", err)
	}
	return postRow{
		ID:           p.ID,
		Title:        p.Title,
		Content:      p.Content,
		AuthorID:     p.AuthorID,
		Category:     string(p.Category),
		Tags:         string(tags),
		CodeBlocks:   string(codeBlocks),
		Views:        p.Views,
		IsSticky:     p.IsSticky,
		IsClosed:     p.IsClosed,
		IsDeleted:    p.IsDeleted,
		DeletedAt:    p.DeletedAt,
		DeletedBy:    p.DeletedBy,
		Status:       string(p.Status),
		Difficulty:   string(p.Difficulty),
		LastActivity: p.LastActivity,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		Version:      p.Version,
	}, nil
}

// toGraph flattens p into rows
func toGraph(p *models.Post) (*postGraph, error) {
	row, err := toPostRow(p)
	if err != nil {
		return nil, err
	}
	g := &postGraph{post: row}
	for _, kind := range []models.ReactionKind{models.ReactionLike, models.ReactionDislike, models.ReactionBookmark} {
		for _, actor := range p.Reactions(kind).Members() {
			g.reactions = append(g.reactions, reactionRow{PostID: p.ID, ActorID: actor, Kind: string(kind), CreatedAt: p.UpdatedAt})
		}
	}
	for _, c := range p.Comments {
		g.comments = append(g.comments, toCommentRow(p.ID, c))
		for _, actor := range c.Likes.Members() {
			g.likes = append(g.likes, commentLikeRow{CommentID: c.ID, ActorID: actor, PostID: p.ID})
		}
		for _, r := range c.Replies {
			g.replies = append(g.replies, toReplyRow(p.ID, r))
		}
	}
	return g, nil
}

func toCommentRow(postID string, c *models.Comment) commentRow {
	return commentRow{
		ID:        c.ID,
		PostID:    postID,
		Seq:       c.Seq,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		IsDeleted: c.IsDeleted,
		DeletedAt: c.DeletedAt,
		DeletedBy: c.DeletedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toReplyRow(postID string, r models.Reply) replyRow {
	return replyRow{
		ID:        r.ID,
		PostID:    postID,
		CommentID: r.CommentID,
		Seq:       r.Seq,
		AuthorID:  r.AuthorID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
	}
}

// toPost rebuilds the domain post. Comments and replies must be ordered by seq.
func (g *postGraph) toPost() (*models.Post, error) {
	row := g.post
	p := &models.Post{
		ID:           row.ID,
		Title:        row.Title,
		Content:      row.Content,
		AuthorID:     row.AuthorID,
		Category:     models.Category(row.Category),
		Views:        row.Views,
		IsSticky:     row.IsSticky,
		IsClosed:     row.IsClosed,
		IsDeleted:    row.IsDeleted,
		DeletedAt:    row.DeletedAt,
		DeletedBy:    row.DeletedBy,
		Status:       models.Status(row.Status),
		Difficulty:   models.Difficulty(row.Difficulty),
		LastActivity: row.LastActivity,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		Version:      row.Version,
		Comments:     []*models.Comment{},
	}
	if err := json.Unmarshal([]byte(row.Tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of post %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.CodeBlocks), &p.CodeBlocks); err != nil {
		return nil, fmt.Errorf("decode code blocks of post %s: %w", row.ID, err)
	}

	for _, r := range g.reactions {
		set := p.Reactions(models.ReactionKind(r.Kind))
		if set == nil {
			return nil, fmt.Errorf("%w: post %s has unknown reaction kind %q", models.ErrInvariant, row.ID, r.Kind)
		}
		set.Add(r.ActorID)
	}

	byID := make(map[string]*models.Comment, len(g.comments))
	for _, cr := range g.comments {
		c := &models.Comment{
			ID:        cr.ID,
			Seq:       cr.Seq,
			AuthorID:  cr.AuthorID,
			Content:   cr.Content,
			Replies:   []models.Reply{},
			IsDeleted: cr.IsDeleted,
			DeletedAt: cr.DeletedAt,
			DeletedBy: cr.DeletedBy,
			CreatedAt: cr.CreatedAt,
			UpdatedAt: cr.UpdatedAt,
		}
		byID[c.ID] = c
		p.Comments = append(p.Comments, c)
	}
	for _, l := range g.likes {
		if c, ok := byID[l.CommentID]; ok {
			c.Likes.Add(l.ActorID)
		}
	}
	for _, rr := range g.replies {
		c, ok := byID[rr.CommentID]
		if !ok {
			return nil, fmt.Errorf("%w: reply %s references missing comment %s", models.ErrInvariant, rr.ID, rr.CommentID)
		}
		c.Replies = append(c.Replies, models.Reply{
			ID:        rr.ID,
			Seq:       rr.Seq,
			CommentID: rr.CommentID,
			AuthorID:  rr.AuthorID,
			Content:   rr.Content,
			CreatedAt: rr.CreatedAt,
		})
	}
	return p, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
