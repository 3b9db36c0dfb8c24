package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a top-level comment embedded in a post.
// Seq is its position in the post's append-only comment sequence.
type Comment struct {
	ID        string     `json:"id"`
	Seq       int        `json:"seq"`
	AuthorID  string     `json:"authorId"`
	Content   string     `json:"content"`
	Likes     ActorSet   `json:"likes"`
	Replies   []Reply    `json:"replies"`
	IsDeleted bool       `json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy string     `json:"deletedBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Reply answers a comment. Replies carry no replies of their own.
type Reply struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	CommentID string    `json:"commentId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Comment) clone() *Comment {
	cp := *c
	cp.Likes = c.Likes.Clone()
	cp.Replies = append([]Reply{}, c.Replies...)
	if c.DeletedAt != nil {
		t := *c.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

// LikeCount is the size of the comment's like set
func (c *Comment) LikeCount() int { return c.Likes.Len() }

// Comment looks up a comment by id, including soft-deleted ones
func (p *Post) Comment(id string) (*Comment, bool) {
	for _, c := range p.Comments {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// AppendComment adds a comment at the end of the thread and counts as activity
func (p *Post) AppendComment(authorID, content string, now time.Time) (*Comment, error) {
	if err := ValidateCommentContent(content); err != nil {
		return nil, err
	}
	if p.IsClosed {
		return nil, NewValidationError("postId", "post is closed for comments")
	}
	c := &Comment{
		ID:        uuid.NewString(),
		Seq:       len(p.Comments),
		AuthorID:  authorID,
		Content:   content,
		Replies:   []Reply{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Comments = append(p.Comments, c)
	p.record(Change{Kind: CommentAdded, CommentID: c.ID})
	p.touch(now, true)
	return c, nil
}

// AppendReply answers a live comment. Replies never move lastActivity.
func (p *Post) AppendReply(commentID, authorID, content string, now time.Time) (*Reply, error) {
	if err := ValidateReplyContent(content); err != nil {
		return nil, err
	}
	if p.IsClosed {
		return nil, NewValidationError("postId", "post is closed for comments")
	}
	c, ok := p.Comment(commentID)
	if !ok {
		return nil, NewValidationError("commentId", "comment does not exist")
	}
	if c.IsDeleted {
		return nil, NewValidationError("commentId", "cannot reply to a deleted comment")
	}
	r := Reply{
		ID:        uuid.NewString(),
		Seq:       len(c.Replies),
		CommentID: c.ID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
	}
	c.Replies = append(c.Replies, r)
	c.UpdatedAt = now
	p.record(Change{Kind: ReplyAdded, CommentID: c.ID, ReplyID: r.ID})
	p.touch(now, false)
	return &c.Replies[len(c.Replies)-1], nil
}

// DeleteComment soft-deletes a comment. Its replies are left untouched.
func (p *Post) DeleteComment(commentID, by string, now time.Time) error {
	c, ok := p.Comment(commentID)
	if !ok || c.IsDeleted {
		return CommentNotFound(commentID)
	}
	c.IsDeleted = true
	c.DeletedAt = &now
	c.DeletedBy = by
	c.UpdatedAt = now
	p.record(Change{Kind: CommentDeleted, CommentID: c.ID})
	p.touch(now, false)
	return nil
}

// ToggleCommentLike flips actorID's like on a live comment
func (p *Post) ToggleCommentLike(commentID, actorID string, now time.Time) (bool, int, error) {
	c, ok := p.Comment(commentID)
	if !ok || c.IsDeleted {
		return false, 0, CommentNotFound(commentID)
	}
	active := true
	if c.Likes.Remove(actorID) {
		active = false
		p.record(Change{Kind: CommentLikeRemoved, CommentID: c.ID, ActorID: actorID})
	} else {
		c.Likes.Add(actorID)
		p.record(Change{Kind: CommentLikeAdded, CommentID: c.ID, ActorID: actorID})
	}
	c.UpdatedAt = now
	p.touch(now, false)
	return active, c.LikeCount(), nil
}
