package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category is the fixed forum section a post belongs to
type Category string

// Forum categories
const (
	CategoryTech     Category = "技术讨论"
	CategoryLearning Category = "学习心得"
	CategoryShowcase Category = "项目展示"
	CategoryHelp     Category = "求助问答"
	CategoryAITools  Category = "AI工具推荐"
	CategoryCareer   Category = "职业发展"
	CategoryResource Category = "资源分享"
	CategoryOther    Category = "其他"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryTech, CategoryLearning, CategoryShowcase, CategoryHelp,
	CategoryAITools, CategoryCareer, CategoryResource, CategoryOther,
}

// Valid reports whether c is one of Categories
func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Status is the question/discussion state of a post
type Status string

// Post statuses
const (
	StatusPending    Status = "待解决"
	StatusResolved   Status = "已解决"
	StatusDiscussing Status = "讨论中"
	StatusClosed     Status = "已关闭"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusResolved, StatusDiscussing, StatusClosed:
		return true
	}
	return false
}

// Difficulty labels the level a post is aimed at
type Difficulty string

// Difficulty levels
const (
	DifficultyIntro        Difficulty = "入门"
	DifficultyBeginner     Difficulty = "初级"
	DifficultyIntermediate Difficulty = "中级"
	DifficultyAdvanced     Difficulty = "高级"
	DifficultyExpert       Difficulty = "专家"
)

// Valid reports whether d is a known difficulty
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyIntro, DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert:
		return true
	}
	return false
}

// ReactionKind names one of the per-post actor sets
type ReactionKind string

// Reaction kinds
const (
	ReactionLike     ReactionKind = "like"
	ReactionDislike  ReactionKind = "dislike"
	ReactionBookmark ReactionKind = "bookmark"
)

// Valid reports whether k is a known reaction kind
func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike || k == ReactionBookmark
}

// Opposite returns the mutually exclusive counterpart of a like or dislike
func (k ReactionKind) Opposite() (ReactionKind, bool) {
	switch k {
	case ReactionLike:
		return ReactionDislike, true
	case ReactionDislike:
		return ReactionLike, true
	}
	return "", false
}

// CountsActivity reports whether changing this set moves lastActivity.
// Bookmarks are private curation and never do.
func (k ReactionKind) CountsActivity() bool {
	return k == ReactionLike || k == ReactionDislike
}

// DefaultCodeLanguage is used for code blocks that do not name a language
const DefaultCodeLanguage = "javascript"

// CodeBlock is a snippet attached to a post
type CodeBlock struct {
	Language    string `json:"language"`
	Code        string `json:"code" validate:"notblank"`
	Description string `json:"description,omitempty"`
}

// Post is a community forum post with its embedded comment thread
type Post struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	AuthorID     string      `json:"authorId"`
	Category     Category    `json:"category"`
	Tags         []string    `json:"tags"`
	CodeBlocks   []CodeBlock `json:"codeBlocks"`
	Likes        ActorSet    `json:"likes"`
	Dislikes     ActorSet    `json:"dislikes"`
	Bookmarks    ActorSet    `json:"bookmarks"`
	Views        int64       `json:"views"`
	Comments     []*Comment  `json:"comments"`
	IsSticky     bool        `json:"isSticky"`
	IsClosed     bool        `json:"isClosed"`
	IsDeleted    bool        `json:"isDeleted"`
	DeletedAt    *time.Time  `json:"deletedAt,omitempty"`
	DeletedBy    string      `json:"deletedBy,omitempty"`
	Status       Status      `json:"status"`
	Difficulty   Difficulty  `json:"difficulty"`
	LastActivity time.Time   `json:"lastActivity"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Version      int64       `json:"version"`

	changes []Change
}

// NewPost builds a validated post authored by authorID
func NewPost(in PostInput, authorID string, now time.Time) (*Post, error) {
	if authorID == "" {
		return nil, ErrUnauthenticated
	}
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &Post{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Content:      in.Content,
		AuthorID:     authorID,
		Category:     in.Category,
		Tags:         append([]string{}, in.Tags...),
		CodeBlocks:   append([]CodeBlock{}, in.CodeBlocks...),
		Comments:     []*Comment{},
		Status:       in.Status,
		Difficulty:   in.Difficulty,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// LikeCount is the size of the like set
func (p *Post) LikeCount() int { return p.Likes.Len() }

// DislikeCount is the size of the dislike set
func (p *Post) DislikeCount() int { return p.Dislikes.Len() }

// BookmarkCount is the size of the bookmark set
func (p *Post) BookmarkCount() int { return p.Bookmarks.Len() }

// Score is likes minus dislikes
func (p *Post) Score() int { return p.LikeCount() - p.DislikeCount() }

// CommentCount counts comments that are not soft-deleted. Replies are not counted.
func (p *Post) CommentCount() int {
	n := 0
	for _, c := range p.Comments {
		if !c.IsDeleted {
			n++
		}
	}
	return n
}

// Reactions returns the set backing kind
func (p *Post) Reactions(kind ReactionKind) *ActorSet {
	switch kind {
	case ReactionLike:
		return &p.Likes
	case ReactionDislike:
		return &p.Dislikes
	case ReactionBookmark:
		return &p.Bookmarks
	}
	return nil
}

// AddReaction puts actorID into the kind set and reports whether it changed
func (p *Post) AddReaction(kind ReactionKind, actorID string, now time.Time) bool {
	set := p.Reactions(kind)
	if set == nil || !set.Add(actorID) {
		return false
	}
	p.record(Change{Kind: ReactionAdded, Reaction: kind, ActorID: actorID})
	p.touch(now, kind.CountsActivity())
	return true
}

// RemoveReaction takes actorID out of the kind set and reports whether it changed
func (p *Post) RemoveReaction(kind ReactionKind, actorID string, now time.Time) bool {
	set := p.Reactions(kind)
	if set == nil || !set.Remove(actorID) {
		return false
	}
	p.record(Change{Kind: ReactionRemoved, Reaction: kind, ActorID: actorID})
	p.touch(now, kind.CountsActivity())
	return true
}

// IncrementViews counts one detail read. It is not activity.
func (p *Post) IncrementViews() {
	p.Views++
}

// MarkDeleted soft-deletes the post
func (p *Post) MarkDeleted(by string, now time.Time) {
	p.IsDeleted = true
	p.DeletedAt = &now
	p.DeletedBy = by
	p.UpdatedAt = now
}

// CheckInvariants verifies the state rules that mutations must preserve
func (p *Post) CheckInvariants() error {
	if id, ok := p.Likes.Overlap(p.Dislikes); ok {
		return fmt.Errorf("%w: actor %s both likes and dislikes post %s", ErrInvariant, id, p.ID)
	}
	if p.LastActivity.Before(p.CreatedAt) {
		return fmt.Errorf("%w: post %s lastActivity precedes createdAt", ErrInvariant, p.ID)
	}
	for _, c := range p.Comments {
		for _, r := range c.Replies {
			if r.CommentID != c.ID {
				return fmt.Errorf("%w: reply %s attached to wrong comment", ErrInvariant, r.ID)
			}
		}
	}
	return nil
}

// Changes returns the mutations recorded since the post was loaded
func (p *Post) Changes() []Change {
	return p.changes
}

// ClearChanges drops the recorded mutations once they are persisted
func (p *Post) ClearChanges() {
	p.changes = nil
}

// Clone returns a deep copy without recorded changes
func (p *Post) Clone() *Post {
	c := *p
	c.Tags = append([]string{}, p.Tags...)
	c.CodeBlocks = append([]CodeBlock{}, p.CodeBlocks...)
	c.Likes = p.Likes.Clone()
	c.Dislikes = p.Dislikes.Clone()
	c.Bookmarks = p.Bookmarks.Clone()
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	c.Comments = make([]*Comment, len(p.Comments))
	for i, cm := range p.Comments {
		c.Comments[i] = cm.clone()
	}
	c.changes = nil
	return &c
}

func (p *Post) record(ch Change) {
	p.changes = append(p.changes, ch)
}

// touch stamps updatedAt and, for activity, lastActivity (never before createdAt)
func (p *Post) touch(now time.Time, activity bool) {
	p.UpdatedAt = now
	if activity {
		if now.Before(p.CreatedAt) {
			now = p.CreatedAt
		}
		p.LastActivity = now
	}
}
