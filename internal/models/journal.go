package models

// ChangeKind identifies a set or sequence mutation on a post
type ChangeKind int

// Change kinds
const (
	ReactionAdded ChangeKind = iota + 1
	ReactionRemoved
	CommentAdded
	CommentDeleted
	CommentLikeAdded
	CommentLikeRemoved
	ReplyAdded
)

// Change records one mutation of a post's embedded collections so a backend
// can persist it as an independent atomic update instead of rewriting the document.
type Change struct {
	Kind      ChangeKind
	Reaction  ReactionKind
	ActorID   string
	CommentID string
	ReplyID   string
}

// Reply looks up a reply recorded by a ReplyAdded change
func (p *Post) Reply(commentID, replyID string) (*Reply, bool) {
	c, ok := p.Comment(commentID)
	if !ok {
		return nil, false
	}
	for i := range c.Replies {
		if c.Replies[i].ID == replyID {
			return &c.Replies[i], true
		}
	}
	return nil, false
}
