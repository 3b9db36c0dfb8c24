package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/learnhub/community/internal/models"
	"github.com/learnhub/community/internal/ranking"
	"github.com/learnhub/community/internal/store"
	"github.com/learnhub/community/pkg/logging"
)

// PostStore persists posts in PostgreSQL. Mutations are optimistic: the post
// row carries a version and an update that finds a newer version reports
// models.ErrConflict. Set and sequence changes are written as single-row
// inserts and deletes inside the same transaction.
type PostStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ store.Store = (*PostStore)(nil)

// NewPostStore creates a post store over d
func NewPostStore(d *DB) *PostStore {
	return &PostStore{db: d.DB, logger: logging.WithComponent("db")}
}

// Create inserts p and everything embedded in it
func (s *PostStore) Create(ctx context.Context, p *models.Post) error {
	p.Version = 1
	g, err := toGraph(p)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&g.post).Error; err != nil {
			return err
		}
		if len(g.reactions) > 0 {
			if err := tx.Create(&g.reactions).Error; err != nil {
				return err
			}
		}
		if len(g.comments) > 0 {
			if err := tx.Create(&g.comments).Error; err != nil {
				return err
			}
		}
		if len(g.likes) > 0 {
			if err := tx.Create(&g.likes).Error; err != nil {
				return err
			}
		}
		if len(g.replies) > 0 {
			if err := tx.Create(&g.replies).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", store.ErrExists, p.ID)
	}
	if err != nil {
		return fmt.Errorf("create post %s: %w", p.ID, err)
	}
	p.ClearChanges()
	return nil
}

// Get loads a post, including soft-deleted ones
func (s *PostStore) Get(ctx context.Context, id string) (*models.Post, error) {
	var row postRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.PostNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load post %s: %w", id, err)
	}
	posts, err := s.assemble(ctx, []postRow{row})
	if err != nil {
		return nil, err
	}
	return posts[0], nil
}

// Mutate runs fn on the current post and commits the result if nobody else
// committed in between
func (s *PostStore) Mutate(ctx context.Context, id string, fn store.MutateFunc) (*models.Post, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := p.CheckInvariants(); err != nil {
		return nil, err
	}

	row, err := toPostRow(p)
	if err != nil {
		return nil, err
	}
	expected := p.Version

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&postRow{}).
			Where("id = ? AND version = ?", id, expected).
			Updates(scalarColumns(row, expected+1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post %s at version %d: %w", id, expected, models.ErrConflict)
		}
		for _, ch := range p.Changes() {
			if err := applyChange(tx, p, ch); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update post %s: %w", id, err)
	}

	p.Version = expected + 1
	p.ClearChanges()
	return p, nil
}

// scalarColumns lists every post column a mutation may change
func scalarColumns(row postRow, version int64) map[string]interface{} {
	return map[string]interface{}{
		"title":         row.Title,
		"content":       row.Content,
		"category":      row.Category,
		"tags":          row.Tags,
		"code_blocks":   row.CodeBlocks,
		"views":         row.Views,
		"is_sticky":     row.IsSticky,
		"is_closed":     row.IsClosed,
		"is_deleted":    row.IsDeleted,
		"deleted_at":    row.DeletedAt,
		"deleted_by":    row.DeletedBy,
		"status":        row.Status,
		"difficulty":    row.Difficulty,
		"last_activity": row.LastActivity,
		"updated_at":    row.UpdatedAt,
		"version":       version,
	}
}

func applyChange(tx *gorm.DB, p *models.Post, ch models.Change) error {
	switch ch.Kind {
	case models.ReactionAdded:
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reactionRow{
			PostID:    p.ID,
			ActorID:   ch.ActorID,
			Kind:      string(ch.Reaction),
			CreatedAt: p.UpdatedAt,
		}).Error
	case models.ReactionRemoved:
		return tx.Where("post_id = ? AND actor_id = ? AND kind = ?", p.ID, ch.ActorID, string(ch.Reaction)).
			Delete(&reactionRow{}).Error
	case models.CommentAdded:
		c, ok := p.Comment(ch.CommentID)
		if !ok {
			return fmt.Errorf("%w: journal names missing comment %s", models.ErrInvariant, ch.CommentID)
		}
		row := toCommentRow(p.ID, c)
		return tx.Create(&row).Error
	case models.CommentDeleted:
		c, ok := p.Comment(ch.CommentID)
		if !ok {
			return fmt.Errorf("%w: journal names missing comment %s", models.ErrInvariant, ch.CommentID)
		}
		return tx.Model(&commentRow{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": c.DeletedAt,
			"deleted_by": c.DeletedBy,
			"updated_at": c.UpdatedAt,
		}).Error
	case models.CommentLikeAdded:
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&commentLikeRow{
			CommentID: ch.CommentID,
			ActorID:   ch.ActorID,
			PostID:    p.ID,
		}).Error; err != nil {
			return err
		}
		return touchComment(tx, p, ch.CommentID)
	case models.CommentLikeRemoved:
		if err := tx.Where("comment_id = ? AND actor_id = ?", ch.CommentID, ch.ActorID).
			Delete(&commentLikeRow{}).Error; err != nil {
			return err
		}
		return touchComment(tx, p, ch.CommentID)
	case models.ReplyAdded:
		r, ok := p.Reply(ch.CommentID, ch.ReplyID)
		if !ok {
			return fmt.Errorf("%w: journal names missing reply %s", models.ErrInvariant, ch.ReplyID)
		}
		row := toReplyRow(p.ID, *r)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return touchComment(tx, p, ch.CommentID)
	}
	return fmt.Errorf("%w: unknown change kind %d", models.ErrInvariant, ch.Kind)
}

func touchComment(tx *gorm.DB, p *models.Post, commentID string) error {
	c, ok := p.Comment(commentID)
	if !ok {
		return fmt.Errorf("%w: journal names missing comment %s", models.ErrInvariant, commentID)
	}
	return tx.Model(&commentRow{}).Where("id = ?", commentID).Update("updated_at", c.UpdatedAt).Error
}

// Rank runs q in SQL and loads the page's posts
func (s *PostStore) Rank(ctx context.Context, q ranking.Query) (*ranking.Ranked, error) {
	base := s.filtered(s.db.WithContext(ctx).Model(&postRow{}), q)

	var agg matchStats
	if err := base.Session(&gorm.Session{}).Select("COUNT(*) AS total, MIN(created_at) AS oldest").Scan(&agg).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	ranked := &ranking.Ranked{Posts: []*models.Post{}, Total: int(agg.Total)}
	if agg.Oldest != nil {
		ranked.Oldest = agg.Oldest.UTC()
	}
	if int64(q.Offset) >= agg.Total {
		return ranked, nil
	}

	var rows []postRow
	page := base.Session(&gorm.Session{}).Order(orderClause(q.Sort)).Offset(q.Offset)
	if q.Limit > 0 {
		page = page.Limit(q.Limit)
	}
	if err := page.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("rank posts: %w", err)
	}

	posts, err := s.assemble(ctx, rows)
	if err != nil {
		return nil, err
	}
	ranked.Posts = posts
	return ranked, nil
}

// matchStats summarizes every row a ranking query matches
type matchStats struct {
	Total  int64
	Oldest *time.Time
}

const likeCountExpr = "(SELECT COUNT(*) FROM community_reactions r WHERE r.post_id = community_posts.id AND r.kind = 'like')"

// orderClause mirrors ranking.Less for each sort
func orderClause(sort ranking.Sort) string {
	switch sort {
	case ranking.SortPopular:
		return "views DESC, " + likeCountExpr + " DESC, created_at DESC, id ASC"
	case ranking.SortTrending:
		return "views DESC, " + likeCountExpr + " DESC, last_activity DESC, created_at DESC, id ASC"
	default:
		return "created_at DESC, id ASC"
	}
}

func (s *PostStore) filtered(tx *gorm.DB, q ranking.Query) *gorm.DB {
	tx = tx.Where("is_deleted = ?", false)
	if q.Category != "" {
		tx = tx.Where("category = ?", string(q.Category))
	}
	if len(q.Tags) > 0 {
		tx = tx.Where("EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) AS t(tag) WHERE t.tag IN ?)", q.Tags)
	}
	if !q.CreatedAfter.IsZero() {
		tx = tx.Where("created_at >= ?", q.CreatedAfter)
	}
	if cond, args := searchClause(ranking.SearchTerms(q.Search)); cond != "" {
		tx = tx.Where(cond, args...)
	}
	return tx
}

// searchClause ORs one condition per term, matching ranking.Matches
func searchClause(terms []string) (string, []interface{}) {
	if len(terms) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(terms))
	args := make([]interface{}, 0, len(terms)*3)
	for _, term := range terms {
		pattern := "%" + escapeLike(term) + "%"
		conds = append(conds, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\' OR `+
			`EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) AS t(tag) WHERE LOWER(t.tag) = ?))`)
		args = append(args, pattern, pattern, term)
	}
	return "(" + strings.Join(conds, " OR ") + ")", args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// assemble loads the child rows of every post in rows with one query per table
func (s *PostStore) assemble(ctx context.Context, rows []postRow) ([]*models.Post, error) {
	if len(rows) == 0 {
		return []*models.Post{}, nil
	}
	ids := make([]string, len(rows))
	graphs := make(map[string]*postGraph, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		graphs[row.ID] = &postGraph{post: row}
	}

	tx := s.db.WithContext(ctx)
	var reactions []reactionRow
	if err := tx.Where("post_id IN ?", ids).Order("created_at, actor_id").Find(&reactions).Error; err != nil {
		return nil, fmt.Errorf("load reactions: %w", err)
	}
	var comments []commentRow
	if err := tx.Where("post_id IN ?", ids).Order("post_id, seq").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	var likes []commentLikeRow
	if err := tx.Where("post_id IN ?", ids).Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("load comment likes: %w", err)
	}
	var replies []replyRow
	if err := tx.Where("post_id IN ?", ids).Order("comment_id, seq").Find(&replies).Error; err != nil {
		return nil, fmt.Errorf("load replies: %w", err)
	}

	for _, r := range reactions {
		graphs[r.PostID].reactions = append(graphs[r.PostID].reactions, r)
	}
	for _, c := range comments {
		graphs[c.PostID].comments = append(graphs[c.PostID].comments, c)
	}
	for _, l := range likes {
		graphs[l.PostID].likes = append(graphs[l.PostID].likes, l)
	}
	for _, r := range replies {
		graphs[r.PostID].replies = append(graphs[r.PostID].replies, r)
	}

	posts := make([]*models.Post, len(rows))
	for i, row := range rows {
		p, err := graphs[row.ID].toPost()
		if err != nil {
			s.logger.Error("Stored post is inconsistent", zap.String("post_id", row.ID), zap.Error(err))
			return nil, err
		}
		posts[i] = p
	}
	return posts, nil
}
