package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Field length limits, counted in characters
const (
	MaxTitleLength   = 200
	MaxContentLength = 10000
	MaxTagLength     = 30
	MaxCommentLength = 1000
	MaxReplyLength   = 500
)

// PostInput is the caller-supplied content of a new post
type PostInput struct {
	Title      string      `json:"title" validate:"notblank,max=200"`
	Content    string      `json:"content" validate:"notblank,max=10000"`
	Category   Category    `json:"category" validate:"required,enum"`
	Tags       []string    `json:"tags" validate:"dive,max=30"`
	CodeBlocks []CodeBlock `json:"codeBlocks" validate:"dive"`
	Difficulty Difficulty  `json:"difficulty" validate:"enum"`
	Status     Status      `json:"status" validate:"enum"`
}

func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Difficulty == "" {
		in.Difficulty = DifficultyIntro
	}
	if in.Status == "" {
		in.Status = StatusDiscussing
	}
	in.CodeBlocks = normalizeCodeBlocks(in.CodeBlocks)
}

// Validate checks required fields, lengths and enumerations
func (in PostInput) Validate() error {
	return fieldErrors(validate.Struct(in))
}

// PostPatch is a partial update. Nil fields are left unchanged.
// ID and AuthorID exist only so attempts to change them can be rejected.
type PostPatch struct {
	ID         *string      `json:"id,omitempty"`
	AuthorID   *string      `json:"authorId,omitempty"`
	Title      *string      `json:"title,omitempty" validate:"omitempty,notblank,max=200"`
	Content    *string      `json:"content,omitempty" validate:"omitempty,notblank,max=10000"`
	Category   *Category    `json:"category,omitempty" validate:"omitempty,enum"`
	Tags       *[]string    `json:"tags,omitempty" validate:"omitempty,dive,max=30"`
	CodeBlocks *[]CodeBlock `json:"codeBlocks,omitempty" validate:"omitempty,dive"`
	Status     *Status      `json:"status,omitempty" validate:"omitempty,enum"`
	Difficulty *Difficulty  `json:"difficulty,omitempty" validate:"omitempty,enum"`
	IsSticky   *bool        `json:"isSticky,omitempty"`
	IsClosed   *bool        `json:"isClosed,omitempty"`
}

// Validate checks every provided field
func (pp PostPatch) Validate() error {
	ve := &ValidationError{}
	if pp.ID != nil {
		ve.Add("id", "id is immutable")
	}
	if pp.AuthorID != nil {
		ve.Add("authorId", "authorId is immutable")
	}
	if pp.Title != nil {
		title := strings.TrimSpace(*pp.Title)
		pp.Title = &title
	}
	if err := validate.Struct(pp); err != nil {
		fe, ok := fieldErrors(err).(*ValidationError)
		if !ok {
			return err
		}
		ve.Fields = append(ve.Fields, fe.Fields...)
	}
	return ve.OrNil()
}

// Apply copies the provided fields onto p. The patch must already be valid.
func (p *Post) Apply(pp PostPatch, now time.Time) {
	if pp.Title != nil {
		p.Title = strings.TrimSpace(*pp.Title)
	}
	if pp.Content != nil {
		p.Content = *pp.Content
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.Tags != nil {
		p.Tags = append([]string{}, (*pp.Tags)...)
	}
	if pp.CodeBlocks != nil {
		p.CodeBlocks = normalizeCodeBlocks(*pp.CodeBlocks)
	}
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	if pp.Difficulty != nil {
		p.Difficulty = *pp.Difficulty
	}
	if pp.IsSticky != nil {
		p.IsSticky = *pp.IsSticky
	}
	if pp.IsClosed != nil {
		p.IsClosed = *pp.IsClosed
	}
	p.touch(now, false)
}

// ValidateCommentContent checks a top-level comment body
func ValidateCommentContent(content string) error {
	return validateBody("content", content, MaxCommentLength)
}

// ValidateReplyContent checks a reply body
func ValidateReplyContent(content string) error {
	return validateBody("content", content, MaxReplyLength)
}

func validateBody(field, content string, max int) error {
	err := validate.Var(content, fmt.Sprintf("notblank,max=%d", max))
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range errs {
		ve.Add(field, fieldMessage(field, fe))
	}
	return ve
}

func normalizeCodeBlocks(blocks []CodeBlock) []CodeBlock {
	out := make([]CodeBlock, len(blocks))
	for i, b := range blocks {
		if b.Language == "" {
			b.Language = DefaultCodeLanguage
		}
		out[i] = b
	}
	return out
}
