package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a post. Nesting is a single level: a reply
// carries the ID of a top-level comment in ParentID, and a reply may never be
// a parent itself.
type Comment struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	PostID    string         `json:"post_id" gorm:"index"` // hex ObjectID of the MongoDB post
	UserID    uint           `json:"user_id" gorm:"index"`
	ParentID  *uint          `json:"parent_id,omitempty" gorm:"index"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	EditedAt  *time.Time     `json:"edited_at,omitempty"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsReply reports whether the comment is a second-level reply
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// CommentThread is a top-level comment with its replies and reaction state
// for the requesting user.
type CommentThread struct {
	Comment
	Replies        []Comment    `json:"replies"`
	ReactionsCount int64        `json:"reactions_count"`
	UserReaction   ReactionType `json:"user_reaction,omitempty"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=500"`
	ParentID *uint  `json:"parent_id,omitempty"`
}

// UpdateCommentRequest defines the request body for updating an existing comment
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=500"`
}
