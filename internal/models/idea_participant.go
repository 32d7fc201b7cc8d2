package models

import "time"

// IdeaParticipant represents a user joined to an idea-typed post. Joining is
// only valid against idea posts; the participant count is the edge cardinality.
type IdeaParticipant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" gorm:"index;uniqueIndex:idx_idea_post_user"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_idea_post_user"`
	CreatedAt time.Time `json:"created_at"`
}
