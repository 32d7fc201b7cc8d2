package models

import "time"

// ReactionType enumerates the supported reaction flavors
type ReactionType string

const (
	ReactionLike ReactionType = "like"
	ReactionLove ReactionType = "love"
	ReactionIdea ReactionType = "idea"
	ReactionFire ReactionType = "fire"
)

// ValidReactionType reports whether t is a known reaction type
func ValidReactionType(t ReactionType) bool {
	switch t {
	case ReactionLike, ReactionLove, ReactionIdea, ReactionFire:
		return true
	}
	return false
}

// TargetKind distinguishes what a reaction points at
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// Reaction represents a single user's reaction on a post or comment. The
// composite unique index guarantees at most one row per (user, target); a
// different type replaces the row in place rather than adding a second one.
type Reaction struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	TargetKind TargetKind   `json:"target_kind" gorm:"size:10;uniqueIndex:idx_reaction_user_target"`
	TargetID   string       `json:"target_id" gorm:"index;uniqueIndex:idx_reaction_user_target"`
	UserID     uint         `json:"user_id" gorm:"index;uniqueIndex:idx_reaction_user_target"`
	Type       ReactionType `json:"type" gorm:"size:10"`
	CreatedAt  time.Time    `json:"created_at"`
}

// SetReactionRequest defines the request body for setting a reaction
type SetReactionRequest struct {
	Type string `json:"type" validate:"required,oneof=like love idea fire"`
}
