package models

import "time"

// Conversation represents a chat between users. For 1:1 chats PairKey holds
// the unordered participant pair as "min:max"; its unique index is what makes
// get-or-create race-free. Group chats leave PairKey nil.
type Conversation struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	IsGroupChat        bool      `json:"is_group_chat" gorm:"default:false"`
	PairKey            *string   `json:"-" gorm:"uniqueIndex;size:64"`
	LastMessageAt      time.Time `json:"last_message_at" gorm:"index"`
	LastMessagePreview string    `json:"last_message_preview" gorm:"size:120"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ConversationParticipant is the membership row of a user in a conversation,
// carrying that user's read cursor and mute flag.
type ConversationParticipant struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	ConversationID uint       `json:"conversation_id" gorm:"index;uniqueIndex:idx_conv_user"`
	UserID         uint       `json:"user_id" gorm:"index;uniqueIndex:idx_conv_user"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
	IsMuted        bool       `json:"is_muted" gorm:"default:false"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ConversationSummary is a conversation enriched with the caller's unread
// count and the resolved participant users.
type ConversationSummary struct {
	Conversation
	UnreadCount  int64         `json:"unread_count"`
	Participants []UserCompact `json:"participants"`
}

// CreateConversationRequest defines the request body for opening a 1:1 chat
type CreateConversationRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}
