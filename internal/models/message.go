package models

import "time"

// Message represents a single message in a conversation. Deleted messages are
// soft-deleted: DeletedAt is set and every read path filters it out, but the
// row stays. ClientRef is a client-generated UUID with a unique index so a
// retried send can never append the same message twice.
type Message struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	ConversationID uint       `json:"conversation_id" gorm:"index"`
	SenderID       uint       `json:"sender_id" gorm:"index"`
	Content        string     `json:"content"`
	ImageURL       string     `json:"image_url,omitempty"`
	ClientRef      *string    `json:"client_ref,omitempty" gorm:"uniqueIndex;size:64"`
	IsRead         bool       `json:"is_read" gorm:"default:false;index"`
	CreatedAt      time.Time  `json:"created_at" gorm:"index"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// SendMessageRequest defines the request body for sending a message
type SendMessageRequest struct {
	Content   string `json:"content" validate:"omitempty,max=2000"`
	ImageURL  string `json:"image_url,omitempty" validate:"omitempty,url"`
	ClientRef string `json:"client_ref,omitempty" validate:"omitempty,uuid4"`
}

// EditMessageRequest defines the request body for editing a message
type EditMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}
