package models

import "time"

// NotificationType enumerates the events a user can be notified about
type NotificationType string

const (
	NotificationLike     NotificationType = "like"
	NotificationReaction NotificationType = "reaction"
	NotificationComment  NotificationType = "comment"
	NotificationFollow   NotificationType = "follow"
	NotificationJoin     NotificationType = "join"
	NotificationMention  NotificationType = "mention"
	NotificationMessage  NotificationType = "message"
)

// Notification represents a user notification (PostgreSQL). Rows are created
// exclusively by the dispatcher; only the recipient may flip IsRead.
type Notification struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	Type        NotificationType `json:"type" gorm:"size:30;index"`
	ActorID     uint             `json:"actor_id" gorm:"index"`
	RecipientID uint             `json:"recipient_id" gorm:"index"`
	TargetID    string           `json:"target_id"`                  // post ID, comment ID, conversation ID
	TargetType  string           `json:"target_type" gorm:"size:20"` // post, comment, user, conversation
	Message     string           `json:"message"`
	IsRead      bool             `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time        `json:"created_at" gorm:"index"`
}
