package repositories

import (
	"time"

	"github.com/campusnet/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository defines the interface for message data operations.
// Append couples the message insert with the conversation's last-message
// fields in one transaction; read paths exclude soft-deleted rows and order
// by (created_at, id) so readers never see messages out of store order.
type MessageRepository interface {
	Append(message *models.Message, preview string) (bool, error)
	GetByID(id uint) (*models.Message, error)
	ListByConversation(conversationID uint) ([]models.Message, error)
	MarkConversationRead(conversationID, userID uint, at time.Time) error
	UnreadCountForUser(userID uint) (int64, error)
	UnreadCountByConversation(conversationID, userID uint) (int64, error)
	Edit(id uint, content string, at time.Time) error
	SoftDelete(id uint, at time.Time) error
}

// PostgresMessageRepository implements MessageRepository for PostgreSQL
type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

// Append inserts the message and updates the conversation's last_message_at
// and preview atomically. A duplicate client_ref means the same send was
// retried: the stored row is loaded into message and no second append
// happens, but only when it matches the retry's sender and conversation. A
// ref replayed by someone else, or into another conversation, is rejected
// instead of handing back the foreign row. Returns whether a new row was
// created.
func (r *PostgresMessageRepository) Append(message *models.Message, preview string) (bool, error) {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(message)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var existing models.Message
			if err := tx.Where("client_ref = ?", message.ClientRef).First(&existing).Error; err != nil {
				return err
			}
			if existing.ConversationID != message.ConversationID || existing.SenderID != message.SenderID {
				return models.ErrClientRefUsed
			}
			*message = existing
			return nil
		}
		created = true

		return tx.Model(&models.Conversation{}).
			Where("id = ?", message.ConversationID).
			Updates(map[string]interface{}{
				"last_message_at":      message.CreatedAt,
				"last_message_preview": preview,
				"updated_at":           message.CreatedAt,
			}).Error
	})
	return created, err
}

func (r *PostgresMessageRepository) GetByID(id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByConversation returns the non-deleted messages of a conversation in
// store order: creation time, with the row id as a stable tiebreak.
func (r *PostgresMessageRepository) ListByConversation(conversationID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.Where("conversation_id = ? AND deleted_at IS NULL", conversationID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// MarkConversationRead advances the participant's read cursor and flips
// is_read on every message the caller didn't send. The cursor only moves
// forward, so a stale retry can never rewind it, and re-running the whole
// operation is a no-op.
func (r *PostgresMessageRepository) MarkConversationRead(conversationID, userID uint, at time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ? AND (last_read_at IS NULL OR last_read_at < ?)", conversationID, userID, at).
			Update("last_read_at", at).Error; err != nil {
			return err
		}

		return tx.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, userID, false).
			Update("is_read", true).Error
	})
}

// UnreadCountForUser is the authoritative unread total: non-deleted messages
// in the user's conversations, sent by others, not yet read.
func (r *PostgresMessageRepository) UnreadCountForUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = messages.conversation_id AND cp.user_id = ?", userID).
		Where("messages.sender_id <> ? AND messages.is_read = ? AND messages.deleted_at IS NULL", userID, false).
		Count(&count).Error
	return count, err
}

func (r *PostgresMessageRepository) UnreadCountByConversation(conversationID, userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ? AND deleted_at IS NULL", conversationID, userID, false).
		Count(&count).Error
	return count, err
}

func (r *PostgresMessageRepository) Edit(id uint, content string, at time.Time) error {
	return r.db.Model(&models.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{"content": content, "edited_at": at}).Error
}

// SoftDelete marks the message deleted. The conversation preview is not
// recomputed, so deleting the last message leaves a stale preview.
func (r *PostgresMessageRepository) SoftDelete(id uint, at time.Time) error {
	return r.db.Model(&models.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at).Error
}
