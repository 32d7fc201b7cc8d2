package repositories

import (
	"fmt"
	"time"

	"github.com/campusnet/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository defines the interface for conversation data
// operations. 1:1 conversations are deduplicated by a unique index on the
// unordered participant pair, so concurrent get-or-create calls from both
// sides converge on the same row.
type ConversationRepository interface {
	GetOrCreatePair(userA, userB uint) (*models.Conversation, bool, error)
	GetByID(id uint) (*models.Conversation, error)
	ListForUser(userID uint) ([]models.Conversation, error)
	GetParticipant(conversationID, userID uint) (*models.ConversationParticipant, error)
	GetParticipants(conversationID uint) ([]models.ConversationParticipant, error)
	SetMuted(conversationID, userID uint, muted bool) error
}

// PostgresConversationRepository implements ConversationRepository
type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewPostgresConversationRepository(db *gorm.DB) *PostgresConversationRepository {
	return &PostgresConversationRepository{db: db}
}

// pairKey builds the canonical "min:max" key for an unordered user pair
func pairKey(userA, userB uint) string {
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%d:%d", lo, hi)
}

// GetOrCreatePair finds the 1:1 conversation for the pair or creates it with
// both participant rows in one transaction. When the insert loses a race the
// unique index reports a conflict and the winner's row is returned instead.
func (r *PostgresConversationRepository) GetOrCreatePair(userA, userB uint) (*models.Conversation, bool, error) {
	key := pairKey(userA, userB)

	var conv models.Conversation
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		conv = models.Conversation{PairKey: &key, LastMessageAt: now}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&conv)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tx.Where("pair_key = ?", key).First(&conv).Error
		}
		created = true

		participants := []models.ConversationParticipant{
			{ConversationID: conv.ID, UserID: userA},
			{ConversationID: conv.ID, UserID: userB},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &conv, created, nil
}

func (r *PostgresConversationRepository) GetByID(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.First(&conv, id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser returns the user's conversations, most recent activity first
func (r *PostgresConversationRepository) ListForUser(userID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id AND cp.user_id = ?", userID).
		Order("conversations.last_message_at DESC").
		Find(&convs).Error
	return convs, err
}

func (r *PostgresConversationRepository) GetParticipant(conversationID, userID uint) (*models.ConversationParticipant, error) {
	var p models.ConversationParticipant
	err := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresConversationRepository) GetParticipants(conversationID uint) ([]models.ConversationParticipant, error) {
	var ps []models.ConversationParticipant
	err := r.db.Where("conversation_id = ?", conversationID).Find(&ps).Error
	return ps, err
}

func (r *PostgresConversationRepository) SetMuted(conversationID, userID uint, muted bool) error {
	res := r.db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("is_muted", muted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
