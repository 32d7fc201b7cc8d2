package repositories

import (
	"github.com/campusnet/backend/internal/models"
	"gorm.io/gorm"
)

// IdeaParticipantRepository defines the interface for idea participation
// edges. Join is idempotent: a second join of the same user is a no-op, so a
// double-click can never raise the participant count by two.
type IdeaParticipantRepository interface {
	Join(userID uint, postID string) (bool, error)
	Leave(userID uint, postID string) (bool, error)
	IsParticipant(userID uint, postID string) (bool, error)
	CountByPostID(postID string) (int64, error)
	GetParticipantIDs(postID string) ([]uint, error)
}

// PostgresIdeaParticipantRepository implements IdeaParticipantRepository
type PostgresIdeaParticipantRepository struct {
	db *gorm.DB
}

func NewPostgresIdeaParticipantRepository(db *gorm.DB) *PostgresIdeaParticipantRepository {
	return &PostgresIdeaParticipantRepository{db: db}
}

func (r *PostgresIdeaParticipantRepository) Join(userID uint, postID string) (bool, error) {
	return insertEdgeIgnore(r.db, &models.IdeaParticipant{UserID: userID, PostID: postID})
}

func (r *PostgresIdeaParticipantRepository) Leave(userID uint, postID string) (bool, error) {
	res := r.db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.IdeaParticipant{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresIdeaParticipantRepository) IsParticipant(userID uint, postID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.IdeaParticipant{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresIdeaParticipantRepository) CountByPostID(postID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.IdeaParticipant{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func (r *PostgresIdeaParticipantRepository) GetParticipantIDs(postID string) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.IdeaParticipant{}).Where("post_id = ?", postID).Pluck("user_id", &ids).Error
	return ids, err
}
