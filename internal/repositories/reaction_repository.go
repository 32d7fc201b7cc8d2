package repositories

import (
	"github.com/campusnet/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository defines the interface for reaction data operations. The
// (user, target) pair is unique at the store level; replacing a reaction of a
// different type is a single in-place UPDATE so readers never observe the
// target without the user's reaction mid-replace.
type ReactionRepository interface {
	Get(kind models.TargetKind, targetID string, userID uint) (*models.Reaction, error)
	Create(reaction *models.Reaction) error
	ReplaceType(id uint, t models.ReactionType) error
	Delete(id uint) error
	CountByTarget(kind models.TargetKind, targetID string) (int64, error)
	GetUserReactions(userID uint, kind models.TargetKind, targetIDs []string) (map[string]models.ReactionType, error)
}

// PostgresReactionRepository implements ReactionRepository for PostgreSQL
type PostgresReactionRepository struct {
	db *gorm.DB
}

// NewPostgresReactionRepository creates a new PostgresReactionRepository
func NewPostgresReactionRepository(db *gorm.DB) *PostgresReactionRepository {
	return &PostgresReactionRepository{db: db}
}

// Get returns the user's reaction on a target, or nil when there is none
func (r *PostgresReactionRepository) Get(kind models.TargetKind, targetID string, userID uint) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.Where("target_kind = ? AND target_id = ? AND user_id = ?", kind, targetID, userID).
		First(&reaction).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reaction, nil
}

// Create inserts a reaction; a concurrent duplicate from another device of
// the same user is absorbed by the unique index and treated as success.
func (r *PostgresReactionRepository) Create(reaction *models.Reaction) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(reaction).Error
}

// ReplaceType swaps the reaction type in place
func (r *PostgresReactionRepository) ReplaceType(id uint, t models.ReactionType) error {
	return r.db.Model(&models.Reaction{}).Where("id = ?", id).Update("type", t).Error
}

func (r *PostgresReactionRepository) Delete(id uint) error {
	return r.db.Delete(&models.Reaction{}, id).Error
}

func (r *PostgresReactionRepository) CountByTarget(kind models.TargetKind, targetID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Reaction{}).
		Where("target_kind = ? AND target_id = ?", kind, targetID).
		Count(&count).Error
	return count, err
}

// GetUserReactions returns the user's reaction type per target for a batch of
// targets, for feed enrichment.
func (r *PostgresReactionRepository) GetUserReactions(userID uint, kind models.TargetKind, targetIDs []string) (map[string]models.ReactionType, error) {
	result := make(map[string]models.ReactionType)
	if len(targetIDs) == 0 {
		return result, nil
	}
	var reactions []models.Reaction
	err := r.db.Where("user_id = ? AND target_kind = ? AND target_id IN ?", userID, kind, targetIDs).
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	for _, re := range reactions {
		result[re.TargetID] = re.Type
	}
	return result, nil
}
