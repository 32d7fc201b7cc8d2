package repositories

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// toggleEdge is the single toggle primitive behind follows, saves and
// reactions-as-edges. It inserts the edge with ON CONFLICT DO NOTHING; when
// the store reports the row already exists, it deletes the existing row
// instead. The uniqueness constraint, not application locking, is what keeps
// concurrent toggles from the same user's devices from producing duplicates.
// Returns whether the edge is active after the call.
func toggleEdge[E any](db *gorm.DB, edge *E, query string, args ...interface{}) (bool, error) {
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(edge)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	if err := db.Where(query, args...).Delete(new(E)).Error; err != nil {
		return false, err
	}
	return false, nil
}

// insertEdgeIgnore inserts an edge and treats a uniqueness conflict as a
// no-op. Returns whether a new row was created.
func insertEdgeIgnore[E any](db *gorm.DB, edge *E) (bool, error) {
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(edge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
