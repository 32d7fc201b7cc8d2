package repositories

import (
	"testing"
	"time"

	"github.com/campusnet/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newNotificationDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, recipientID uint, createdAt time.Time) *models.Notification {
	t.Helper()
	n := &models.Notification{
		Type:        models.NotificationLike,
		ActorID:     99,
		RecipientID: recipientID,
		TargetID:    "abc",
		TargetType:  "post",
		Message:     "someone liked your post",
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Create(n).Error)
	return n
}

func TestGetGroupedBuckets(t *testing.T) {
	db := newNotificationDB(t)
	repo := NewPostgresNotificationRepository(db)

	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	seedNotification(t, db, 1, todayStart.Add(time.Minute))
	seedNotification(t, db, 1, todayStart.Add(-time.Hour))
	seedNotification(t, db, 1, todayStart.Add(-2*24*time.Hour))
	seedNotification(t, db, 1, todayStart.Add(-30*24*time.Hour))
	seedNotification(t, db, 2, todayStart.Add(time.Minute)) // someone else's

	today, yesterday, thisWeek, older, err := repo.GetGrouped(1)
	require.NoError(t, err)
	assert.Len(t, today, 1)
	assert.Len(t, yesterday, 1)
	assert.Len(t, thisWeek, 1)
	assert.Len(t, older, 1)
}

func TestMarkAsReadScopedToRecipient(t *testing.T) {
	db := newNotificationDB(t)
	repo := NewPostgresNotificationRepository(db)

	n := seedNotification(t, db, 1, time.Now())

	// another user cannot flip it
	assert.ErrorIs(t, repo.MarkAsRead(n.ID, 2), gorm.ErrRecordNotFound)

	require.NoError(t, repo.MarkAsRead(n.ID, 1))
	count, err := repo.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkAllAsRead(t *testing.T) {
	db := newNotificationDB(t)
	repo := NewPostgresNotificationRepository(db)

	seedNotification(t, db, 1, time.Now())
	seedNotification(t, db, 1, time.Now().Add(-time.Hour))
	seedNotification(t, db, 2, time.Now())

	require.NoError(t, repo.MarkAllAsRead(1))

	count, err := repo.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.GetUnreadCount(2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
