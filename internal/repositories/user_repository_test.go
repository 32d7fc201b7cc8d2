package repositories

import (
	"testing"

	"github.com/campusnet/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newUserDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func TestCreateMultipleLocalUsers(t *testing.T) {
	repo := NewPostgresUserRepository(newUserDB(t))

	// local signups carry no Firebase UID; more than one must coexist
	require.NoError(t, repo.CreateUser(&models.User{Username: "alice", FullName: "Alice", Email: "alice@campus.edu"}))
	require.NoError(t, repo.CreateUser(&models.User{Username: "bob", FullName: "Bob", Email: "bob@campus.edu"}))
	require.NoError(t, repo.CreateUser(&models.User{Username: "carol", FullName: "Carol", Email: "carol@campus.edu"}))

	user, err := repo.GetUserByUsername("bob")
	require.NoError(t, err)
	assert.Nil(t, user.FirebaseUID)
}

func TestFirebaseUIDStaysUnique(t *testing.T) {
	repo := NewPostgresUserRepository(newUserDB(t))

	uid := "firebase-uid-1"
	require.NoError(t, repo.CreateUser(&models.User{Username: "alice", Email: "alice@campus.edu", FirebaseUID: &uid}))

	dup := uid
	err := repo.CreateUser(&models.User{Username: "imposter", Email: "imposter@campus.edu", FirebaseUID: &dup})
	assert.Error(t, err)

	user, err := repo.GetUserByFirebaseUID(uid)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}
