package services

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/pkg/changefeed"
	"github.com/campusnet/backend/pkg/logger"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A second pool connection to :memory: would open a second empty
	// database, so concurrent callers must share the one connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Comment{},
		&models.Reaction{},
		&models.Follow{},
		&models.SavedPost{},
		&models.IdeaParticipant{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.Notification{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, FullName: username, Email: username + "@campus.edu"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// fakePublisher records change events instead of writing to a broker
type fakePublisher struct {
	events []changefeed.Event
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event changefeed.Event) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) typesSeen() []changefeed.EventType {
	types := make([]changefeed.EventType, len(f.events))
	for i, e := range f.events {
		types[i] = e.Type
	}
	return types
}

// stubPostRepo is an in-memory stand-in for the MongoDB post store
type stubPostRepo struct {
	posts map[string]*models.Post
}

func newStubPostRepo() *stubPostRepo {
	return &stubPostRepo{posts: make(map[string]*models.Post)}
}

func (s *stubPostRepo) add(userID uint, postType models.PostType) string {
	post := &models.Post{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		Content:    "content",
		PostType:   postType,
		Visibility: "public",
	}
	s.posts[post.ID.Hex()] = post
	return post.ID.Hex()
}

func (s *stubPostRepo) CreatePost(_ context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	s.posts[post.ID.Hex()] = post
	return nil
}

func (s *stubPostRepo) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	post, ok := s.posts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return post, nil
}

func (s *stubPostRepo) GetPostsByUserID(_ context.Context, userID uint, _, _ int64) ([]models.Post, error) {
	var out []models.Post
	for _, p := range s.posts {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubPostRepo) GetFeedPosts(_ context.Context, _ models.PostType, _, _ int64) ([]models.Post, error) {
	var out []models.Post
	for _, p := range s.posts {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubPostRepo) SearchPosts(_ context.Context, _ string, _ int64) ([]models.Post, error) {
	return nil, nil
}

func (s *stubPostRepo) UpdatePost(_ context.Context, id string, post *models.Post) error {
	if _, ok := s.posts[id]; !ok {
		return models.ErrNotFound
	}
	s.posts[id] = post
	return nil
}

func (s *stubPostRepo) DeletePost(_ context.Context, id string) error {
	if _, ok := s.posts[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *stubPostRepo) IncrementCommentsCount(_ context.Context, postID string, delta int) error {
	post, ok := s.posts[postID]
	if !ok {
		return models.ErrNotFound
	}
	post.CommentsCount += delta
	return nil
}

// fakeLive records realtime pushes per recipient
type fakeLive struct {
	pushes map[uint][]interface{}
}

func newFakeLive() *fakeLive {
	return &fakeLive{pushes: make(map[uint][]interface{})}
}

func (f *fakeLive) Publish(_ context.Context, userID uint, payload interface{}) error {
	f.pushes[userID] = append(f.pushes[userID], payload)
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger()
}

func uintStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decodeEvent(event changefeed.Event, into interface{}) error {
	return json.Unmarshal(event.Data, into)
}
