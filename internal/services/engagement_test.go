package services

import (
	"context"
	"testing"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/pkg/changefeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newEngagement(t *testing.T) (*EngagementService, *stubPostRepo, *fakePublisher, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	posts := newStubPostRepo()
	feed := &fakePublisher{}

	svc := NewEngagementService(
		posts,
		repositories.NewPostgresCommentRepository(db),
		repositories.NewPostgresReactionRepository(db),
		repositories.NewPostgresFollowRepository(db),
		repositories.NewPostgresSavedPostRepository(db),
		repositories.NewPostgresIdeaParticipantRepository(db),
		repositories.NewPostgresUserRepository(db),
		feed,
		testLogger(),
	)
	return svc, posts, feed, db
}

func TestSetReactionToggleCycle(t *testing.T) {
	svc, posts, feed, db := newEngagement(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	viewer := createUser(t, db, "viewer")
	postID := posts.add(owner.ID, models.PostTypeText)

	// like: none -> like
	state, err := svc.SetReaction(ctx, viewer.ID, models.TargetPost, postID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionLike, state)

	// love: like -> love, replaced in place
	state, err = svc.SetReaction(ctx, viewer.ID, models.TargetPost, postID, models.ReactionLove)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionLove, state)

	var rows int64
	require.NoError(t, db.Model(&models.Reaction{}).Where("user_id = ?", viewer.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "replacing a reaction must not add a second row")

	// love again: love -> none
	state, err = svc.SetReaction(ctx, viewer.ID, models.TargetPost, postID, models.ReactionLove)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionType(""), state)

	require.NoError(t, db.Model(&models.Reaction{}).Where("user_id = ?", viewer.ID).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)

	count, err := svc.CountReactions(models.TargetPost, postID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	assert.Equal(t, []changefeed.EventType{
		changefeed.EventReactionSet,
		changefeed.EventReactionSet,
		changefeed.EventReactionCleared,
	}, feed.typesSeen())
}

func TestSetReactionUnknownTarget(t *testing.T) {
	svc, _, _, db := newEngagement(t)
	viewer := createUser(t, db, "viewer")

	_, err := svc.SetReaction(context.Background(), viewer.ID, models.TargetPost, "64b0c1d2e3f4a5b6c7d8e9f0", models.ReactionLike)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSetReactionOnComment(t *testing.T) {
	svc, posts, feed, db := newEngagement(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	commenter := createUser(t, db, "commenter")
	viewer := createUser(t, db, "viewer")
	postID := posts.add(owner.ID, models.PostTypeText)

	comment, err := svc.PostComment(ctx, commenter.ID, postID, nil, "nice one")
	require.NoError(t, err)

	feed.events = nil
	state, err := svc.SetReaction(ctx, viewer.ID, models.TargetComment, uintStr(comment.ID), models.ReactionFire)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionFire, state)

	require.Len(t, feed.events, 1)
	var data changefeed.ReactionEventData
	require.NoError(t, decodeEvent(feed.events[0], &data))
	assert.Equal(t, commenter.ID, data.OwnerID, "comment reactions notify the comment author")
	assert.Equal(t, postID, data.PostID)
}

func TestPostCommentParentValidation(t *testing.T) {
	svc, posts, _, db := newEngagement(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	postID := posts.add(owner.ID, models.PostTypeText)
	otherPostID := posts.add(owner.ID, models.PostTypeText)

	top, err := svc.PostComment(ctx, owner.ID, postID, nil, "top level")
	require.NoError(t, err)

	reply, err := svc.PostComment(ctx, owner.ID, postID, &top.ID, "a reply")
	require.NoError(t, err)
	assert.True(t, reply.IsReply())

	// reply to a reply
	_, err = svc.PostComment(ctx, owner.ID, postID, &reply.ID, "too deep")
	assert.ErrorIs(t, err, models.ErrInvalidParent)

	// parent on a different post
	_, err = svc.PostComment(ctx, owner.ID, otherPostID, &top.ID, "wrong post")
	assert.ErrorIs(t, err, models.ErrInvalidParent)

	// parent that does not exist
	missing := uint(9999)
	_, err = svc.PostComment(ctx, owner.ID, postID, &missing, "orphan")
	assert.ErrorIs(t, err, models.ErrInvalidParent)
}

func TestCommentCountTracksCreateAndDelete(t *testing.T) {
	svc, posts, _, db := newEngagement(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	postID := posts.add(owner.ID, models.PostTypeText)

	comment, err := svc.PostComment(ctx, owner.ID, postID, nil, "first")
	require.NoError(t, err)
	assert.Equal(t, 1, posts.posts[postID].CommentsCount)

	require.NoError(t, svc.DeleteComment(ctx, owner.ID, comment.ID))
	assert.Equal(t, 0, posts.posts[postID].CommentsCount)
}

func TestDeleteTopLevelCommentRemovesReplies(t *testing.T) {
	svc, posts, _, db := newEngagement(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	postID := posts.add(owner.ID, models.PostTypeText)

	top, err := svc.PostComment(ctx, owner.ID, postID, nil, "top")
	require.NoError(t, err)
	_, err = svc.PostComment(ctx, owner.ID, postID, &top.ID, "reply one")
	require.NoError(t, err)
	_, err = svc.PostComment(ctx, owner.ID, postID, &top.ID, "reply two")
	require.NoError(t, err)
	assert.Equal(t, 3, posts.posts[postID].CommentsCount)

	// the replies go with the parent and the counter matches what is visible
	require.NoError(t, svc.DeleteComment(ctx, owner.ID, top.ID))
	assert.Equal(t, 0, posts.posts[postID].CommentsCount)

	threads, err := svc.ListComments(ctx, owner.ID, postID)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestDeleteReplyDecrementsByOne(t *testing.T) {
	svc, posts, _, db := newEngagement(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	postID := posts.add(owner.ID, models.PostTypeText)

	top, err := svc.PostComment(ctx, owner.ID, postID, nil, "top")
	require.NoError(t, err)
	reply, err := svc.PostComment(ctx, owner.ID, postID, &top.ID, "reply")
	require.NoError(t, err)
	assert.Equal(t, 2, posts.posts[postID].CommentsCount)

	require.NoError(t, svc.DeleteComment(ctx, owner.ID, reply.ID))
	assert.Equal(t, 1, posts.posts[postID].CommentsCount)

	threads, err := svc.ListComments(ctx, owner.ID, postID)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Empty(t, threads[0].Replies)
}

func TestEditCommentAuthorOnly(t *testing.T) {
	svc, posts, _, db := newEngagement(t)
	ctx := context.Background()
	author := createUser(t, db, "author")
	other := createUser(t, db, "other")
	postID := posts.add(author.ID, models.PostTypeText)

	comment, err := svc.PostComment(ctx, author.ID, postID, nil, "original")
	require.NoError(t, err)

	_, err = svc.EditComment(other.ID, comment.ID, "hijacked")
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteComment(ctx, other.ID, comment.ID), models.ErrForbidden)

	edited, err := svc.EditComment(author.ID, comment.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Content)
	assert.NotNil(t, edited.EditedAt)
}

func TestListCommentsThreads(t *testing.T) {
	svc, posts, _, db := newEngagement(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	postID := posts.add(owner.ID, models.PostTypeText)

	first, err := svc.PostComment(ctx, owner.ID, postID, nil, "first")
	require.NoError(t, err)
	second, err := svc.PostComment(ctx, owner.ID, postID, nil, "second")
	require.NoError(t, err)
	_, err = svc.PostComment(ctx, owner.ID, postID, &first.ID, "reply to first")
	require.NoError(t, err)

	threads, err := svc.ListComments(ctx, owner.ID, postID)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, first.ID, threads[0].ID)
	assert.Equal(t, second.ID, threads[1].ID)
	assert.Len(t, threads[0].Replies, 1)
	assert.Empty(t, threads[1].Replies)
}

func TestToggleFollow(t *testing.T) {
	svc, _, feed, db := newEngagement(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	_, err := svc.ToggleFollow(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, models.ErrSelfFollow)

	_, err = svc.ToggleFollow(ctx, alice.ID, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)

	following, err := svc.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	following, err = svc.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	assert.Equal(t, []changefeed.EventType{
		changefeed.EventFollowCreated,
		changefeed.EventFollowDeleted,
	}, feed.typesSeen())
}

func TestJoinIdeaIdempotent(t *testing.T) {
	svc, posts, feed, db := newEngagement(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	member := createUser(t, db, "member")
	ideaID := posts.add(owner.ID, models.PostTypeIdea)
	textID := posts.add(owner.ID, models.PostTypeText)

	assert.ErrorIs(t, svc.JoinIdea(ctx, member.ID, textID), models.ErrNotIdeaPost)

	require.NoError(t, svc.JoinIdea(ctx, member.ID, ideaID))
	// a double click joins again; the count must not move
	require.NoError(t, svc.JoinIdea(ctx, member.ID, ideaID))

	count, err := svc.IdeaParticipantCount(ideaID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, []changefeed.EventType{changefeed.EventIdeaJoined}, feed.typesSeen())

	require.NoError(t, svc.LeaveIdea(ctx, member.ID, ideaID))
	count, err = svc.IdeaParticipantCount(ideaID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// leaving when not a participant publishes nothing further
	events := len(feed.events)
	require.NoError(t, svc.LeaveIdea(ctx, member.ID, ideaID))
	assert.Len(t, feed.events, events)
}

func TestToggleSave(t *testing.T) {
	svc, posts, _, db := newEngagement(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	reader := createUser(t, db, "reader")
	postID := posts.add(owner.ID, models.PostTypeText)

	saved, err := svc.ToggleSave(ctx, reader.ID, postID)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = svc.ToggleSave(ctx, reader.ID, postID)
	require.NoError(t, err)
	assert.False(t, saved)
}
