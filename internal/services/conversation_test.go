package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/pkg/changefeed"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newConversation(t *testing.T) (*ConversationService, *fakePublisher, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	feed := &fakePublisher{}

	svc := NewConversationService(
		repositories.NewPostgresConversationRepository(db),
		repositories.NewPostgresMessageRepository(db),
		repositories.NewPostgresUserRepository(db),
		feed,
		nil,
		testLogger(),
	)
	return svc, feed, db
}

func TestGetOrCreateConverges(t *testing.T) {
	svc, feed, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conv1, created, err := svc.GetOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	// the other side opening the chat lands on the same conversation
	conv2, created, err := svc.GetOrCreate(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv1.ID, conv2.ID)

	var rows int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	assert.Equal(t, []changefeed.EventType{changefeed.EventConversationCreated}, feed.typesSeen())
}

func TestGetOrCreateConcurrent(t *testing.T) {
	svc, _, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	// both sides open the chat at once; the pair-key index decides the winner
	type result struct {
		convID  uint
		created bool
	}
	results := make(chan result, 2)
	errs := make(chan error, 2)

	var wg sync.WaitGroup
	for _, pair := range [][2]uint{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		wg.Add(1)
		go func(userID, otherID uint) {
			defer wg.Done()
			conv, created, err := svc.GetOrCreate(ctx, userID, otherID)
			if err != nil {
				errs <- err
				return
			}
			results <- result{convID: conv.ID, created: created}
		}(pair[0], pair[1])
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var ids []uint
	createdCount := 0
	for r := range results {
		ids = append(ids, r.convID)
		if r.created {
			createdCount++
		}
	}
	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, 1, createdCount, "exactly one side creates the conversation")

	var rows int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestGetOrCreateRejectsSelfAndUnknown(t *testing.T) {
	svc, _, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	_, _, err := svc.GetOrCreate(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, models.ErrSelfChat)

	_, _, err = svc.GetOrCreate(ctx, alice.ID, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSendAndReadFlow(t *testing.T) {
	svc, feed, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conv, _, err := svc.GetOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.Send(ctx, alice.ID, conv.ID, models.SendMessageRequest{Content: "hi"})
	require.NoError(t, err)
	assert.False(t, msg.IsRead)

	// the conversation surfaces the new message in its preview
	updated, err := repositories.NewPostgresConversationRepository(db).GetByID(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", updated.LastMessagePreview)

	// bob sees one unread, alice none
	unread, err := svc.TotalUnread(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
	unread, err = svc.TotalUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	require.NoError(t, svc.MarkRead(ctx, bob.ID, conv.ID))

	unread, err = svc.TotalUnread(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	msgs, err := svc.Messages(bob.ID, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsRead)

	var msgEvent changefeed.MessageEventData
	for _, e := range feed.events {
		if e.Type == changefeed.EventMessageCreated {
			require.NoError(t, decodeEvent(e, &msgEvent))
		}
	}
	assert.Equal(t, []uint{bob.ID}, msgEvent.RecipientIDs)
}

func TestMarkReadIdempotent(t *testing.T) {
	svc, _, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conv, _, err := svc.GetOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.Send(ctx, alice.ID, conv.ID, models.SendMessageRequest{Content: "hello"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, bob.ID, conv.ID))
	first, err := repositories.NewPostgresConversationRepository(db).GetParticipant(conv.ID, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, first.LastReadAt)

	require.NoError(t, svc.MarkRead(ctx, bob.ID, conv.ID))
	unread, err := svc.TotalUnread(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	second, err := repositories.NewPostgresConversationRepository(db).GetParticipant(conv.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, second.LastReadAt.Before(*first.LastReadAt), "read cursor never moves backwards")
}

func TestSendDeduplicatesByClientRef(t *testing.T) {
	svc, feed, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conv, _, err := svc.GetOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	ref := uuid.NewString()
	first, err := svc.Send(ctx, alice.ID, conv.ID, models.SendMessageRequest{Content: "once", ClientRef: ref})
	require.NoError(t, err)

	// the retry returns the stored row and appends nothing
	retry, err := svc.Send(ctx, alice.ID, conv.ID, models.SendMessageRequest{Content: "once", ClientRef: ref})
	require.NoError(t, err)
	assert.Equal(t, first.ID, retry.ID)

	msgs, err := svc.Messages(alice.ID, conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	var msgEvents int
	for _, e := range feed.events {
		if e.Type == changefeed.EventMessageCreated {
			msgEvents++
		}
	}
	assert.Equal(t, 1, msgEvents, "a deduplicated retry must not publish a second event")
}

func TestSendRejectsReplayedClientRef(t *testing.T) {
	svc, _, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	convBob, _, err := svc.GetOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	convCarol, _, err := svc.GetOrCreate(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	ref := uuid.NewString()
	_, err = svc.Send(ctx, alice.ID, convBob.ID, models.SendMessageRequest{Content: "for bob only", ClientRef: ref})
	require.NoError(t, err)

	// another user replaying the ref must not receive the foreign row
	_, err = svc.Send(ctx, carol.ID, convCarol.ID, models.SendMessageRequest{Content: "stolen ref", ClientRef: ref})
	assert.ErrorIs(t, err, models.ErrClientRefUsed)

	// the same sender reusing the ref in another conversation is rejected too
	_, err = svc.Send(ctx, alice.ID, convCarol.ID, models.SendMessageRequest{Content: "wrong chat", ClientRef: ref})
	assert.ErrorIs(t, err, models.ErrClientRefUsed)

	msgs, err := svc.Messages(carol.ID, convCarol.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = svc.Messages(bob.ID, convBob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "for bob only", msgs[0].Content)
}

func TestSendValidation(t *testing.T) {
	svc, _, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	eve := createUser(t, db, "eve")

	conv, _, err := svc.GetOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.Send(ctx, alice.ID, conv.ID, models.SendMessageRequest{})
	assert.ErrorIs(t, err, models.ErrEmptyMessage)

	_, err = svc.Send(ctx, eve.ID, conv.ID, models.SendMessageRequest{Content: "let me in"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.Send(ctx, alice.ID, 9999, models.SendMessageRequest{Content: "void"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, svc.MarkRead(ctx, eve.ID, conv.ID), models.ErrForbidden)
	_, err = svc.Messages(eve.ID, conv.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestMessageOrderingAndSoftDelete(t *testing.T) {
	svc, _, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conv, _, err := svc.GetOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	first, err := svc.Send(ctx, alice.ID, conv.ID, models.SendMessageRequest{Content: "one"})
	require.NoError(t, err)
	second, err := svc.Send(ctx, bob.ID, conv.ID, models.SendMessageRequest{Content: "two"})
	require.NoError(t, err)
	third, err := svc.Send(ctx, alice.ID, conv.ID, models.SendMessageRequest{Content: "three"})
	require.NoError(t, err)

	msgs, err := svc.Messages(alice.ID, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []uint{first.ID, second.ID, third.ID}, []uint{msgs[0].ID, msgs[1].ID, msgs[2].ID})

	// only the sender may delete
	assert.ErrorIs(t, svc.DeleteMessage(ctx, alice.ID, second.ID), models.ErrForbidden)

	require.NoError(t, svc.DeleteMessage(ctx, bob.ID, second.ID))
	msgs, err = svc.Messages(alice.ID, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, third.ID, msgs[1].ID)

	// the row is retained, only hidden
	var total int64
	require.NoError(t, db.Model(&models.Message{}).Where("conversation_id = ?", conv.ID).Count(&total).Error)
	assert.Equal(t, int64(3), total)

	// a deleted message is gone for edit and delete
	_, err = svc.EditMessage(ctx, bob.ID, second.ID, "resurrect")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteMessage(ctx, bob.ID, second.ID), models.ErrNotFound)
}

func TestDeletedMessagesLeaveUnreadCount(t *testing.T) {
	svc, _, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conv, _, err := svc.GetOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.Send(ctx, alice.ID, conv.ID, models.SendMessageRequest{Content: "oops"})
	require.NoError(t, err)

	unread, err := svc.TotalUnread(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	require.NoError(t, svc.DeleteMessage(ctx, alice.ID, msg.ID))

	unread, err = svc.TotalUnread(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestEditMessage(t *testing.T) {
	svc, _, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conv, _, err := svc.GetOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	msg, err := svc.Send(ctx, alice.ID, conv.ID, models.SendMessageRequest{Content: "typo"})
	require.NoError(t, err)

	_, err = svc.EditMessage(ctx, bob.ID, msg.ID, "not yours")
	assert.ErrorIs(t, err, models.ErrForbidden)

	edited, err := svc.EditMessage(ctx, alice.ID, msg.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Content)
	require.NotNil(t, edited.EditedAt)
	assert.WithinDuration(t, time.Now(), *edited.EditedAt, 5*time.Second)
}

func TestListForUserSummaries(t *testing.T) {
	svc, _, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	convBob, _, err := svc.GetOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	convCarol, _, err := svc.GetOrCreate(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	_, err = svc.Send(ctx, bob.ID, convBob.ID, models.SendMessageRequest{Content: "early"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = svc.Send(ctx, carol.ID, convCarol.ID, models.SendMessageRequest{Content: "late"})
	require.NoError(t, err)

	summaries, err := svc.ListForUser(alice.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// most recent activity first
	assert.Equal(t, convCarol.ID, summaries[0].ID)
	assert.Equal(t, int64(1), summaries[0].UnreadCount)
	assert.Len(t, summaries[0].Participants, 2)
	assert.Equal(t, convBob.ID, summaries[1].ID)
}

func TestSetMuted(t *testing.T) {
	svc, _, db := newConversation(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	eve := createUser(t, db, "eve")

	conv, _, err := svc.GetOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, svc.SetMuted(bob.ID, conv.ID, true))
	p, err := repositories.NewPostgresConversationRepository(db).GetParticipant(conv.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, p.IsMuted)

	assert.ErrorIs(t, svc.SetMuted(eve.ID, conv.ID, true), models.ErrForbidden)
}
