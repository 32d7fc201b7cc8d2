package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/pkg/changefeed"
	"github.com/campusnet/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	messagePreviewLen = 80
	unreadCacheTTL    = 30 * time.Second
)

// UnreadCache is the optional cache in front of the unread-count query. A nil
// cache disables caching; every read then hits the store.
type UnreadCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ConversationService owns direct messages: conversation dedup, message
// append, read cursors and unread counts. The store is the single source of
// truth for unread totals; the cache is only a short-lived copy that every
// write invalidates.
type ConversationService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	users         repositories.UserRepository
	feed          changefeed.Publisher
	cache         UnreadCache
	log           *logger.Logger
}

func NewConversationService(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	users repositories.UserRepository,
	feed changefeed.Publisher,
	cache UnreadCache,
	log *logger.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		feed:          feed,
		cache:         cache,
		log:           log,
	}
}

func unreadCacheKey(userID uint) string {
	return fmt.Sprintf("unread:%d", userID)
}

func (s *ConversationService) publish(ctx context.Context, key string, t changefeed.EventType, data interface{}) {
	event, err := changefeed.NewEvent(t, data)
	if err != nil {
		s.log.WithError(err).WithField("event", string(t)).Error("Failed to build change event")
		return
	}
	if err := s.feed.Publish(ctx, key, event); err != nil {
		s.log.WithError(err).WithField("event", string(t)).Error("Failed to publish change event")
	}
}

func (s *ConversationService) invalidateUnread(ctx context.Context, userIDs ...uint) {
	if s.cache == nil {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = unreadCacheKey(id)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.WithError(err).Error("Failed to invalidate unread cache")
	}
}

// requireParticipant loads the conversation and the caller's membership row.
// A missing conversation is ErrNotFound; an existing conversation the caller
// is not in is ErrForbidden.
func (s *ConversationService) requireParticipant(conversationID, userID uint) (*models.ConversationParticipant, error) {
	if _, err := s.conversations.GetByID(conversationID); err != nil {
		return nil, asNotFound(err)
	}
	p, err := s.conversations.GetParticipant(conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrForbidden
		}
		return nil, err
	}
	return p, nil
}

// GetOrCreate returns the 1:1 conversation between the caller and another
// user, creating it if needed. Both users calling at once converge on the
// same conversation; a self chat is rejected.
func (s *ConversationService) GetOrCreate(ctx context.Context, userID, otherID uint) (*models.Conversation, bool, error) {
	if userID == otherID {
		return nil, false, models.ErrSelfChat
	}
	if _, err := s.users.GetUserByID(otherID); err != nil {
		return nil, false, asNotFound(err)
	}

	conv, created, err := s.conversations.GetOrCreatePair(userID, otherID)
	if err != nil {
		return nil, false, err
	}

	if created {
		s.publish(ctx, strconv.FormatUint(uint64(conv.ID), 10), changefeed.EventConversationCreated, changefeed.ConversationEventData{
			ConversationID: conv.ID,
			ParticipantIDs: []uint{userID, otherID},
		})
	}
	return conv, created, nil
}

// Send appends a message to a conversation the caller belongs to. The message
// must carry text or an image. A retried send with the same client ref
// returns the already-stored message without appending again or re-publishing
// the event.
func (s *ConversationService) Send(ctx context.Context, senderID, conversationID uint, req models.SendMessageRequest) (*models.Message, error) {
	if _, err := s.requireParticipant(conversationID, senderID); err != nil {
		return nil, err
	}
	if req.Content == "" && req.ImageURL == "" {
		return nil, models.ErrEmptyMessage
	}

	clientRef := req.ClientRef
	if clientRef == "" {
		clientRef = uuid.NewString()
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        req.Content,
		ImageURL:       req.ImageURL,
		ClientRef:      &clientRef,
	}

	text := req.Content
	if text == "" {
		text = "Image"
	}
	created, err := s.messages.Append(msg, preview(text, messagePreviewLen))
	if err != nil {
		return nil, err
	}
	if !created {
		return msg, nil
	}

	participants, err := s.conversations.GetParticipants(conversationID)
	if err != nil {
		return nil, err
	}
	recipients := make([]uint, 0, len(participants)-1)
	for _, p := range participants {
		if p.UserID != senderID {
			recipients = append(recipients, p.UserID)
		}
	}

	s.invalidateUnread(ctx, recipients...)
	s.publish(ctx, strconv.FormatUint(uint64(conversationID), 10), changefeed.EventMessageCreated, changefeed.MessageEventData{
		MessageID:      msg.ID,
		ConversationID: conversationID,
		SenderID:       senderID,
		RecipientIDs:   recipients,
		Preview:        preview(text, messagePreviewLen),
	})

	return msg, nil
}

// Messages returns the non-deleted messages of a conversation in store order
func (s *ConversationService) Messages(userID, conversationID uint) ([]models.Message, error) {
	if _, err := s.requireParticipant(conversationID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// MarkRead advances the caller's read cursor in a conversation. Marking an
// already-read conversation is a no-op; the cursor never moves backwards.
func (s *ConversationService) MarkRead(ctx context.Context, userID, conversationID uint) error {
	if _, err := s.requireParticipant(conversationID, userID); err != nil {
		return err
	}

	if err := s.messages.MarkConversationRead(conversationID, userID, time.Now()); err != nil {
		return err
	}

	s.invalidateUnread(ctx, userID)
	s.publish(ctx, strconv.FormatUint(uint64(conversationID), 10), changefeed.EventMessagesRead, changefeed.ReadEventData{
		ConversationID: conversationID,
		ReaderID:       userID,
	})
	return nil
}

// ListForUser returns the caller's conversations, most recent first, each with
// the caller's unread count and the resolved participants.
func (s *ConversationService) ListForUser(userID uint) ([]models.ConversationSummary, error) {
	convs, err := s.conversations.ListForUser(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		participants, err := s.conversations.GetParticipants(conv.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]uint, 0, len(participants))
		for _, p := range participants {
			ids = append(ids, p.UserID)
		}
		users, err := s.users.GetUsersByIDs(ids)
		if err != nil {
			return nil, err
		}
		compacts := make([]models.UserCompact, 0, len(users))
		for i := range users {
			compacts = append(compacts, users[i].ToCompact())
		}

		unread, err := s.messages.UnreadCountByConversation(conv.ID, userID)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, models.ConversationSummary{
			Conversation: conv,
			UnreadCount:  unread,
			Participants: compacts,
		})
	}
	return summaries, nil
}

// TotalUnread returns the caller's unread message total across all
// conversations. The cached value is a short-lived copy; any cache error
// falls through to the authoritative store query.
func (s *ConversationService) TotalUnread(ctx context.Context, userID uint) (int64, error) {
	key := unreadCacheKey(userID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return n, nil
			}
		}
	}

	count, err := s.messages.UnreadCountForUser(userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, unreadCacheTTL); err != nil {
			s.log.WithError(err).Error("Failed to cache unread count")
		}
	}
	return count, nil
}

// EditMessage replaces a message's content; only the sender may edit, and a
// deleted message can no longer be edited.
func (s *ConversationService) EditMessage(ctx context.Context, userID, messageID uint, content string) (*models.Message, error) {
	msg, err := s.messages.GetByID(messageID)
	if err != nil {
		return nil, asNotFound(err)
	}
	if msg.DeletedAt != nil {
		return nil, models.ErrNotFound
	}
	if msg.SenderID != userID {
		return nil, models.ErrForbidden
	}
	if content == "" {
		return nil, models.ErrEmptyMessage
	}

	now := time.Now()
	if err := s.messages.Edit(messageID, content, now); err != nil {
		return nil, err
	}
	msg.Content = content
	msg.EditedAt = &now
	return msg, nil
}

// DeleteMessage soft-deletes a message; only the sender may delete. The
// conversation preview is left as is even when the deleted message was the
// latest one.
func (s *ConversationService) DeleteMessage(ctx context.Context, userID, messageID uint) error {
	msg, err := s.messages.GetByID(messageID)
	if err != nil {
		return asNotFound(err)
	}
	if msg.DeletedAt != nil {
		return models.ErrNotFound
	}
	if msg.SenderID != userID {
		return models.ErrForbidden
	}

	if err := s.messages.SoftDelete(messageID, time.Now()); err != nil {
		return err
	}

	participants, err := s.conversations.GetParticipants(msg.ConversationID)
	if err == nil {
		ids := make([]uint, 0, len(participants))
		for _, p := range participants {
			ids = append(ids, p.UserID)
		}
		s.invalidateUnread(ctx, ids...)
	}

	s.publish(ctx, strconv.FormatUint(uint64(msg.ConversationID), 10), changefeed.EventMessageDeleted, changefeed.MessageEventData{
		MessageID:      messageID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
	})
	return nil
}

// SetMuted flips the caller's mute flag on a conversation
func (s *ConversationService) SetMuted(userID, conversationID uint, muted bool) error {
	if _, err := s.requireParticipant(conversationID, userID); err != nil {
		return err
	}
	if err := s.conversations.SetMuted(conversationID, userID, muted); err != nil {
		return asNotFound(err)
	}
	return nil
}
