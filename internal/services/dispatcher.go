package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/pkg/changefeed"
	"github.com/campusnet/backend/pkg/logger"
)

// LivePublisher pushes a payload to a user's realtime channel. The realtime
// hub implements it; tests substitute a recorder.
type LivePublisher interface {
	Publish(ctx context.Context, userID uint, payload interface{}) error
}

// Dispatcher turns change feed events into notifications. It never notifies
// an actor about their own action, and it never pushes a live message alert
// to a participant who muted the conversation. The notification row is still
// written for muted conversations; muting only silences the push.
type Dispatcher struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	conversations repositories.ConversationRepository
	live          LivePublisher
	log           *logger.Logger
}

func NewDispatcher(
	notifications repositories.NotificationRepository,
	users repositories.UserRepository,
	conversations repositories.ConversationRepository,
	live LivePublisher,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		conversations: conversations,
		live:          live,
		log:           log,
	}
}

// actorName resolves the acting user's display handle for notification text
func (d *Dispatcher) actorName(actorID uint) string {
	user, err := d.users.GetUserByID(actorID)
	if err != nil {
		return "Someone"
	}
	return user.Username
}

// notify persists the notification and pushes it on the recipient's channel.
// Self-notifications are dropped here so every handler gets the rule for free.
func (d *Dispatcher) notify(ctx context.Context, n *models.Notification, push bool) error {
	if n.ActorID == n.RecipientID {
		return nil
	}
	if err := d.notifications.CreateNotification(n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	if push {
		if err := d.live.Publish(ctx, n.RecipientID, map[string]interface{}{
			"type":         "notification",
			"notification": n,
		}); err != nil {
			d.log.WithError(err).WithField("recipient_id", n.RecipientID).Warn("Failed to push live notification")
		}
	}
	return nil
}

// HandleEvent routes one change feed event. Events that carry no notification
// semantics (saves, clears, reads) are acknowledged without side effects so
// the consumer keeps advancing.
func (d *Dispatcher) HandleEvent(ctx context.Context, event changefeed.Event) error {
	switch event.Type {
	case changefeed.EventReactionSet:
		return d.handleReaction(ctx, event)
	case changefeed.EventCommentCreated:
		return d.handleComment(ctx, event)
	case changefeed.EventFollowCreated:
		return d.handleFollow(ctx, event)
	case changefeed.EventIdeaJoined:
		return d.handleIdeaJoin(ctx, event)
	case changefeed.EventMessageCreated:
		return d.handleMessage(ctx, event)
	case changefeed.EventMessagesRead:
		return d.handleRead(ctx, event)
	default:
		return nil
	}
}

func (d *Dispatcher) handleReaction(ctx context.Context, event changefeed.Event) error {
	var data changefeed.ReactionEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("failed to decode reaction event: %w", err)
	}

	ntype := models.NotificationReaction
	verb := "reacted to"
	if data.Reaction == string(models.ReactionLike) {
		ntype = models.NotificationLike
		verb = "liked"
	}
	noun := "your post"
	if data.TargetKind == string(models.TargetComment) {
		noun = "your comment"
	}

	return d.notify(ctx, &models.Notification{
		Type:        ntype,
		ActorID:     data.ActorID,
		RecipientID: data.OwnerID,
		TargetID:    data.TargetID,
		TargetType:  data.TargetKind,
		Message:     fmt.Sprintf("%s %s %s", d.actorName(data.ActorID), verb, noun),
	}, true)
}

func (d *Dispatcher) handleComment(ctx context.Context, event changefeed.Event) error {
	var data changefeed.CommentEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("failed to decode comment event: %w", err)
	}

	actor := d.actorName(data.ActorID)
	if err := d.notify(ctx, &models.Notification{
		Type:        models.NotificationComment,
		ActorID:     data.ActorID,
		RecipientID: data.PostOwnerID,
		TargetID:    data.PostID,
		TargetType:  "post",
		Message:     fmt.Sprintf("%s commented on your post: %s", actor, data.Preview),
	}, true); err != nil {
		return err
	}

	// The parent author gets a reply notification too, unless they already
	// got the post-owner one for this event.
	if data.ParentID != nil && data.ParentAuthorID != 0 && data.ParentAuthorID != data.PostOwnerID {
		return d.notify(ctx, &models.Notification{
			Type:        models.NotificationComment,
			ActorID:     data.ActorID,
			RecipientID: data.ParentAuthorID,
			TargetID:    data.PostID,
			TargetType:  "post",
			Message:     fmt.Sprintf("%s replied to your comment: %s", actor, data.Preview),
		}, true)
	}
	return nil
}

func (d *Dispatcher) handleFollow(ctx context.Context, event changefeed.Event) error {
	var data changefeed.FollowEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("failed to decode follow event: %w", err)
	}

	return d.notify(ctx, &models.Notification{
		Type:        models.NotificationFollow,
		ActorID:     data.FollowerID,
		RecipientID: data.FollowingID,
		TargetID:    strconv.FormatUint(uint64(data.FollowerID), 10),
		TargetType:  "user",
		Message:     fmt.Sprintf("%s started following you", d.actorName(data.FollowerID)),
	}, true)
}

func (d *Dispatcher) handleIdeaJoin(ctx context.Context, event changefeed.Event) error {
	var data changefeed.IdeaEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("failed to decode idea event: %w", err)
	}

	return d.notify(ctx, &models.Notification{
		Type:        models.NotificationJoin,
		ActorID:     data.ActorID,
		RecipientID: data.PostOwnerID,
		TargetID:    data.PostID,
		TargetType:  "post",
		Message:     fmt.Sprintf("%s joined your idea", d.actorName(data.ActorID)),
	}, true)
}

func (d *Dispatcher) handleMessage(ctx context.Context, event changefeed.Event) error {
	var data changefeed.MessageEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("failed to decode message event: %w", err)
	}

	actor := d.actorName(data.SenderID)
	for _, recipientID := range data.RecipientIDs {
		push := true
		if p, err := d.conversations.GetParticipant(data.ConversationID, recipientID); err == nil && p.IsMuted {
			push = false
		}

		if err := d.notify(ctx, &models.Notification{
			Type:        models.NotificationMessage,
			ActorID:     data.SenderID,
			RecipientID: recipientID,
			TargetID:    strconv.FormatUint(uint64(data.ConversationID), 10),
			TargetType:  "conversation",
			Message:     fmt.Sprintf("%s sent you a message: %s", actor, data.Preview),
		}, push); err != nil {
			return err
		}

		if push {
			if err := d.live.Publish(ctx, recipientID, map[string]interface{}{
				"type":            "unread_changed",
				"conversation_id": data.ConversationID,
			}); err != nil {
				d.log.WithError(err).WithField("recipient_id", recipientID).Warn("Failed to push unread change")
			}
		}
	}
	return nil
}

// handleRead pushes a badge refresh to the reader's other devices
func (d *Dispatcher) handleRead(ctx context.Context, event changefeed.Event) error {
	var data changefeed.ReadEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("failed to decode read event: %w", err)
	}

	if err := d.live.Publish(ctx, data.ReaderID, map[string]interface{}{
		"type":            "unread_changed",
		"conversation_id": data.ConversationID,
	}); err != nil {
		d.log.WithError(err).WithField("reader_id", data.ReaderID).Warn("Failed to push unread change")
	}
	return nil
}
