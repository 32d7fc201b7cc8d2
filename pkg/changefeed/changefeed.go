package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventType identifies a row-level change published on the feed.
type EventType string

const (
	EventReactionSet         EventType = "reaction_set"
	EventReactionCleared     EventType = "reaction_cleared"
	EventCommentCreated      EventType = "comment_created"
	EventCommentDeleted      EventType = "comment_deleted"
	EventFollowCreated       EventType = "follow_created"
	EventFollowDeleted       EventType = "follow_deleted"
	EventPostSaved           EventType = "post_saved"
	EventPostUnsaved         EventType = "post_unsaved"
	EventIdeaJoined          EventType = "idea_joined"
	EventIdeaLeft            EventType = "idea_left"
	EventConversationCreated EventType = "conversation_created"
	EventMessageCreated      EventType = "message_created"
	EventMessagesRead        EventType = "messages_read"
	EventMessageDeleted      EventType = "message_deleted"
)

// Event is the envelope written to the feed topic. Data holds the per-type
// payload; consumers decode it after switching on Type. Events are published
// only after the originating transaction has committed.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent builds an event envelope, marshaling the payload.
func NewEvent(t EventType, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", t, err)
	}
	return Event{Type: t, Timestamp: time.Now(), Data: raw}, nil
}

type ReactionEventData struct {
	ActorID    uint   `json:"actor_id"`
	OwnerID    uint   `json:"owner_id"`
	TargetKind string `json:"target_kind"`
	TargetID   string `json:"target_id"`
	PostID     string `json:"post_id,omitempty"`
	Reaction   string `json:"reaction,omitempty"`
}

type CommentEventData struct {
	CommentID      uint   `json:"comment_id"`
	ActorID        uint   `json:"actor_id"`
	PostID         string `json:"post_id"`
	PostOwnerID    uint   `json:"post_owner_id"`
	ParentID       *uint  `json:"parent_id,omitempty"`
	ParentAuthorID uint   `json:"parent_author_id,omitempty"`
	Preview        string `json:"preview"`
}

type FollowEventData struct {
	FollowerID  uint `json:"follower_id"`
	FollowingID uint `json:"following_id"`
}

type SaveEventData struct {
	UserID uint   `json:"user_id"`
	PostID string `json:"post_id"`
}

type IdeaEventData struct {
	ActorID     uint   `json:"actor_id"`
	PostID      string `json:"post_id"`
	PostOwnerID uint   `json:"post_owner_id"`
}

type ConversationEventData struct {
	ConversationID uint   `json:"conversation_id"`
	ParticipantIDs []uint `json:"participant_ids"`
}

type MessageEventData struct {
	MessageID      uint   `json:"message_id"`
	ConversationID uint   `json:"conversation_id"`
	SenderID       uint   `json:"sender_id"`
	RecipientIDs   []uint `json:"recipient_ids"`
	Preview        string `json:"preview"`
}

type ReadEventData struct {
	ConversationID uint `json:"conversation_id"`
	ReaderID       uint `json:"reader_id"`
}

// Publisher is the write side of the change feed. Services publish through
// this interface so tests can capture events without a broker.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// KafkaProducer publishes change events to a Kafka topic.
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Async:    false,
	}

	return &KafkaProducer{writer: writer}
}

func (p *KafkaProducer) Publish(ctx context.Context, key string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  event.Timestamp,
	}

	return p.writer.WriteMessages(ctx, message)
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads change events from the feed topic.
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: 1 * time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &KafkaConsumer{reader: reader}
}

// Consume reads events until ctx is canceled, invoking handler for each one.
// Handler errors are returned to the caller per event via the errFn callback
// and never stop the loop; a read error or context cancellation ends it.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(Event) error, errFn func(error)) error {
	for {
		message, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		var event Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			errFn(fmt.Errorf("failed to unmarshal event: %w", err))
			continue
		}

		if err := handler(event); err != nil {
			errFn(err)
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
