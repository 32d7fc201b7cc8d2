package changefeed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventRoundTrip(t *testing.T) {
	event, err := NewEvent(EventMessageCreated, MessageEventData{
		MessageID:      7,
		ConversationID: 3,
		SenderID:       1,
		RecipientIDs:   []uint{2},
		Preview:        "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, EventMessageCreated, event.Type)
	assert.False(t, event.Timestamp.IsZero())

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, event.Type, decoded.Type)

	var data MessageEventData
	require.NoError(t, json.Unmarshal(decoded.Data, &data))
	assert.Equal(t, uint(7), data.MessageID)
	assert.Equal(t, []uint{2}, data.RecipientIDs)
}

func TestNewEventRejectsUnmarshalable(t *testing.T) {
	_, err := NewEvent(EventReactionSet, make(chan int))
	assert.Error(t, err)
}
