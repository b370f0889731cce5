package chat

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestNewEventEnvelope(t *testing.T) {
	evt, err := NewEvent(EventUserStatus, UserStatusPayload{UserID: "abc", IsOnline: true})
	require.NoError(t, err)

	b, err := json.Marshal(evt)
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"user_status","data":{"userId":"abc","isOnline":true}}`, string(b))
}

func TestEventRoundTrip(t *testing.T) {
	raw := []byte(`{"event":"send_message","data":{"recipientId":"cccccccccccccccccccccccc","content":"hi"}}`)

	var evt Event
	require.NoError(t, json.Unmarshal(raw, &evt))
	require.Equal(t, EventSendMessage, evt.Name)

	var payload SendMessagePayload
	require.NoError(t, json.Unmarshal(evt.Data, &payload))
	require.Equal(t, "hi", payload.Content)
	require.Equal(t, "cccccccccccccccccccccccc", payload.RecipientID)
}

func TestPayloadValidation(t *testing.T) {
	v := validator.New()

	require.NoError(t, v.Struct(&SendMessagePayload{
		RecipientID: "cccccccccccccccccccccccc",
		Content:     "hi",
	}))

	// recipient id must look like an object id
	require.Error(t, v.Struct(&SendMessagePayload{RecipientID: "nope", Content: "hi"}))
	require.Error(t, v.Struct(&SendMessagePayload{RecipientID: "", Content: "hi"}))
	require.Error(t, v.Struct(&MarkReadPayload{MessageID: "zzzzzzzzzzzzzzzzzzzzzzzz"}))
	require.NoError(t, v.Struct(&MarkReadPayload{MessageID: "aaaaaaaaaaaaaaaaaaaaaaaa"}))
}
