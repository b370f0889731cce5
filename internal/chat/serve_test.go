package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PaulBabatuyi/reaTimeChat-WS/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type allowAllVerifier struct{}

func (allowAllVerifier) UserExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	return true, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *auth.JWTManager, *memMessages) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	registry := NewRegistry()
	msgs := &memMessages{}
	presence := newMemPresence()
	gw := NewGateway(registry, msgs, presence, logrus.NewEntry(logger))
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)

	r := gin.New()
	r.GET("/v1/ws", ServeWS(gw, jwtMgr, allowAllVerifier{}))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, jwtMgr, msgs
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// waitForEvent reads frames until one carries the wanted event name.
func waitForEvent(t *testing.T, conn *websocket.Conn, name string) *Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", name)
		var evt Event
		require.NoError(t, json.Unmarshal(raw, &evt))
		if evt.Name == name {
			return &evt
		}
	}
}

func TestServeWS_RejectsMissingCredentials(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWS_RejectsInvalidToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "not-a-token"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWS_BearerHeaderAccepted(t *testing.T) {
	srv, jwtMgr, _ := newTestServer(t)

	token, _, err := jwtMgr.GenerateToken(bson.NewObjectID(), "hdr@example.com")
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	evt := waitForEvent(t, conn, EventUserStatus)
	var status UserStatusPayload
	require.NoError(t, json.Unmarshal(evt.Data, &status))
	require.True(t, status.IsOnline)
}

func TestServeWS_MessageRoundTrip(t *testing.T) {
	srv, jwtMgr, _ := newTestServer(t)

	aliceID := bson.NewObjectID()
	bobID := bson.NewObjectID()

	aliceToken, _, err := jwtMgr.GenerateToken(aliceID, "alice@example.com")
	require.NoError(t, err)
	bobToken, _, err := jwtMgr.GenerateToken(bobID, "bob@example.com")
	require.NoError(t, err)

	aliceConn := dial(t, srv, aliceToken)
	// alice hears her own online status first
	waitForEvent(t, aliceConn, EventUserStatus)

	bobConn := dial(t, srv, bobToken)
	waitForEvent(t, bobConn, EventUserStatus)

	send, err := NewEvent(EventSendMessage, SendMessagePayload{
		RecipientID: bobID.Hex(),
		Content:     "hello over the wire",
	})
	require.NoError(t, err)
	require.NoError(t, aliceConn.WriteJSON(send))

	got := waitForEvent(t, bobConn, EventReceiveMessage)
	var received ReceiveMessagePayload
	require.NoError(t, json.Unmarshal(got.Data, &received))
	require.Equal(t, "hello over the wire", received.Content)
	require.Equal(t, aliceID.Hex(), received.Sender)

	ackEvt := waitForEvent(t, aliceConn, EventMessageSent)
	var ack MessageSentPayload
	require.NoError(t, json.Unmarshal(ackEvt.Data, &ack))
	require.True(t, ack.Delivered)
	require.Equal(t, bobID.Hex(), ack.Recipient)
}
