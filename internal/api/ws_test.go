package api

import (
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omegachat/omegachat/internal/database"
	"github.com/omegachat/omegachat/internal/stats"
)

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func dialWs(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(raw, &frame))

	return frame
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected a close error, got %v", err)
	assert.Equal(t, code, closeErr.Code)
}

func newWsTestServer(t *testing.T) (*OmegaChatApp, *database.MockChatRepository, *stats.MockStatsUpdater, *httptest.Server) {
	t.Helper()

	app, db, statsProvider := newTestApp(t)
	srv := httptest.NewServer(app.httpServer.Handler)
	t.Cleanup(srv.Close)

	return app, db, statsProvider, srv
}

func TestServeWsRejectsBadToken(t *testing.T) {
	_, _, _, srv := newWsTestServer(t)

	conn := dialWs(t, srv, "/ws/dm/1?token=bogus")
	expectClose(t, conn, CloseUnauthorized)
}

func TestServeWsRejectsMissingToken(t *testing.T) {
	_, _, _, srv := newWsTestServer(t)

	conn := dialWs(t, srv, "/ws/dm/1")
	expectClose(t, conn, CloseUnauthorized)
}

func TestServeWsRejectsNonParticipant(t *testing.T) {
	app, db, _, srv := newWsTestServer(t)

	db.On("GetDirectChat", 1).Return(database.DirectChat{Id: 1, User1Id: 1, User2Id: 2}, nil)

	token, err := app.createSessionToken(3, "mallory", time.Minute)
	require.NoError(t, err)

	conn := dialWs(t, srv, "/ws/dm/1?token="+token)
	expectClose(t, conn, CloseNotParticipant)
}

func TestServeWsRejectsMissingChat(t *testing.T) {
	app, db, _, srv := newWsTestServer(t)

	db.On("GetDirectChat", 404).Return(database.DirectChat{}, sql.ErrNoRows)

	token, err := app.createSessionToken(1, "alice", time.Minute)
	require.NoError(t, err)

	conn := dialWs(t, srv, "/ws/dm/404?token="+token)
	expectClose(t, conn, CloseNotParticipant)
}

// TestDirectMessageDelivery runs the full exchange: two participants
// connect, one sends a message, the other sees it unread and marks the
// chat read, and the sender observes the receipt live.
func TestDirectMessageDelivery(t *testing.T) {
	app, db, statsProvider, srv := newWsTestServer(t)

	alice := database.User{Id: 1, Username: "alice"}
	bob := database.User{Id: 2, Username: "bob"}
	chat := database.DirectChat{Id: 1, User1Id: 1, User2Id: 2}

	db.On("GetDirectChat", 1).Return(chat, nil)
	db.On("GetAccountById", 1).Return(alice, nil)
	db.On("GetAccountById", 2).Return(bob, nil)
	db.On("GetMessages", 1, 50, 0).Return([]database.MessageWithSender{}, nil)
	db.On("SetOnlineStatus", mock.Anything, mock.Anything).Return(nil)
	db.On("CreateMessage", database.CreateMessageParams{
		ChatId: 1, SenderId: 1, Text: "hi",
	}).Return(database.Message{
		Id: 7, ChatId: 1, SenderId: 1,
		CreatedAt: time.Now(),
	}, nil)
	db.On("MarkMessagesRead", 1, 2).Return(int64(1), nil)

	statsProvider.On("ConnOpened").Return()
	statsProvider.On("ConnClosed").Return()
	statsProvider.On("MessageSent").Return()
	statsProvider.On("ReadReceipt").Return()

	aliceToken, err := app.createSessionToken(alice.Id, alice.Username, time.Minute)
	require.NoError(t, err)
	bobToken, err := app.createSessionToken(bob.Id, bob.Username, time.Minute)
	require.NoError(t, err)

	aliceConn := dialWs(t, srv, "/ws/dm/1?token="+aliceToken)
	bobConn := dialWs(t, srv, "/ws/dm/1?token="+bobToken)

	require.NoError(t, aliceConn.WriteJSON(map[string]string{"type": "message", "text": "hi"}))

	// both room members get the message, unread from bob's side
	got := readFrame(t, bobConn)
	assert.Equal(t, "hi", got["text"])
	assert.Equal(t, "alice", got["username"])
	assert.Equal(t, float64(1), got["sender_id"])
	assert.Equal(t, false, got["is_read"])

	echo := readFrame(t, aliceConn)
	assert.Equal(t, "hi", echo["text"])

	require.NoError(t, bobConn.WriteJSON(map[string]string{"type": "read"}))

	receipt := readFrame(t, aliceConn)
	assert.Equal(t, "messages_read", receipt["type"])
	assert.Equal(t, float64(1), receipt["chat_id"])
	assert.Equal(t, float64(2), receipt["reader_id"])

	aliceConn.Close()
	bobConn.Close()

	// let the detached offline persists run before the mock is torn down
	time.Sleep(100 * time.Millisecond)
}

func TestServeWsReplaysHistoryOldestFirst(t *testing.T) {
	app, db, statsProvider, srv := newWsTestServer(t)

	alice := database.User{Id: 1, Username: "alice"}
	chat := database.DirectChat{Id: 1, User1Id: 1, User2Id: 2}

	db.On("GetDirectChat", 1).Return(chat, nil)
	db.On("GetAccountById", 1).Return(alice, nil)
	db.On("GetMessages", 1, 50, 0).Return([]database.MessageWithSender{
		{Message: database.Message{Id: 2, ChatId: 1, SenderId: 2}, SenderUsername: "bob"},
		{Message: database.Message{Id: 1, ChatId: 1, SenderId: 1}, SenderUsername: "alice"},
	}, nil)
	db.On("SetOnlineStatus", mock.Anything, mock.Anything).Return(nil)

	statsProvider.On("ConnOpened").Return()
	statsProvider.On("ConnClosed").Return()

	token, err := app.createSessionToken(alice.Id, alice.Username, time.Minute)
	require.NoError(t, err)

	conn := dialWs(t, srv, "/ws/dm/1?token="+token)

	first := readFrame(t, conn)
	second := readFrame(t, conn)
	assert.Equal(t, float64(1), first["id"])
	assert.Equal(t, float64(2), second["id"])

	conn.Close()
	time.Sleep(100 * time.Millisecond)
}
