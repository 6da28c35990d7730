package server

import (
	"log"

	"github.com/gorilla/websocket"
	"github.com/omegachat/omegachat/internal/database"
	"github.com/omegachat/omegachat/internal/stats"
	"github.com/omegachat/omegachat/internal/types"
	"github.com/teris-io/shortid"
)

const historyPageSize = 50

// ChatServer owns the presence registry and the room fan-out. Request
// handlers and connection sessions both go through it.
type ChatServer struct {
	log      *log.Logger
	db       database.ChatRepository
	stats    stats.Provider
	presence *Presence

	// newSessionId is swappable in tests
	newSessionId func() (string, error)
}

func NewChatServer(logger *log.Logger, db database.ChatRepository, statsProvider stats.Provider) *ChatServer {
	return &ChatServer{
		log:          logger,
		db:           db,
		stats:        statsProvider,
		presence:     NewPresence(logger, db),
		newSessionId: shortid.Generate,
	}
}

// Connect binds an already-authorized websocket to a chat: registers
// presence, replays recent history and starts the session pumps. A failed
// replay closes the session before it ever streams.
func (cs *ChatServer) Connect(conn *websocket.Conn, user types.User, chat types.DirectChat) *Client {
	sid, err := cs.newSessionId()
	if err != nil {
		cs.log.Println("generate session id:", err)
		sid = "unknown"
	}

	c := &Client{
		conn:      conn,
		cs:        cs,
		log:       cs.log,
		sessionId: sid,
		user:      user,
		chat:      chat,
		roomId:    DirectRoomId(chat.Id),
		send:      make(chan ServerFrame, 256),
		stop:      make(chan struct{}),
	}

	cs.presence.Register(c, c.roomId, user.Id)
	cs.stats.ConnOpened()
	cs.log.Printf("session %s: user %q connected to room %q", c.sessionId, user.Username, c.roomId)

	if err := c.replayHistory(); err != nil {
		cs.log.Printf("session %s: history replay: %v", c.sessionId, err)
		c.shutdown()
		return nil
	}

	go c.WritePump()
	go c.ReadPump()

	return c
}

// Broadcast fans one frame out to a snapshot of the room's live sessions.
// Delivery is best-effort and at-most-once: a recipient whose queue is
// gone or full is marked dead and pruned after the pass, and never blocks
// the others.
func (cs *ChatServer) Broadcast(roomId string, frame ServerFrame) {
	clients := cs.presence.snapshotRoom(roomId)

	var dead []*Client
	for _, c := range clients {
		select {
		case <-c.stop:
			dead = append(dead, c)
			continue
		default:
		}

		if !c.queueFrame(frame) {
			dead = append(dead, c)
		}
	}

	for _, c := range dead {
		cs.stats.BroadcastDropped()
		cs.log.Printf("session %s: unresponsive, removing from room %q", c.sessionId, roomId)
		c.shutdown()
	}
}

// IsOnline reports whether the user holds at least one live session in any
// room.
func (cs *ChatServer) IsOnline(userId int) bool {
	return cs.presence.IsOnline(userId)
}

// OnlineUsersIn lists the users holding a live session in the room.
func (cs *ChatServer) OnlineUsersIn(roomId string) []int {
	return cs.presence.OnlineUsersIn(roomId)
}

// Shutdown closes every live session.
func (cs *ChatServer) Shutdown() {
	cs.log.Println("closing all sessions")
	for _, c := range cs.presence.snapshotAll() {
		c.shutdown()
	}
}
