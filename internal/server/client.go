package server

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/omegachat/omegachat/internal/database"
	"github.com/omegachat/omegachat/internal/types"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	// maxFrameSize bounds inbound frames; message content is text plus an
	// image URL, never raw image bytes.
	maxFrameSize = 4096
)

// Client is one authenticated connection bound to one (user, room) pair.
// ReadPump owns the receive loop, WritePump drains the send queue; both
// exit when the transport closes.
type Client struct {
	conn      *websocket.Conn
	cs        *ChatServer
	log       *log.Logger
	sessionId string
	user      types.User
	chat      types.DirectChat
	roomId    string
	send      chan ServerFrame
	stop      chan struct{}
	closeOnce sync.Once
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("session %s: write pump exiting", c.sessionId)
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(frame)
			if err != nil {
				c.log.Printf("session %s: serialize frame: %v", c.sessionId, err)
				continue
			}

			if !c.writeMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.shutdown()
		c.log.Printf("session %s: read pump exiting", c.sessionId)
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("session %s: read: %v", c.sessionId, err)
			}
			break
		}

		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Printf("session %s: parse frame: %v", c.sessionId, err)
			continue
		}

		switch frame.Type {
		case FrameTypeRead:
			c.handleRead()
		case FrameTypeMessage, "":
			c.handleMessage(frame)
		default:
			// unknown frame types are a forward-compatible no-op
		}
	}
}

// handleRead bulk-flips is_read for messages not sent by this user and
// notifies the whole room, so the counterpart's open session sees the
// receipt live. A store failure aborts this frame only; when nothing was
// unread there is nothing to announce.
func (c *Client) handleRead() {
	updated, err := c.cs.db.MarkMessagesRead(c.chat.Id, c.user.Id)
	if err != nil {
		c.log.Printf("session %s: mark messages read: %v", c.sessionId, err)
		return
	}
	if updated == 0 {
		return
	}

	c.cs.stats.ReadReceipt()
	c.cs.Broadcast(c.roomId, NewReadFrame(c.chat.Id, c.user.Id))
}

// handleMessage persists an inbound message with a server timestamp and
// fans it out to the room. Empty messages are dropped; a store failure
// aborts this frame only, the loop keeps running.
func (c *Client) handleMessage(frame ClientFrame) {
	text := strings.TrimSpace(frame.Text)
	image := strings.TrimSpace(frame.Image)
	if text == "" && image == "" {
		return
	}

	msg, err := c.cs.db.CreateMessage(database.CreateMessageParams{
		ChatId:   c.chat.Id,
		SenderId: c.user.Id,
		Text:     text,
		ImageUrl: image,
	})
	if err != nil {
		c.log.Printf("session %s: save message: %v", c.sessionId, err)
		return
	}

	c.cs.stats.MessageSent()
	c.cs.Broadcast(c.roomId, &MessageFrame{
		Id:         msg.Id,
		Username:   c.user.Username,
		UserAvatar: c.user.AvatarUrl,
		Text:       text,
		Image:      image,
		Time:       msg.CreatedAt.Format("15:04"),
		ChatId:     c.chat.Id,
		SenderId:   c.user.Id,
		IsRead:     false,
	})
}

// replayHistory queues the most recent page of the chat oldest-first. It
// runs before the pumps start, so replayed frames precede any live ones.
func (c *Client) replayHistory() error {
	messages, err := c.cs.db.GetMessages(c.chat.Id, historyPageSize, 0)
	if err != nil {
		return err
	}

	for i := len(messages) - 1; i >= 0; i-- {
		c.queueFrame(NewHistoryFrame(messages[i]))
	}
	return nil
}

func (c *Client) queueFrame(frame ServerFrame) bool {
	select {
	case c.send <- frame:
	default:
		c.log.Printf("session %s: send queue full, dropping frame", c.sessionId)
		return false
	}

	return true
}

func (c *Client) writeMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("session %s: write: %v", c.sessionId, err)
		}
		return false
	}

	return true
}

// shutdown tears the session down exactly once regardless of which path
// reached it: presence unregistration, transport close, pump stop.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.cs.presence.Unregister(c, c.roomId, c.user.Id)
		c.cs.stats.ConnClosed()
		close(c.stop)
		if c.conn != nil {
			c.conn.Close()
		}
		c.log.Printf("session %s: closed for user %q", c.sessionId, c.user.Username)
	})
}
