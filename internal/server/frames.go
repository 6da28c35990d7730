package server

import (
	"fmt"

	"github.com/omegachat/omegachat/internal/database"
)

const (
	FrameTypeMessage = "message"
	FrameTypeRead    = "read"

	readNotificationType = "messages_read"
)

// ClientFrame is one inbound websocket frame. Type defaults to "message"
// when omitted; unknown types are a deliberate no-op so new client
// versions don't break old servers.
type ClientFrame struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Image string `json:"image"`
}

// ServerFrame is one outbound websocket frame. The concrete type decides
// the wire shape.
type ServerFrame interface {
	frame()
}

// MessageFrame carries one chat message. History replay and live delivery
// share this shape.
type MessageFrame struct {
	Id         int    `json:"id"`
	Username   string `json:"username"`
	UserAvatar string `json:"user_avatar"`
	Text       string `json:"text"`
	Image      string `json:"image"`
	Time       string `json:"time"`
	ChatId     int    `json:"chat_id"`
	SenderId   int    `json:"sender_id"`
	IsRead     bool   `json:"is_read"`
}

// ReadFrame tells a room that a participant marked the chat read.
type ReadFrame struct {
	Type     string `json:"type"`
	ChatId   int    `json:"chat_id"`
	ReaderId int    `json:"reader_id"`
}

func (*MessageFrame) frame() {}
func (*ReadFrame) frame()    {}

func NewReadFrame(chatId, readerId int) *ReadFrame {
	return &ReadFrame{
		Type:     readNotificationType,
		ChatId:   chatId,
		ReaderId: readerId,
	}
}

// NewHistoryFrame renders a stored message in the same shape live
// deliveries use, so clients parse one schema.
func NewHistoryFrame(m database.MessageWithSender) *MessageFrame {
	return &MessageFrame{
		Id:         m.Id,
		Username:   m.SenderUsername,
		UserAvatar: m.SenderAvatar.String,
		Text:       m.Text.String,
		Image:      m.ImageUrl.String,
		Time:       m.CreatedAt.Format("15:04"),
		ChatId:     m.ChatId,
		SenderId:   m.SenderId,
		IsRead:     m.IsRead,
	}
}

// DirectRoomId derives the fan-out scope for a direct chat. Rooms are
// never persisted, they exist while at least one session subscribes.
func DirectRoomId(chatId int) string {
	return fmt.Sprintf("dm_%d", chatId)
}
