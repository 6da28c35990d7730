package types

import (
	"time"
)

type User struct {
	Id           int        `json:"id"`
	Username     string     `json:"username"`
	EmailAddress string     `json:"email,omitempty"`
	Password     string     `json:"-"`
	AvatarUrl    string     `json:"avatar_url,omitempty"`
	Status       string     `json:"status,omitempty"`
	IsOnline     bool       `json:"is_online"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	CreatedAt    time.Time  `json:"created_at,omitempty"`
}

type DirectChat struct {
	Id        int       `json:"id"`
	User1Id   int       `json:"user1_id"`
	User2Id   int       `json:"user2_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Participant reports whether userId is one of the two members of the chat.
func (dc DirectChat) Participant(userId int) bool {
	return dc.User1Id == userId || dc.User2Id == userId
}

// Counterpart returns the other member of the chat relative to userId.
func (dc DirectChat) Counterpart(userId int) int {
	if dc.User1Id == userId {
		return dc.User2Id
	}
	return dc.User1Id
}

type Message struct {
	Id        int       `json:"id"`
	ChatId    int       `json:"chat_id"`
	SenderId  int       `json:"sender_id"`
	Text      string    `json:"text,omitempty"`
	ImageUrl  string    `json:"image,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSummary is one row of a user's chat list: the counterpart's display
// data joined with the most recent message and the caller's unread count.
type ChatSummary struct {
	Id          int    `json:"id"`
	Name        string `json:"name"`
	Username    string `json:"username"`
	AvatarUrl   string `json:"avatar_url,omitempty"`
	IsOnline    bool   `json:"is_online"`
	LastMessage string `json:"last_message,omitempty"`
	Time        string `json:"time,omitempty"`
	UnreadCount int    `json:"unread_count"`

	// LastMessageAt orders the chat list by recency; chats without
	// messages keep the zero value and sort last.
	LastMessageAt time.Time `json:"-"`
}
