package database

import (
	"database/sql"
	"time"
)

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	AvatarUrl    sql.NullString
	Status       sql.NullString
	IsOnline     bool
	LastSeen     sql.NullTime
	CreatedAt    time.Time
}

type DirectChat struct {
	Id        int
	User1Id   int
	User2Id   int
	CreatedAt time.Time
}

type Message struct {
	Id        int
	ChatId    int
	SenderId  int
	Text      sql.NullString
	ImageUrl  sql.NullString
	IsRead    bool
	CreatedAt time.Time
}

// MessageWithSender is a message joined with the sender's display data,
// used for history pages and replay.
type MessageWithSender struct {
	Message
	SenderUsername string
	SenderAvatar   sql.NullString
}

type GameSession struct {
	Id         int
	GameType   string
	ChatId     sql.NullInt64
	GroupId    sql.NullInt64
	CreatorId  int
	Status     string
	CreatedAt  time.Time
	FinishedAt sql.NullTime
}

type GamePlayer struct {
	Id        int
	SessionId int
	UserId    int
	Score     int
	IsWinner  bool
}

type GameStats struct {
	Id          int
	UserId      int
	GameType    string
	GamesPlayed int
	GamesWon    int
	TotalScore  int
	BestScore   int
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

// UpdateProfileParams carries partial updates: a nil field leaves the
// corresponding column untouched.
type UpdateProfileParams struct {
	UserId   int
	Username *string
	Status   *string
}

type CreateMessageParams struct {
	ChatId   int
	SenderId int
	Text     string
	ImageUrl string
}

type CreateGameSessionParams struct {
	GameType  string
	ChatId    int
	GroupId   int
	CreatorId int
}
