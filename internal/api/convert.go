package api

import (
	"github.com/omegachat/omegachat/internal/database"
	"github.com/omegachat/omegachat/internal/types"
)

func userView(u database.User) types.User {
	view := types.User{
		Id:           u.Id,
		Username:     u.Username,
		EmailAddress: u.EmailAddress,
		AvatarUrl:    u.AvatarUrl.String,
		Status:       u.Status.String,
		IsOnline:     u.IsOnline,
		CreatedAt:    u.CreatedAt,
	}

	if u.LastSeen.Valid {
		lastSeen := u.LastSeen.Time
		view.LastSeen = &lastSeen
	}

	return view
}

func chatView(dc database.DirectChat) types.DirectChat {
	return types.DirectChat{
		Id:        dc.Id,
		User1Id:   dc.User1Id,
		User2Id:   dc.User2Id,
		CreatedAt: dc.CreatedAt,
	}
}

func messageView(m database.Message) types.Message {
	return types.Message{
		Id:        m.Id,
		ChatId:    m.ChatId,
		SenderId:  m.SenderId,
		Text:      m.Text.String,
		ImageUrl:  m.ImageUrl.String,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}
