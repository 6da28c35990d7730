package server

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/omegachat/omegachat/internal/database"
	"github.com/omegachat/omegachat/internal/stats"
	"github.com/omegachat/omegachat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func Test_queueFrame(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
		c := newTestClient(cs, types.User{Id: 1}, types.DirectChat{Id: 1}, 1)

		res := c.queueFrame(NewReadFrame(1, 1))
		assert.True(t, res, "expected queueFrame to return true when channel is not full")

		select {
		case frame := <-c.send:
			assert.NotNil(t, frame, "expected a frame to be queued")
		default:
			t.Error("expected a frame to be queued, but none was")
		}
	})

	t.Run("channel full", func(t *testing.T) {
		cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
		c := newTestClient(cs, types.User{Id: 1}, types.DirectChat{Id: 1}, 1)

		c.send <- NewReadFrame(1, 1) // pre-fill to simulate a full channel
		res := c.queueFrame(NewReadFrame(1, 1))
		assert.False(t, res, "expected queueFrame to return false when channel is full")
	})
}

func Test_handleMessage(t *testing.T) {
	chat := types.DirectChat{Id: 1, User1Id: 1, User2Id: 2}
	sender := types.User{Id: 1, Username: "alice", AvatarUrl: "/uploads/a.png"}

	t.Run("persists and broadcasts to the room", func(t *testing.T) {
		now := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("SetOnlineStatus", mock.Anything, mock.Anything).Return(nil)
		mockRepo.On("CreateMessage", database.CreateMessageParams{
			ChatId:   1,
			SenderId: 1,
			Text:     "hi",
		}).Return(database.Message{
			Id:        7,
			ChatId:    1,
			SenderId:  1,
			Text:      sql.NullString{String: "hi", Valid: true},
			CreatedAt: now,
		}, nil).Once()

		mockStats := &stats.MockStatsUpdater{}
		mockStats.On("MessageSent").Return().Once()
		defer mockStats.AssertExpectations(t)

		cs := newTestChatServer(t, mockRepo, mockStats)
		c := newTestClient(cs, sender, chat, 8)
		recipient := newTestClient(cs, types.User{Id: 2}, chat, 8)
		cs.presence.Register(c, c.roomId, 1)
		cs.presence.Register(recipient, recipient.roomId, 2)

		c.handleMessage(ClientFrame{Text: " hi "})

		select {
		case frame := <-recipient.send:
			msg, ok := frame.(*MessageFrame)
			assert.True(t, ok, "expected a message frame")
			assert.Equal(t, 7, msg.Id, "expected persisted message id")
			assert.Equal(t, "hi", msg.Text, "expected trimmed text")
			assert.Equal(t, "alice", msg.Username, "expected sender username")
			assert.Equal(t, 1, msg.SenderId, "expected sender id")
			assert.Equal(t, "14:30", msg.Time, "expected server timestamp formatted HH:MM")
			assert.False(t, msg.IsRead, "expected new message to be unread")
		default:
			t.Error("expected recipient to receive the message frame")
		}
	})

	t.Run("empty message is dropped without store or broadcast", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("SetOnlineStatus", mock.Anything, mock.Anything).Return(nil)

		cs := newTestChatServer(t, mockRepo, &stats.MockStatsUpdater{})
		c := newTestClient(cs, sender, chat, 8)
		recipient := newTestClient(cs, types.User{Id: 2}, chat, 8)
		cs.presence.Register(c, c.roomId, 1)
		cs.presence.Register(recipient, recipient.roomId, 2)

		c.handleMessage(ClientFrame{Text: "   "})

		mockRepo.AssertNotCalled(t, "CreateMessage", mock.Anything)
		select {
		case <-recipient.send:
			t.Error("expected no broadcast for an empty message")
		default:
		}
	})

	t.Run("store failure aborts the frame but not the session", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("SetOnlineStatus", mock.Anything, mock.Anything).Return(nil)
		mockRepo.On("CreateMessage", mock.Anything).Return(database.Message{}, errors.New("commit failed")).Once()

		cs := newTestChatServer(t, mockRepo, &stats.MockStatsUpdater{})
		c := newTestClient(cs, sender, chat, 8)
		recipient := newTestClient(cs, types.User{Id: 2}, chat, 8)
		cs.presence.Register(c, c.roomId, 1)
		cs.presence.Register(recipient, recipient.roomId, 2)

		c.handleMessage(ClientFrame{Text: "hi"})

		select {
		case <-recipient.send:
			t.Error("expected no broadcast when the store append fails")
		default:
		}

		select {
		case <-c.stop:
			t.Error("expected the session to stay open after a store failure")
		default:
		}
	})
}

func Test_handleRead(t *testing.T) {
	chat := types.DirectChat{Id: 1, User1Id: 1, User2Id: 2}
	reader := types.User{Id: 2, Username: "bob"}

	t.Run("flips read flags and notifies the room", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("SetOnlineStatus", mock.Anything, mock.Anything).Return(nil)
		mockRepo.On("MarkMessagesRead", 1, 2).Return(int64(3), nil).Once()

		mockStats := &stats.MockStatsUpdater{}
		mockStats.On("ReadReceipt").Return().Once()
		defer mockStats.AssertExpectations(t)

		cs := newTestChatServer(t, mockRepo, mockStats)
		c := newTestClient(cs, reader, chat, 8)
		counterpart := newTestClient(cs, types.User{Id: 1}, chat, 8)
		cs.presence.Register(c, c.roomId, 2)
		cs.presence.Register(counterpart, counterpart.roomId, 1)

		c.handleRead()

		// the notification goes to the whole room, including the reader
		for _, cl := range []*Client{c, counterpart} {
			select {
			case frame := <-cl.send:
				rf, ok := frame.(*ReadFrame)
				assert.True(t, ok, "expected a read frame")
				assert.Equal(t, "messages_read", rf.Type, "expected read notification type")
				assert.Equal(t, 1, rf.ChatId, "expected chat id")
				assert.Equal(t, 2, rf.ReaderId, "expected reader id")
			default:
				t.Errorf("session %s did not receive read notification", cl.sessionId)
			}
		}
	})

	t.Run("store failure aborts the frame", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("SetOnlineStatus", mock.Anything, mock.Anything).Return(nil)
		mockRepo.On("MarkMessagesRead", 1, 2).Return(int64(0), errors.New("commit failed")).Once()

		cs := newTestChatServer(t, mockRepo, &stats.MockStatsUpdater{})
		c := newTestClient(cs, reader, chat, 8)
		counterpart := newTestClient(cs, types.User{Id: 1}, chat, 8)
		cs.presence.Register(c, c.roomId, 2)
		cs.presence.Register(counterpart, counterpart.roomId, 1)

		c.handleRead()

		select {
		case <-counterpart.send:
			t.Error("expected no notification when the read flip fails")
		default:
		}
	})

	t.Run("nothing unread means no receipt and no notification", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("SetOnlineStatus", mock.Anything, mock.Anything).Return(nil)
		mockRepo.On("MarkMessagesRead", 1, 2).Return(int64(0), nil).Once()

		mockStats := &stats.MockStatsUpdater{}
		defer mockStats.AssertExpectations(t)

		cs := newTestChatServer(t, mockRepo, mockStats)
		c := newTestClient(cs, reader, chat, 8)
		counterpart := newTestClient(cs, types.User{Id: 1}, chat, 8)
		cs.presence.Register(c, c.roomId, 2)
		cs.presence.Register(counterpart, counterpart.roomId, 1)

		c.handleRead()

		mockStats.AssertNotCalled(t, "ReadReceipt")
		select {
		case <-counterpart.send:
			t.Error("expected no notification when nothing was unread")
		default:
		}
	})
}

func Test_replayHistory(t *testing.T) {
	chat := types.DirectChat{Id: 1, User1Id: 1, User2Id: 2}

	t.Run("queues the page oldest-first", func(t *testing.T) {
		page := []database.MessageWithSender{
			{Message: database.Message{Id: 3, ChatId: 1, SenderId: 2}, SenderUsername: "bob"},
			{Message: database.Message{Id: 2, ChatId: 1, SenderId: 1}, SenderUsername: "alice"},
			{Message: database.Message{Id: 1, ChatId: 1, SenderId: 1}, SenderUsername: "alice"},
		}

		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetMessages", 1, historyPageSize, 0).Return(page, nil).Once()

		cs := newTestChatServer(t, mockRepo, &stats.MockStatsUpdater{})
		c := newTestClient(cs, types.User{Id: 1}, chat, 8)

		err := c.replayHistory()
		assert.NoError(t, err, "expected replay to succeed")

		var ids []int
		for i := 0; i < len(page); i++ {
			frame := <-c.send
			msg, ok := frame.(*MessageFrame)
			assert.True(t, ok, "expected message frames during replay")
			ids = append(ids, msg.Id)
		}
		assert.Equal(t, []int{1, 2, 3}, ids, "expected history replayed oldest-first")
	})

	t.Run("propagates store errors", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetMessages", 1, historyPageSize, 0).
			Return([]database.MessageWithSender{}, errors.New("db error")).Once()

		cs := newTestChatServer(t, mockRepo, &stats.MockStatsUpdater{})
		c := newTestClient(cs, types.User{Id: 1}, chat, 8)

		err := c.replayHistory()
		assert.Error(t, err, "expected replay error to propagate")
	})
}

func Test_shutdown(t *testing.T) {
	mockRepo := &database.MockChatRepository{}
	mockRepo.On("SetOnlineStatus", mock.Anything, mock.Anything).Return(nil)

	mockStats := &stats.MockStatsUpdater{}
	mockStats.On("ConnClosed").Return().Once()
	defer mockStats.AssertExpectations(t)

	cs := newTestChatServer(t, mockRepo, mockStats)
	c := newTestClient(cs, types.User{Id: 1}, types.DirectChat{Id: 1, User1Id: 1, User2Id: 2}, 1)
	cs.presence.Register(c, c.roomId, 1)

	c.shutdown()
	// a second shutdown must not unregister or count twice
	c.shutdown()

	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}

	assert.False(t, cs.IsOnline(1), "expected user offline after shutdown")
}
