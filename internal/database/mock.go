package database

import (
	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) UpdateProfile(params UpdateProfileParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) UpdateAvatar(accountId int, avatarUrl string) error {
	args := m.Called(accountId, avatarUrl)
	return args.Error(0)
}
func (m *MockChatRepository) UsernameTaken(username string, excludeId int) (bool, error) {
	args := m.Called(username, excludeId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) SearchAccounts(query string, excludeId, limit int) ([]User, error) {
	args := m.Called(query, excludeId, limit)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockChatRepository) SetOnlineStatus(accountId int, online bool) error {
	args := m.Called(accountId, online)
	return args.Error(0)
}
func (m *MockChatRepository) GetDirectChat(chatId int) (DirectChat, error) {
	args := m.Called(chatId)
	return args.Get(0).(DirectChat), args.Error(1)
}
func (m *MockChatRepository) FindDirectChatByUsers(userId, otherId int) (DirectChat, error) {
	args := m.Called(userId, otherId)
	return args.Get(0).(DirectChat), args.Error(1)
}
func (m *MockChatRepository) CreateDirectChat(userId, otherId int) (DirectChat, error) {
	args := m.Called(userId, otherId)
	return args.Get(0).(DirectChat), args.Error(1)
}
func (m *MockChatRepository) DeleteDirectChat(chatId int) error {
	args := m.Called(chatId)
	return args.Error(0)
}
func (m *MockChatRepository) ListDirectChats(accountId int) ([]DirectChat, error) {
	args := m.Called(accountId)
	return args.Get(0).([]DirectChat), args.Error(1)
}
func (m *MockChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetMessages(chatId, limit, offset int) ([]MessageWithSender, error) {
	args := m.Called(chatId, limit, offset)
	return args.Get(0).([]MessageWithSender), args.Error(1)
}
func (m *MockChatRepository) LastMessage(chatId int) (Message, error) {
	args := m.Called(chatId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) UnreadCount(chatId, accountId int) (int, error) {
	args := m.Called(chatId, accountId)
	return args.Int(0), args.Error(1)
}
func (m *MockChatRepository) MarkMessagesRead(chatId, readerId int) (int64, error) {
	args := m.Called(chatId, readerId)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockChatRepository) CreateGameSession(params CreateGameSessionParams) (GameSession, error) {
	args := m.Called(params)
	return args.Get(0).(GameSession), args.Error(1)
}
func (m *MockChatRepository) GetGameSession(sessionId int) (GameSession, error) {
	args := m.Called(sessionId)
	return args.Get(0).(GameSession), args.Error(1)
}
func (m *MockChatRepository) UpdateGameStatus(sessionId int, status string) error {
	args := m.Called(sessionId, status)
	return args.Error(0)
}
func (m *MockChatRepository) FinishGameSession(sessionId int) error {
	args := m.Called(sessionId)
	return args.Error(0)
}
func (m *MockChatRepository) DeleteGameSession(sessionId int) error {
	args := m.Called(sessionId)
	return args.Error(0)
}
func (m *MockChatRepository) AddGamePlayer(sessionId, accountId int) (GamePlayer, error) {
	args := m.Called(sessionId, accountId)
	return args.Get(0).(GamePlayer), args.Error(1)
}
func (m *MockChatRepository) GetGamePlayer(sessionId, accountId int) (GamePlayer, error) {
	args := m.Called(sessionId, accountId)
	return args.Get(0).(GamePlayer), args.Error(1)
}
func (m *MockChatRepository) UpdateGamePlayerScore(sessionId, accountId, score int) error {
	args := m.Called(sessionId, accountId, score)
	return args.Error(0)
}
func (m *MockChatRepository) SetGameWinner(sessionId, accountId int) error {
	args := m.Called(sessionId, accountId)
	return args.Error(0)
}
func (m *MockChatRepository) ListGamePlayers(sessionId int) ([]GamePlayer, error) {
	args := m.Called(sessionId)
	return args.Get(0).([]GamePlayer), args.Error(1)
}
func (m *MockChatRepository) RecordGameResult(accountId int, gameType string, score int, won bool) error {
	args := m.Called(accountId, gameType, score, won)
	return args.Error(0)
}
func (m *MockChatRepository) ListGameStats(accountId int) ([]GameStats, error) {
	args := m.Called(accountId)
	return args.Get(0).([]GameStats), args.Error(1)
}
