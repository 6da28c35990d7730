package database

type ChatRepository interface {
	Ping() error

	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	UpdateProfile(params UpdateProfileParams) (User, error)
	UpdateAvatar(accountId int, avatarUrl string) error
	UsernameTaken(username string, excludeId int) (bool, error)
	SearchAccounts(query string, excludeId, limit int) ([]User, error)
	SetOnlineStatus(accountId int, online bool) error

	GetDirectChat(chatId int) (DirectChat, error)
	FindDirectChatByUsers(userId, otherId int) (DirectChat, error)
	CreateDirectChat(userId, otherId int) (DirectChat, error)
	DeleteDirectChat(chatId int) error
	ListDirectChats(accountId int) ([]DirectChat, error)

	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessages(chatId, limit, offset int) ([]MessageWithSender, error)
	LastMessage(chatId int) (Message, error)
	UnreadCount(chatId, accountId int) (int, error)
	MarkMessagesRead(chatId, readerId int) (int64, error)

	CreateGameSession(params CreateGameSessionParams) (GameSession, error)
	GetGameSession(sessionId int) (GameSession, error)
	UpdateGameStatus(sessionId int, status string) error
	FinishGameSession(sessionId int) error
	DeleteGameSession(sessionId int) error
	AddGamePlayer(sessionId, accountId int) (GamePlayer, error)
	GetGamePlayer(sessionId, accountId int) (GamePlayer, error)
	UpdateGamePlayerScore(sessionId, accountId, score int) error
	SetGameWinner(sessionId, accountId int) error
	ListGamePlayers(sessionId int) ([]GamePlayer, error)
	RecordGameResult(accountId int, gameType string, score int, won bool) error
	ListGameStats(accountId int) ([]GameStats, error)
}
