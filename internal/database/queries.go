package database

import (
	"database/sql"
	"time"
)

func (db *PgChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO users (username, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, username, email, created_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
	)

	return u, err
}

func (db *PgChatRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, avatar_url, status, is_online, last_seen, created_at "+
			"FROM users WHERE id = $1 LIMIT 1",
		accountId,
	)

	return scanUser(row)
}

func (db *PgChatRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, avatar_url, status, is_online, last_seen, created_at "+
			"FROM users WHERE email = $1 LIMIT 1",
		email,
	)

	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.PasswordHash,
		&u.AvatarUrl,
		&u.Status,
		&u.IsOnline,
		&u.LastSeen,
		&u.CreatedAt,
	)

	return u, err
}

func (db *PgChatRepository) UpdateProfile(params UpdateProfileParams) (User, error) {
	row := db.conn.QueryRow(
		"UPDATE users SET username = COALESCE($2, username), status = COALESCE($3, status) "+
			"WHERE id = $1 RETURNING id, username, email, password_hash, avatar_url, status, is_online, last_seen, created_at",
		params.UserId,
		params.Username,
		params.Status,
	)

	return scanUser(row)
}

func (db *PgChatRepository) UpdateAvatar(accountId int, avatarUrl string) error {
	_, err := db.conn.Exec(
		"UPDATE users SET avatar_url = $2 WHERE id = $1",
		accountId,
		avatarUrl,
	)

	return err
}

func (db *PgChatRepository) UsernameTaken(username string, excludeId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT id FROM users WHERE username = $1 AND id != $2 LIMIT 1",
		username,
		excludeId,
	)

	var id int
	err := row.Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}

	return err == nil, err
}

func (db *PgChatRepository) SearchAccounts(query string, excludeId, limit int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT id, username, email, password_hash, avatar_url, status, is_online, last_seen, created_at "+
			"FROM users WHERE username ILIKE '%' || $1 || '%' AND id != $2 ORDER BY username LIMIT $3",
		query,
		excludeId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = make([]User, 0, limit)
	for rows.Next() {
		var u User
		if err = rows.Scan(
			&u.Id,
			&u.Username,
			&u.EmailAddress,
			&u.PasswordHash,
			&u.AvatarUrl,
			&u.Status,
			&u.IsOnline,
			&u.LastSeen,
			&u.CreatedAt,
		); err != nil {
			break
		}

		users = append(users, u)
	}

	return users, err
}

// SetOnlineStatus persists a presence transition. Going offline also
// stamps last_seen; coming online clears it.
func (db *PgChatRepository) SetOnlineStatus(accountId int, online bool) error {
	_, err := db.conn.Exec(
		"UPDATE users SET is_online = $2, "+
			"last_seen = CASE WHEN $2 THEN NULL ELSE now() END "+
			"WHERE id = $1",
		accountId,
		online,
	)

	return err
}

func (db *PgChatRepository) GetDirectChat(chatId int) (DirectChat, error) {
	row := db.conn.QueryRow(
		"SELECT id, user1_id, user2_id, created_at FROM direct_chats "+
			"WHERE id = $1 LIMIT 1",
		chatId,
	)

	var dc DirectChat
	err := row.Scan(&dc.Id, &dc.User1Id, &dc.User2Id, &dc.CreatedAt)

	return dc, err
}

func (db *PgChatRepository) FindDirectChatByUsers(userId, otherId int) (DirectChat, error) {
	row := db.conn.QueryRow(
		"SELECT id, user1_id, user2_id, created_at FROM direct_chats "+
			"WHERE (user1_id = $1 AND user2_id = $2) OR (user1_id = $2 AND user2_id = $1) LIMIT 1",
		userId,
		otherId,
	)

	var dc DirectChat
	err := row.Scan(&dc.Id, &dc.User1Id, &dc.User2Id, &dc.CreatedAt)

	return dc, err
}

func (db *PgChatRepository) CreateDirectChat(userId, otherId int) (DirectChat, error) {
	row := db.conn.QueryRow(
		"INSERT INTO direct_chats (user1_id, user2_id, created_at) "+
			"VALUES ($1, $2, $3) RETURNING id, user1_id, user2_id, created_at",
		userId,
		otherId,
		time.Now().UTC(),
	)

	var dc DirectChat
	err := row.Scan(&dc.Id, &dc.User1Id, &dc.User2Id, &dc.CreatedAt)

	return dc, err
}

// DeleteDirectChat removes a chat and all of its messages. The chat owns
// its messages, so the cascade is an explicit code path.
func (db *PgChatRepository) DeleteDirectChat(chatId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec("DELETE FROM messages WHERE chat_id = $1", chatId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM direct_chats WHERE id = $1", chatId)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgChatRepository) ListDirectChats(accountId int) ([]DirectChat, error) {
	rows, err := db.conn.Query(
		"SELECT id, user1_id, user2_id, created_at FROM direct_chats "+
			"WHERE user1_id = $1 OR user2_id = $1",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []DirectChat
	for rows.Next() {
		var dc DirectChat
		if err = rows.Scan(&dc.Id, &dc.User1Id, &dc.User2Id, &dc.CreatedAt); err != nil {
			break
		}

		chats = append(chats, dc)
	}

	return chats, err
}

// CreateMessage appends a message with a server-assigned timestamp. Ordering
// within a chat is by (created_at, id), so two commits in the same
// millisecond still order by insertion.
func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	row := db.conn.QueryRow(
		"INSERT INTO messages (chat_id, sender_id, text, image_url, is_read, created_at) "+
			"VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), FALSE, $5) "+
			"RETURNING id, chat_id, sender_id, text, image_url, is_read, created_at",
		params.ChatId,
		params.SenderId,
		params.Text,
		params.ImageUrl,
		time.Now().UTC(),
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.ChatId,
		&m.SenderId,
		&m.Text,
		&m.ImageUrl,
		&m.IsRead,
		&m.CreatedAt,
	)

	return m, err
}

// GetMessages returns a page of a chat's messages newest-first, joined with
// sender display data. Callers wanting oldest-first reverse the slice.
func (db *PgChatRepository) GetMessages(chatId, limit, offset int) ([]MessageWithSender, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(
		"SELECT m.id, m.chat_id, m.sender_id, m.text, m.image_url, m.is_read, m.created_at, "+
			"u.username, u.avatar_url "+
			"FROM messages m JOIN users u ON m.sender_id = u.id "+
			"WHERE m.chat_id = $1 ORDER BY m.created_at DESC, m.id DESC LIMIT $2 OFFSET $3",
		chatId,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]MessageWithSender, 0, limit)
	for rows.Next() {
		var m MessageWithSender
		if err = rows.Scan(
			&m.Id,
			&m.ChatId,
			&m.SenderId,
			&m.Text,
			&m.ImageUrl,
			&m.IsRead,
			&m.CreatedAt,
			&m.SenderUsername,
			&m.SenderAvatar,
		); err != nil {
			break
		}

		messages = append(messages, m)
	}

	return messages, err
}

func (db *PgChatRepository) LastMessage(chatId int) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT id, chat_id, sender_id, text, image_url, is_read, created_at FROM messages "+
			"WHERE chat_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1",
		chatId,
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.ChatId,
		&m.SenderId,
		&m.Text,
		&m.ImageUrl,
		&m.IsRead,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgChatRepository) UnreadCount(chatId, accountId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(id) FROM messages "+
			"WHERE chat_id = $1 AND sender_id != $2 AND is_read = FALSE",
		chatId,
		accountId,
	)

	var count int
	err := row.Scan(&count)

	return count, err
}

// MarkMessagesRead flips is_read for every message in the chat not sent by
// the reader. The flip is one-way, rows already read are untouched.
func (db *PgChatRepository) MarkMessagesRead(chatId, readerId int) (int64, error) {
	res, err := db.conn.Exec(
		"UPDATE messages SET is_read = TRUE "+
			"WHERE chat_id = $1 AND sender_id != $2 AND is_read = FALSE",
		chatId,
		readerId,
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (db *PgChatRepository) CreateGameSession(params CreateGameSessionParams) (GameSession, error) {
	row := db.conn.QueryRow(
		"INSERT INTO game_sessions (game_type, chat_id, group_id, creator_id, status, created_at) "+
			"VALUES ($1, NULLIF($2, 0), NULLIF($3, 0), $4, 'waiting', $5) "+
			"RETURNING id, game_type, chat_id, group_id, creator_id, status, created_at, finished_at",
		params.GameType,
		params.ChatId,
		params.GroupId,
		params.CreatorId,
		time.Now().UTC(),
	)

	return scanGameSession(row)
}

func (db *PgChatRepository) GetGameSession(sessionId int) (GameSession, error) {
	row := db.conn.QueryRow(
		"SELECT id, game_type, chat_id, group_id, creator_id, status, created_at, finished_at "+
			"FROM game_sessions WHERE id = $1 LIMIT 1",
		sessionId,
	)

	return scanGameSession(row)
}

func scanGameSession(row *sql.Row) (GameSession, error) {
	var gs GameSession
	err := row.Scan(
		&gs.Id,
		&gs.GameType,
		&gs.ChatId,
		&gs.GroupId,
		&gs.CreatorId,
		&gs.Status,
		&gs.CreatedAt,
		&gs.FinishedAt,
	)

	return gs, err
}

func (db *PgChatRepository) UpdateGameStatus(sessionId int, status string) error {
	_, err := db.conn.Exec(
		"UPDATE game_sessions SET status = $2 WHERE id = $1",
		sessionId,
		status,
	)

	return err
}

func (db *PgChatRepository) FinishGameSession(sessionId int) error {
	_, err := db.conn.Exec(
		"UPDATE game_sessions SET status = 'finished', finished_at = $2 WHERE id = $1",
		sessionId,
		time.Now().UTC(),
	)

	return err
}

// DeleteGameSession removes a session and its players. The session owns its
// players, so the cascade is an explicit code path.
func (db *PgChatRepository) DeleteGameSession(sessionId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec("DELETE FROM game_players WHERE session_id = $1", sessionId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM game_sessions WHERE id = $1", sessionId)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgChatRepository) AddGamePlayer(sessionId, accountId int) (GamePlayer, error) {
	row := db.conn.QueryRow(
		"INSERT INTO game_players (session_id, user_id) "+
			"VALUES ($1, $2) RETURNING id, session_id, user_id, score, is_winner",
		sessionId,
		accountId,
	)

	var gp GamePlayer
	err := row.Scan(&gp.Id, &gp.SessionId, &gp.UserId, &gp.Score, &gp.IsWinner)

	return gp, err
}

func (db *PgChatRepository) GetGamePlayer(sessionId, accountId int) (GamePlayer, error) {
	row := db.conn.QueryRow(
		"SELECT id, session_id, user_id, score, is_winner FROM game_players "+
			"WHERE session_id = $1 AND user_id = $2 LIMIT 1",
		sessionId,
		accountId,
	)

	var gp GamePlayer
	err := row.Scan(&gp.Id, &gp.SessionId, &gp.UserId, &gp.Score, &gp.IsWinner)

	return gp, err
}

func (db *PgChatRepository) UpdateGamePlayerScore(sessionId, accountId, score int) error {
	_, err := db.conn.Exec(
		"UPDATE game_players SET score = $3 WHERE session_id = $1 AND user_id = $2",
		sessionId,
		accountId,
		score,
	)

	return err
}

func (db *PgChatRepository) SetGameWinner(sessionId, accountId int) error {
	_, err := db.conn.Exec(
		"UPDATE game_players SET is_winner = TRUE WHERE session_id = $1 AND user_id = $2",
		sessionId,
		accountId,
	)

	return err
}

func (db *PgChatRepository) ListGamePlayers(sessionId int) ([]GamePlayer, error) {
	rows, err := db.conn.Query(
		"SELECT id, session_id, user_id, score, is_winner FROM game_players "+
			"WHERE session_id = $1 ORDER BY id",
		sessionId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []GamePlayer
	for rows.Next() {
		var gp GamePlayer
		if err = rows.Scan(&gp.Id, &gp.SessionId, &gp.UserId, &gp.Score, &gp.IsWinner); err != nil {
			break
		}

		players = append(players, gp)
	}

	return players, err
}

// RecordGameResult folds one finished game into the player's aggregate
// stats row, creating the row on first play.
func (db *PgChatRepository) RecordGameResult(accountId int, gameType string, score int, won bool) error {
	wonInc := 0
	if won {
		wonInc = 1
	}

	_, err := db.conn.Exec(
		"INSERT INTO game_stats (user_id, game_type, games_played, games_won, total_score, best_score) "+
			"VALUES ($1, $2, 1, $3, $4, $4) "+
			"ON CONFLICT (user_id, game_type) DO UPDATE SET "+
			"games_played = game_stats.games_played + 1, "+
			"games_won = game_stats.games_won + $3, "+
			"total_score = game_stats.total_score + $4, "+
			"best_score = GREATEST(game_stats.best_score, $4)",
		accountId,
		gameType,
		wonInc,
		score,
	)

	return err
}

func (db *PgChatRepository) ListGameStats(accountId int) ([]GameStats, error) {
	rows, err := db.conn.Query(
		"SELECT id, user_id, game_type, games_played, games_won, total_score, best_score "+
			"FROM game_stats WHERE user_id = $1 ORDER BY game_type",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []GameStats
	for rows.Next() {
		var gs GameStats
		if err = rows.Scan(
			&gs.Id,
			&gs.UserId,
			&gs.GameType,
			&gs.GamesPlayed,
			&gs.GamesWon,
			&gs.TotalScore,
			&gs.BestScore,
		); err != nil {
			break
		}

		stats = append(stats, gs)
	}

	return stats, err
}
