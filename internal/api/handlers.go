package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/omegachat/omegachat/internal/database"
	"github.com/omegachat/omegachat/internal/server"
	"github.com/omegachat/omegachat/internal/types"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	searchResultLimit   = 20
)

func (s *OmegaChatApp) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("write response: %v", err)
	}
}

func (s *OmegaChatApp) writeError(w http.ResponseWriter, errResp *ApiError) {
	if errResp.Err != nil {
		s.log.Println(errResp.Error())
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func decodeJson(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func pathId(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("id"))
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        types.User `json:"user"`
}

func (s *OmegaChatApp) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJson(r, &req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || req.Email == "" || req.Password == "" {
		s.writeError(w, NewValidationError("username, email and password are required"))
		return
	}

	taken, err := s.db.UsernameTaken(req.Username, 0)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	if taken {
		s.writeError(w, NewValidationError("username already taken"))
		return
	}

	if _, err := s.db.GetAccountByEmail(req.Email); err == nil {
		s.writeError(w, NewValidationError("email already registered"))
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	account, err := s.db.CreateAccount(database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	})
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.issueSession(w, account, http.StatusCreated)
}

func (s *OmegaChatApp) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJson(r, &req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	account, err := s.db.GetAccountByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, NewUnauthorizedError())
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	if !verifyPassword(account.PasswordHash, req.Password) {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	s.issueSession(w, account, http.StatusOK)
}

// issueSession mints the JWT, sets it as a cookie for browser callers and
// returns it in the body for clients that pass it explicitly.
func (s *OmegaChatApp) issueSession(w http.ResponseWriter, account database.User, statusCode int) {
	token, err := s.createSessionToken(account.Id, account.Username, defaultJwtExpiration)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))
	s.writeJson(w, statusCode, SessionResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        userView(account),
	})
}

func (s *OmegaChatApp) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieKey,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	s.writeJson(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleSession echoes the verified identity back, so clients can check a
// stored token without fetching the full profile.
func (s *OmegaChatApp) handleSession(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())
	s.writeJson(w, http.StatusOK, map[string]any{
		"user_id":  caller.UserId,
		"username": caller.Username,
	})
}

func (s *OmegaChatApp) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	account, err := s.db.GetAccountById(caller.UserId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, NewNotFoundError())
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	view := userView(account)
	view.IsOnline = s.cs.IsOnline(account.Id)

	s.writeJson(w, http.StatusOK, view)
}

type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Status   *string `json:"status"`
}

func (s *OmegaChatApp) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	var req UpdateProfileRequest
	if err := decodeJson(r, &req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	// an omitted username leaves the stored one alone; the identity claim
	// may predate a rename and must never be written back
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			s.writeError(w, NewValidationError("username cannot be empty"))
			return
		}

		taken, err := s.db.UsernameTaken(username, caller.UserId)
		if err != nil {
			s.writeError(w, NewInternalServerError(err))
			return
		}
		if taken {
			s.writeError(w, NewValidationError("username already taken"))
			return
		}

		req.Username = &username
	}

	account, err := s.db.UpdateProfile(database.UpdateProfileParams{
		UserId:   caller.UserId,
		Username: req.Username,
		Status:   req.Status,
	})
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, userView(account))
}

func (s *OmegaChatApp) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeJson(w, http.StatusOK, []types.User{})
		return
	}

	accounts, err := s.db.SearchAccounts(query, caller.UserId, searchResultLimit)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	views := make([]types.User, 0, len(accounts))
	for _, a := range accounts {
		view := userView(a)
		view.EmailAddress = ""
		view.IsOnline = s.cs.IsOnline(a.Id)
		views = append(views, view)
	}

	s.writeJson(w, http.StatusOK, views)
}

type UserStatusResponse struct {
	UserId   int        `json:"user_id"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

func (s *OmegaChatApp) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	userId, err := pathId(r)
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	account, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, NewNotFoundError())
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	resp := UserStatusResponse{
		UserId:   account.Id,
		IsOnline: s.cs.IsOnline(account.Id),
	}
	if !resp.IsOnline && account.LastSeen.Valid {
		lastSeen := account.LastSeen.Time
		resp.LastSeen = &lastSeen
	}

	s.writeJson(w, http.StatusOK, resp)
}

type StartDirectRequest struct {
	UserId int `json:"user_id"`
}

type StartDirectResponse struct {
	Chat  types.DirectChat `json:"chat"`
	IsNew bool             `json:"is_new"`
}

// handleStartDirectChat is idempotent: starting a chat that already exists
// between the pair returns the existing one regardless of who created it.
func (s *OmegaChatApp) handleStartDirectChat(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	var req StartDirectRequest
	if err := decodeJson(r, &req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.UserId == caller.UserId {
		s.writeError(w, NewValidationError("cannot start a chat with yourself"))
		return
	}

	if _, err := s.db.GetAccountById(req.UserId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, NewNotFoundError())
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	chat, err := s.db.FindDirectChatByUsers(caller.UserId, req.UserId)
	if err == nil {
		s.writeJson(w, http.StatusOK, StartDirectResponse{Chat: chatView(chat), IsNew: false})
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	chat, err = s.db.CreateDirectChat(caller.UserId, req.UserId)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, StartDirectResponse{Chat: chatView(chat), IsNew: true})
}

func (s *OmegaChatApp) handleListDirectChats(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	chats, err := s.db.ListDirectChats(caller.UserId)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	now := time.Now()
	summaries := make([]types.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary, err := s.chatSummary(chatView(chat), caller.UserId, now)
		if err != nil {
			s.writeError(w, NewInternalServerError(err))
			return
		}
		summaries = append(summaries, summary)
	}

	// most recent first, chats with no messages after everything else
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
	})

	s.writeJson(w, http.StatusOK, summaries)
}

func (s *OmegaChatApp) chatSummary(chat types.DirectChat, callerId int, now time.Time) (types.ChatSummary, error) {
	counterpart, err := s.db.GetAccountById(chat.Counterpart(callerId))
	if err != nil {
		return types.ChatSummary{}, err
	}

	summary := types.ChatSummary{
		Id:        chat.Id,
		Name:      counterpart.Username,
		Username:  counterpart.Username,
		AvatarUrl: counterpart.AvatarUrl.String,
		IsOnline:  s.cs.IsOnline(counterpart.Id),
	}

	last, err := s.db.LastMessage(chat.Id)
	switch {
	case err == nil:
		view := messageView(last)
		summary.LastMessage = view.Text
		if summary.LastMessage == "" && view.ImageUrl != "" {
			summary.LastMessage = "[image]"
		}
		summary.Time = formatChatTime(view.CreatedAt, now)
		summary.LastMessageAt = view.CreatedAt
	case errors.Is(err, sql.ErrNoRows):
		// empty chat, zero LastMessageAt sorts it last
	default:
		return types.ChatSummary{}, err
	}

	unread, err := s.db.UnreadCount(chat.Id, callerId)
	if err != nil {
		return types.ChatSummary{}, err
	}
	summary.UnreadCount = unread

	return summary, nil
}

func (s *OmegaChatApp) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	chat, errResp := s.authorizedChat(r, caller.UserId)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if err := s.db.DeleteDirectChat(chat.Id); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// authorizedChat loads the chat from the path id and rejects callers who
// are not one of its two participants.
func (s *OmegaChatApp) authorizedChat(r *http.Request, callerId int) (types.DirectChat, *ApiError) {
	chatId, err := pathId(r)
	if err != nil {
		return types.DirectChat{}, NewBadRequestError()
	}

	chat, err := s.db.GetDirectChat(chatId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.DirectChat{}, NewNotFoundError()
		}
		return types.DirectChat{}, NewInternalServerError(err)
	}

	view := chatView(chat)
	if !view.Participant(callerId) {
		return types.DirectChat{}, NewForbiddenError()
	}

	return view, nil
}

func (s *OmegaChatApp) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	chat, errResp := s.authorizedChat(r, caller.UserId)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, NewValidationError("limit must be a positive integer"))
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, NewValidationError("offset must be a non-negative integer"))
			return
		}
		offset = n
	}

	messages, err := s.db.GetMessages(chat.Id, limit, offset)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	// store pages newest first, clients render oldest first
	frames := make([]*server.MessageFrame, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		frames = append(frames, server.NewHistoryFrame(messages[i]))
	}

	s.writeJson(w, http.StatusOK, frames)
}

type ChatPresenceResponse struct {
	ChatId      int   `json:"chat_id"`
	OnlineUsers []int `json:"online_users"`
}

// handleChatPresence reports which participants currently hold a live
// session in the chat's room.
func (s *OmegaChatApp) handleChatPresence(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	chat, errResp := s.authorizedChat(r, caller.UserId)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	online := s.cs.OnlineUsersIn(server.DirectRoomId(chat.Id))
	if online == nil {
		online = []int{}
	}

	s.writeJson(w, http.StatusOK, ChatPresenceResponse{ChatId: chat.Id, OnlineUsers: online})
}

type MarkReadResponse struct {
	ChatId  int   `json:"chat_id"`
	Updated int64 `json:"updated"`
}

func (s *OmegaChatApp) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	chat, errResp := s.authorizedChat(r, caller.UserId)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	updated, err := s.db.MarkMessagesRead(chat.Id, caller.UserId)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	if updated > 0 {
		s.stats.ReadReceipt()
		s.cs.Broadcast(server.DirectRoomId(chat.Id), server.NewReadFrame(chat.Id, caller.UserId))
	}

	s.writeJson(w, http.StatusOK, MarkReadResponse{ChatId: chat.Id, Updated: updated})
}
