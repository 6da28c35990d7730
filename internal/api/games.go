package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/omegachat/omegachat/internal/database"
)

const (
	GameTypeDice   = "dice"
	GameTypeWheel  = "wheel"
	GameTypeRPS    = "rps"
	GameTypeRandom = "random"

	GameStatusWaiting  = "waiting"
	GameStatusActive   = "active"
	GameStatusFinished = "finished"
)

var rpsMoves = []string{"rock", "paper", "scissors"}

func validGameType(gameType string) bool {
	switch gameType {
	case GameTypeDice, GameTypeWheel, GameTypeRPS, GameTypeRandom:
		return true
	}
	return false
}

type CreateGameRequest struct {
	GameType string `json:"game_type"`
	ChatId   int    `json:"chat_id"`
	GroupId  int    `json:"group_id"`
}

type GameSessionResponse struct {
	Id       int                  `json:"id"`
	GameType string               `json:"game_type"`
	Status   string               `json:"status"`
	Creator  int                  `json:"creator_id"`
	Players  []GamePlayerResponse `json:"players"`
}

type GamePlayerResponse struct {
	UserId   int  `json:"user_id"`
	Score    int  `json:"score"`
	IsWinner bool `json:"is_winner"`
}

func (s *OmegaChatApp) gameSessionResponse(session database.GameSession) (GameSessionResponse, error) {
	players, err := s.db.ListGamePlayers(session.Id)
	if err != nil {
		return GameSessionResponse{}, err
	}

	resp := GameSessionResponse{
		Id:       session.Id,
		GameType: session.GameType,
		Status:   session.Status,
		Creator:  session.CreatorId,
		Players:  make([]GamePlayerResponse, 0, len(players)),
	}
	for _, p := range players {
		resp.Players = append(resp.Players, GamePlayerResponse{
			UserId:   p.UserId,
			Score:    p.Score,
			IsWinner: p.IsWinner,
		})
	}

	return resp, nil
}

func (s *OmegaChatApp) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	var req CreateGameRequest
	if err := decodeJson(r, &req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if !validGameType(req.GameType) {
		s.writeError(w, NewValidationError("unknown game type"))
		return
	}

	session, err := s.db.CreateGameSession(database.CreateGameSessionParams{
		GameType:  req.GameType,
		ChatId:    req.ChatId,
		GroupId:   req.GroupId,
		CreatorId: caller.UserId,
	})
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	// the creator always plays
	if _, err := s.db.AddGamePlayer(session.Id, caller.UserId); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	resp, err := s.gameSessionResponse(session)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, resp)
}

// loadGameSession resolves the path id into a session, mapping a missing
// row to a 404.
func (s *OmegaChatApp) loadGameSession(r *http.Request) (database.GameSession, *ApiError) {
	sessionId, err := pathId(r)
	if err != nil {
		return database.GameSession{}, NewBadRequestError()
	}

	session, err := s.db.GetGameSession(sessionId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.GameSession{}, NewNotFoundError()
		}
		return database.GameSession{}, NewInternalServerError(err)
	}

	return session, nil
}

func (s *OmegaChatApp) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	session, errResp := s.loadGameSession(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if session.Status != GameStatusWaiting {
		s.writeError(w, NewValidationError("game already started"))
		return
	}

	if _, err := s.db.GetGamePlayer(session.Id, caller.UserId); err == nil {
		s.writeError(w, NewValidationError("already joined"))
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	if _, err := s.db.AddGamePlayer(session.Id, caller.UserId); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	resp, err := s.gameSessionResponse(session)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *OmegaChatApp) handleStartGame(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	session, errResp := s.loadGameSession(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if session.CreatorId != caller.UserId {
		s.writeError(w, NewForbiddenError())
		return
	}

	if session.Status != GameStatusWaiting {
		s.writeError(w, NewValidationError("game already started"))
		return
	}

	if err := s.db.UpdateGameStatus(session.Id, GameStatusActive); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	session.Status = GameStatusActive
	resp, err := s.gameSessionResponse(session)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, resp)
}

type GameActionResponse struct {
	UserId int    `json:"user_id"`
	Result string `json:"result,omitempty"`
	Points int    `json:"points"`
	Score  int    `json:"score"`
}

// handleGameAction plays one move. Outcomes are server-side random so
// clients cannot pick their own rolls.
func (s *OmegaChatApp) handleGameAction(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	session, errResp := s.loadGameSession(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if session.Status != GameStatusActive {
		s.writeError(w, NewValidationError("game is not active"))
		return
	}

	player, err := s.db.GetGamePlayer(session.Id, caller.UserId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, NewForbiddenError())
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	result, points := s.playMove(session.GameType)
	newScore := player.Score + points

	if err := s.db.UpdateGamePlayerScore(session.Id, caller.UserId, newScore); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, GameActionResponse{
		UserId: caller.UserId,
		Result: result,
		Points: points,
		Score:  newScore,
	})
}

func (s *OmegaChatApp) playMove(gameType string) (result string, points int) {
	switch gameType {
	case GameTypeDice:
		points = s.intn(6) + 1
	case GameTypeWheel:
		// wheel sectors pay 0, 5, 10, 25, 50 or 100
		sectors := []int{0, 5, 10, 25, 50, 100}
		points = sectors[s.intn(len(sectors))]
	case GameTypeRPS:
		result = rpsMoves[s.intn(len(rpsMoves))]
		points = 1
	case GameTypeRandom:
		points = s.intn(100) + 1
	}
	return result, points
}

func (s *OmegaChatApp) handleEndGame(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	session, errResp := s.loadGameSession(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if session.CreatorId != caller.UserId {
		s.writeError(w, NewForbiddenError())
		return
	}

	if session.Status == GameStatusFinished {
		s.writeError(w, NewValidationError("game already finished"))
		return
	}

	players, err := s.db.ListGamePlayers(session.Id)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	winnerId, best := 0, -1
	for _, p := range players {
		if p.Score > best {
			winnerId, best = p.UserId, p.Score
		}
	}

	if winnerId != 0 {
		if err := s.db.SetGameWinner(session.Id, winnerId); err != nil {
			s.writeError(w, NewInternalServerError(err))
			return
		}
	}

	if err := s.db.FinishGameSession(session.Id); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	for _, p := range players {
		if err := s.db.RecordGameResult(p.UserId, session.GameType, p.Score, p.UserId == winnerId); err != nil {
			s.writeError(w, NewInternalServerError(err))
			return
		}
	}

	session.Status = GameStatusFinished
	resp, err := s.gameSessionResponse(session)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *OmegaChatApp) handleGetGame(w http.ResponseWriter, r *http.Request) {
	session, errResp := s.loadGameSession(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	resp, err := s.gameSessionResponse(session)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, resp)
}

type GameStatsResponse struct {
	GameType    string  `json:"game_type"`
	GamesPlayed int     `json:"games_played"`
	GamesWon    int     `json:"games_won"`
	TotalScore  int     `json:"total_score"`
	BestScore   int     `json:"best_score"`
	WinRate     float64 `json:"win_rate"`
}

func (s *OmegaChatApp) handleGameStats(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())
	s.writeGameStats(w, caller.UserId)
}

func (s *OmegaChatApp) handleUserGameStats(w http.ResponseWriter, r *http.Request) {
	userId, err := pathId(r)
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}
	s.writeGameStats(w, userId)
}

func (s *OmegaChatApp) writeGameStats(w http.ResponseWriter, userId int) {
	stats, err := s.db.ListGameStats(userId)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	resp := make([]GameStatsResponse, 0, len(stats))
	for _, st := range stats {
		entry := GameStatsResponse{
			GameType:    st.GameType,
			GamesPlayed: st.GamesPlayed,
			GamesWon:    st.GamesWon,
			TotalScore:  st.TotalScore,
			BestScore:   st.BestScore,
		}
		if st.GamesPlayed > 0 {
			entry.WinRate = float64(st.GamesWon) / float64(st.GamesPlayed)
		}
		resp = append(resp, entry)
	}

	s.writeJson(w, http.StatusOK, resp)
}
