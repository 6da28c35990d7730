package api

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"github.com/omegachat/omegachat/internal/blob"
	"github.com/omegachat/omegachat/internal/config"
	"github.com/omegachat/omegachat/internal/database"
	"github.com/omegachat/omegachat/internal/server"
	"github.com/omegachat/omegachat/internal/stats"
)

type OmegaChatApp struct {
	log        *log.Logger
	config     *config.Config
	db         database.ChatRepository
	cs         *server.ChatServer
	blobs      blob.Store
	stats      stats.Provider
	signingKey []byte
	httpServer *http.Server

	// intn is swappable in tests for deterministic game outcomes
	intn func(n int) int
}

func NewOmegaChatApp(cfg *config.Config, logger *log.Logger, db database.ChatRepository,
	cs *server.ChatServer, blobs blob.Store, statsProvider stats.Provider) *OmegaChatApp {

	app := &OmegaChatApp{
		log:        logger,
		config:     cfg,
		db:         db,
		cs:         cs,
		blobs:      blobs,
		stats:      statsProvider,
		signingKey: cfg.SigningKey,
		intn:       rand.Intn,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", app.handleRegister)
	mux.HandleFunc("POST /api/auth/login", app.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", app.authMiddleware(app.handleLogout))
	mux.HandleFunc("GET /api/auth/session", app.authMiddleware(app.handleSession))

	mux.HandleFunc("GET /api/me", app.authMiddleware(app.handleGetProfile))
	mux.HandleFunc("PATCH /api/me", app.authMiddleware(app.handleUpdateProfile))
	mux.HandleFunc("POST /api/me/avatar", app.authMiddleware(app.handleUploadAvatar))

	mux.HandleFunc("GET /api/users/search", app.authMiddleware(app.handleSearchUsers))
	mux.HandleFunc("GET /api/users/{id}/status", app.authMiddleware(app.handleUserStatus))

	mux.HandleFunc("POST /api/direct/start", app.authMiddleware(app.handleStartDirectChat))
	mux.HandleFunc("GET /api/me/directs", app.authMiddleware(app.handleListDirectChats))
	mux.HandleFunc("DELETE /api/chats/{id}", app.authMiddleware(app.handleDeleteChat))
	mux.HandleFunc("GET /api/chats/{id}/messages", app.authMiddleware(app.handleChatHistory))
	mux.HandleFunc("GET /api/chats/{id}/online", app.authMiddleware(app.handleChatPresence))
	mux.HandleFunc("POST /api/chats/{id}/read", app.authMiddleware(app.handleMarkRead))

	mux.HandleFunc("POST /api/upload", app.authMiddleware(app.handleUpload))
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	mux.HandleFunc("POST /api/games", app.authMiddleware(app.handleCreateGame))
	mux.HandleFunc("POST /api/games/{id}/join", app.authMiddleware(app.handleJoinGame))
	mux.HandleFunc("POST /api/games/{id}/start", app.authMiddleware(app.handleStartGame))
	mux.HandleFunc("POST /api/games/{id}/action", app.authMiddleware(app.handleGameAction))
	mux.HandleFunc("POST /api/games/{id}/end", app.authMiddleware(app.handleEndGame))
	mux.HandleFunc("GET /api/games/{id}", app.authMiddleware(app.handleGetGame))
	mux.HandleFunc("GET /api/me/game-stats", app.authMiddleware(app.handleGameStats))
	mux.HandleFunc("GET /api/users/{id}/game-stats", app.authMiddleware(app.handleUserGameStats))

	mux.HandleFunc("GET /ws/dm/{id}", app.serveWs)

	mux.HandleFunc("GET /healthz", app.handleHealth)

	if su, ok := statsProvider.(*stats.StatsUpdater); ok {
		su.Mount(mux)
	}

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)

	app.httpServer = &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      app.errorHandler(corsHandler(mux)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return app
}

func (s *OmegaChatApp) Start() error {
	s.log.Printf("listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *OmegaChatApp) Shutdown(ctx context.Context) error {
	s.cs.Shutdown()
	return s.httpServer.Shutdown(ctx)
}

func (s *OmegaChatApp) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check failed: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}
