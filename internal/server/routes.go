package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizroom/internal/config"
	"quizroom/internal/db"
	"quizroom/internal/metrics"
	"quizroom/internal/rooms"
	"quizroom/internal/session"
	"quizroom/internal/wshub"
)

func Run() error {
	appCfg := config.Load()

	// Optional database connection
	var database *db.DB
	if appCfg.DatabaseURL != "" {
		conn, err := db.Connect(appCfg.DatabaseType, appCfg.DatabaseURL)
		if err != nil {
			log.Printf("[DB] Failed to connect: %v (running without database)\n", err)
		} else if err := conn.Migrate(); err != nil {
			log.Printf("[DB] Migration failed: %v (running without database)\n", err)
			conn.Close()
		} else {
			database = conn
			log.Println("[DB] Database connected and migrations applied")
		}
	} else {
		log.Println("[DB] DATABASE_URL not set, ended rooms will not be persisted")
	}

	srv := New(appCfg, database)

	httpSrv := &http.Server{
		Addr:    "0.0.0.0:" + appCfg.Port,
		Handler: srv.Routes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		fmt.Printf("Server listening on http://localhost:%s\n", appCfg.Port)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Println("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := httpSrv.Shutdown(shutdownCtx)
	srv.Sessions.Shutdown()
	if database != nil {
		database.Close()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// New wires the room engine. database may be nil.
func New(cfg config.Config, database *db.DB) *Server {
	hub := wshub.NewHub()
	store := rooms.NewStore(cfg.RoomCodeLength, cfg.ChatMessageLimit)

	var arch session.Archive
	if database != nil {
		arch = newArchive(database)
	}

	return &Server{
		Config: cfg,
		Rooms:  store,
		Hub:    hub,
		DB:     database,
		Sessions: session.NewManager(store, hub, arch, session.Config{
			MaxPlayers:     cfg.MaxPlayers,
			QuestionTimers: cfg.QuestionTimers,
			TimerGrace:     time.Duration(cfg.TimerGrace) * time.Second,
			PersistTimeout: time.Duration(cfg.PersistTimeout) * time.Second,
		}),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /rooms/{code}/record", s.handleRoomRecord)
	mux.HandleFunc("GET /analytics/leaderboard", s.handleAnalyticsLeaderboard)
	mux.HandleFunc("GET /analytics/player/{name}", s.handleAnalyticsPlayer)
	return mux
}
