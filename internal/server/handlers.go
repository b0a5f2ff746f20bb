package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"quizroom/internal/config"
	"quizroom/internal/db"
	"quizroom/internal/events"
	"quizroom/internal/rooms"
	"quizroom/internal/session"
	"quizroom/internal/wshub"
)

const sendBuffer = 64

type Server struct {
	Config   config.Config
	Rooms    *rooms.Store
	Hub      *wshub.Hub
	Sessions *session.Manager
	DB       *db.DB // nil if no database configured
}

// handleWS serves one client for its whole lifetime. Frames from a single
// connection are handled in order; closing the connection counts as a
// disconnect.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.Config.AllowedOrigins,
	})
	if err != nil {
		log.Printf("[Server] WebSocket accept error: %v\n", err)
		return
	}
	if s.Config.ReadLimit > 0 {
		conn.SetReadLimit(s.Config.ReadLimit)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &wshub.Client{
		ConnID: uuid.New().String(),
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}
	s.Hub.Register(client)
	go client.WritePump(ctx)

	defer func() {
		s.Sessions.Disconnect(client.ConnID)
		s.Hub.Unregister(client.ConnID)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				log.Printf("[Server] Read error for %s: %v\n", client.ConnID, err)
			}
			return
		}
		s.dispatch(client.ConnID, frame)
	}
}

// dispatch runs one inbound frame. Failures go back to the sender only.
func (s *Server) dispatch(connID string, frame []byte) {
	ev, err := events.Parse(frame)
	if err == nil {
		err = s.handle(connID, ev)
	}
	if err == nil {
		return
	}

	var serr *session.Error
	if !errors.As(err, &serr) {
		log.Printf("[Server] %s: %v\n", connID, err)
	}
	s.Hub.Send(connID, events.RoomError(session.Describe(err)))
}

func (s *Server) handle(connID string, ev events.Inbound) error {
	switch ev := ev.(type) {
	case events.CreateRoom:
		_, err := s.Sessions.CreateRoom(connID, ev.Username)
		return err
	case events.JoinRoom:
		return s.Sessions.JoinRoom(connID, ev.RoomID, ev.Username)
	case events.DisconnectManually:
		s.Sessions.Disconnect(connID)
		return nil
	case events.SendMessage:
		return s.Sessions.SendMessage(connID, ev.RoomID, ev.Message)
	case events.GetPlayersInRoom:
		return s.Sessions.PlayersInRoom(connID, ev.RoomID)
	case events.StartQuiz:
		return s.Sessions.StartQuiz(connID, ev.RoomID, ev.QuizParams)
	case events.SubmitAnswer:
		return s.Sessions.SubmitAnswer(connID, ev.RoomID, ev.Answer)
	case events.GetResults:
		return s.Sessions.Results(connID, ev.RoomID)
	default:
		return fmt.Errorf("%w: %s", events.ErrUnknown, ev.EventName())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := "ok"
	store := "none"
	if s.DB != nil {
		store = s.DB.Driver()
		if err := s.DB.Ping(r.Context()); err != nil {
			status = "db_error"
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": status, "store": store, "error": err.Error()})
			return
		}
	}
	json.NewEncoder(w).Encode(map[string]any{"status": status, "store": store, "rooms": s.Rooms.Len()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Encoding response: %v\n", err)
	}
}
