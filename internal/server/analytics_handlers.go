package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"quizroom/internal/analytics"
	"quizroom/internal/db"
)

const maxLeaderboardLimit = 100

func (s *Server) handleRoomRecord(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "Room records require a database connection", http.StatusServiceUnavailable)
		return
	}

	q := analytics.NewQueries(s.DB)
	recap, err := q.GetRoomRecap(r.Context(), r.PathValue("code"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[Analytics] room recap error: %v\n", err)
		http.Error(w, "Error loading room", http.StatusInternalServerError)
		return
	}
	writeJSON(w, recap)
}

func (s *Server) handleAnalyticsLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "Analytics requires a database connection", http.StatusServiceUnavailable)
		return
	}

	category := r.URL.Query().Get("cat")
	if category == "" {
		category = "score"
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxLeaderboardLimit {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	q := analytics.NewQueries(s.DB)
	entries, err := q.GetLeaderboard(r.Context(), category, limit)
	if errors.Is(err, analytics.ErrUnknownCategory) {
		http.Error(w, "Unknown leaderboard category", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("[Analytics] leaderboard error: %v\n", err)
		http.Error(w, "Error loading leaderboard", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleAnalyticsPlayer(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "Analytics requires a database connection", http.StatusServiceUnavailable)
		return
	}

	q := analytics.NewQueries(s.DB)
	stats, err := q.GetPlayerLifetimeStats(r.Context(), r.PathValue("name"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Player not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[Analytics] player stats error: %v\n", err)
		http.Error(w, "Error loading player stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}
