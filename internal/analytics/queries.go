package analytics

import (
	"context"
	"errors"
	"fmt"

	"quizroom/internal/db"
	"quizroom/internal/rooms"
	"quizroom/internal/scoring"
)

var ErrUnknownCategory = errors.New("unknown leaderboard category")

type Queries struct {
	DB *db.DB
}

func NewQueries(database *db.DB) *Queries {
	return &Queries{DB: database}
}

// RoomStats derives every scored player's performance from an archived
// room, in standings order.
func RoomStats(snap rooms.Snapshot) []PlayerRoomStats {
	standings := db.Standings(snap.RoomID, snap.FinalScores)
	byName := make(map[string]*PlayerRoomStats, len(standings))
	list := make([]PlayerRoomStats, len(standings))
	for i, p := range standings {
		list[i] = PlayerRoomStats{RoomID: snap.RoomID, Username: p.Username, FinalScore: p.FinalScore, Rank: p.Rank}
		byName[p.Username] = &list[i]
	}

	correct := make(map[string]int)
	for _, round := range snap.Rounds {
		for _, pa := range round.Answers {
			stats, ok := byName[pa.Username]
			if !ok {
				continue
			}
			score := scoring.Score(round.Questions, pa.Answers)
			correct[pa.Username] += score
			stats.Questions += len(pa.Answers)
			for _, a := range pa.Answers {
				if a == nil {
					stats.Skipped++
				} else {
					stats.Answered++
				}
			}
			if len(round.Questions) > 0 && score == len(round.Questions) {
				stats.PerfectRounds++
			}
		}
	}

	for i := range list {
		if list[i].Questions > 0 {
			list[i].Accuracy = float64(correct[list[i].Username]) / float64(list[i].Questions) * 100
		}
	}
	return list
}

// AwardRoomBadges stores the badges each player earned in an archived room
// and returns how many were evaluated as earned.
func (q *Queries) AwardRoomBadges(ctx context.Context, snap rooms.Snapshot) (int, error) {
	earned := 0
	for _, stats := range RoomStats(snap) {
		for _, b := range EvaluateRoomBadges(stats) {
			if err := q.DB.AwardBadge(ctx, stats.Username, string(b.ID), snap.RoomID); err != nil {
				return earned, err
			}
			earned++
		}
	}
	return earned, nil
}

func (q *Queries) GetPlayerLifetimeStats(ctx context.Context, username string) (*PlayerLifetimeStats, error) {
	stats := &PlayerLifetimeStats{Username: username}

	err := q.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*) as rooms_played,
			COALESCE(SUM(final_score), 0) as total_score,
			COALESCE(MAX(final_score), 0) as best_room,
			COUNT(*) FILTER (WHERE rank = 1) as win_count
		FROM room_players
		WHERE username = $1
	`, username).Scan(&stats.RoomsPlayed, &stats.TotalScore, &stats.BestRoom, &stats.WinCount)
	if err != nil {
		return nil, fmt.Errorf("getting lifetime stats: %w", err)
	}
	if stats.RoomsPlayed == 0 {
		return nil, db.ErrNotFound
	}

	streak, err := q.winStreak(ctx, username)
	if err != nil {
		return nil, err
	}
	stats.WinStreak = streak

	stored, err := q.DB.GetPlayerBadges(ctx, username)
	if err != nil {
		return nil, err
	}
	for _, b := range stored {
		if badge, ok := AllBadges[BadgeID(b.BadgeID)]; ok {
			stats.Badges = append(stats.Badges, badge)
		}
	}
	stats.Badges = append(stats.Badges, EvaluateLifetimeBadges(*stats)...)

	return stats, nil
}

// winStreak counts the player's consecutive wins, most recent room first.
// The rows are closed before returning so the connection is free for the
// next query.
func (q *Queries) winStreak(ctx context.Context, username string) (int, error) {
	rows, err := q.DB.QueryContext(ctx, `
		SELECT rp.rank
		FROM room_players rp
		JOIN rooms r ON r.id = rp.room_id
		WHERE rp.username = $1 AND r.ended_at IS NOT NULL
		ORDER BY r.ended_at DESC
	`, username)
	if err != nil {
		return 0, fmt.Errorf("getting win streak: %w", err)
	}
	defer rows.Close()

	streak := 0
	for rows.Next() {
		var rank int
		if err := rows.Scan(&rank); err != nil {
			return 0, fmt.Errorf("scanning win streak: %w", err)
		}
		if rank != 1 {
			break
		}
		streak++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("reading win streak: %w", err)
	}
	return streak, nil
}

func (q *Queries) GetLeaderboard(ctx context.Context, category string, limit int) ([]LeaderboardEntry, error) {
	var query string
	switch category {
	case "score":
		query = `
			SELECT username, COALESCE(SUM(final_score), 0) as value
			FROM room_players
			GROUP BY username
			ORDER BY value DESC, username
			LIMIT $1`
	case "wins":
		query = `
			SELECT username, COUNT(*) FILTER (WHERE rank = 1) as value
			FROM room_players
			GROUP BY username
			ORDER BY value DESC, username
			LIMIT $1`
	case "rooms":
		query = `
			SELECT username, COUNT(*) as value
			FROM room_players
			GROUP BY username
			ORDER BY value DESC, username
			LIMIT $1`
	case "best":
		query = `
			SELECT username, MAX(final_score) as value
			FROM room_players
			GROUP BY username
			ORDER BY value DESC, username
			LIMIT $1`
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	rows, err := q.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Value); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (q *Queries) GetRoomRecap(ctx context.Context, code string) (*RoomRecap, error) {
	rec, err := q.DB.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	snap, err := q.DB.LoadRoom(ctx, code)
	if err != nil {
		return nil, err
	}

	return &RoomRecap{
		RoomID:    rec.ID,
		Status:    rec.Status,
		Rounds:    rec.RoundsPlayed,
		CreatedAt: rec.CreatedAt,
		EndedAt:   rec.EndedAt,
		Players:   RoomStats(*snap),
	}, nil
}
