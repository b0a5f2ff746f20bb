package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"quizroom/internal/rooms"
	"quizroom/internal/scoring"
)

type RoomRecord struct {
	ID           string
	Status       string
	RoundsPlayed int
	CreatedAt    time.Time
	EndedAt      *time.Time
	UpdatedAt    time.Time
}

type RoomPlayer struct {
	RoomID     string
	Username   string
	FinalScore int
	Rank       int
}

// UpsertRoom writes an ended room and its final standings in one
// transaction. Writing the same room twice replaces the first record.
func (d *DB) UpsertRoom(ctx context.Context, snap rooms.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding room snapshot: %w", err)
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rooms (id, status, rounds_played, snapshot, created_at, ended_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			rounds_played = excluded.rounds_played,
			snapshot = excluded.snapshot,
			ended_at = excluded.ended_at,
			updated_at = excluded.updated_at
	`, snap.RoomID, string(snap.Status), len(snap.Rounds), string(payload),
		snap.CreatedAt.UTC(), utc(snap.EndedAt), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting room: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM room_players WHERE room_id = $1`, snap.RoomID); err != nil {
		return fmt.Errorf("clearing room players: %w", err)
	}
	for _, p := range Standings(snap.RoomID, snap.FinalScores) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO room_players (room_id, username, final_score, rank)
			VALUES ($1, $2, $3, $4)
		`, p.RoomID, p.Username, p.FinalScore, p.Rank)
		if err != nil {
			return fmt.Errorf("inserting room player %s: %w", p.Username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing room: %w", err)
	}
	return nil
}

// LoadRoom returns the archived snapshot of a room, or ErrNotFound.
func (d *DB) LoadRoom(ctx context.Context, code string) (*rooms.Snapshot, error) {
	var payload []byte
	err := d.conn.QueryRowContext(ctx, `SELECT snapshot FROM rooms WHERE id = $1`, code).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading room: %w", err)
	}

	var snap rooms.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decoding room snapshot: %w", err)
	}
	return &snap, nil
}

func (d *DB) GetRoom(ctx context.Context, code string) (*RoomRecord, error) {
	r := &RoomRecord{}
	err := d.conn.QueryRowContext(ctx, `
		SELECT id, status, rounds_played, created_at, ended_at, updated_at
		FROM rooms WHERE id = $1
	`, code).Scan(&r.ID, &r.Status, &r.RoundsPlayed, &r.CreatedAt, &r.EndedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting room: %w", err)
	}
	return r, nil
}

func (d *DB) GetRoomPlayers(ctx context.Context, code string) ([]RoomPlayer, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT room_id, username, final_score, rank
		FROM room_players WHERE room_id = $1
		ORDER BY rank, username
	`, code)
	if err != nil {
		return nil, fmt.Errorf("getting room players: %w", err)
	}
	defer rows.Close()

	var list []RoomPlayer
	for rows.Next() {
		var p RoomPlayer
		if err := rows.Scan(&p.RoomID, &p.Username, &p.FinalScore, &p.Rank); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Standings ranks final scores highest first. Tied players share a rank and
// the next rank skips accordingly (1, 1, 3).
func Standings(roomID string, scores []scoring.FinalResult) []RoomPlayer {
	sorted := append([]scoring.FinalResult(nil), scores...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FinalScore > sorted[j].FinalScore
	})

	list := make([]RoomPlayer, len(sorted))
	for i, s := range sorted {
		rank := i + 1
		if i > 0 && s.FinalScore == sorted[i-1].FinalScore {
			rank = list[i-1].Rank
		}
		list[i] = RoomPlayer{RoomID: roomID, Username: s.Username, FinalScore: s.FinalScore, Rank: rank}
	}
	return list
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
