package server

import (
	"context"
	"errors"
	"log"

	"quizroom/internal/analytics"
	"quizroom/internal/db"
	"quizroom/internal/rooms"
)

// archive persists ended rooms and awards the badges earned in them.
type archive struct {
	db      *db.DB
	queries *analytics.Queries
}

func newArchive(database *db.DB) *archive {
	return &archive{db: database, queries: analytics.NewQueries(database)}
}

// UpsertRoom fails only when the room itself was not written; badge errors
// are logged.
func (a *archive) UpsertRoom(ctx context.Context, snap rooms.Snapshot) error {
	if err := a.db.UpsertRoom(ctx, snap); err != nil {
		return err
	}
	n, err := a.queries.AwardRoomBadges(ctx, snap)
	if err != nil {
		log.Printf("[DB] Awarding badges for room %s: %v\n", snap.RoomID, err)
		return nil
	}
	log.Printf("[DB] Archived room %s (%s, %d badge(s) earned)\n", snap.RoomID, snap.Status, n)
	return nil
}

func (a *archive) LoadRoom(ctx context.Context, code string) (*rooms.Snapshot, error) {
	snap, err := a.db.LoadRoom(ctx, code)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return snap, err
}
