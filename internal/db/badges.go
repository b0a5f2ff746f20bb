package db

import (
	"context"
	"fmt"
	"time"
)

type PlayerBadge struct {
	Username  string
	BadgeID   string
	RoomID    *string
	AwardedAt time.Time
}

// AwardBadge records a badge once per player; later awards are ignored.
func (d *DB) AwardBadge(ctx context.Context, username, badgeID, roomID string) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO player_badges (username, badge_id, room_id, awarded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username, badge_id) DO NOTHING
	`, username, badgeID, roomID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("awarding badge: %w", err)
	}
	return nil
}

func (d *DB) GetPlayerBadges(ctx context.Context, username string) ([]PlayerBadge, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT username, badge_id, room_id, awarded_at
		FROM player_badges WHERE username = $1
		ORDER BY awarded_at, badge_id
	`, username)
	if err != nil {
		return nil, fmt.Errorf("getting player badges: %w", err)
	}
	defer rows.Close()

	var list []PlayerBadge
	for rows.Next() {
		var b PlayerBadge
		if err := rows.Scan(&b.Username, &b.BadgeID, &b.RoomID, &b.AwardedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}
