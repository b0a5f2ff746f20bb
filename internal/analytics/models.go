package analytics

import "time"

// PlayerRoomStats is one player's performance in one archived room.
type PlayerRoomStats struct {
	RoomID        string  `json:"roomId"`
	Username      string  `json:"username"`
	FinalScore    int     `json:"finalScore"`
	Rank          int     `json:"rank"`
	Questions     int     `json:"questions"`
	Answered      int     `json:"answered"`
	Skipped       int     `json:"skipped"`
	Accuracy      float64 `json:"accuracy"` // percentage of questions answered correctly
	PerfectRounds int     `json:"perfectRounds"`
}

type PlayerLifetimeStats struct {
	Username    string  `json:"username"`
	RoomsPlayed int     `json:"roomsPlayed"`
	TotalScore  int     `json:"totalScore"`
	BestRoom    int     `json:"bestRoom"`
	WinCount    int     `json:"winCount"`
	WinStreak   int     `json:"winStreak"`
	Badges      []Badge `json:"badges"`
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	Value    int    `json:"value"`
	Rank     int    `json:"rank"`
}

type RoomRecap struct {
	RoomID    string            `json:"roomId"`
	Status    string            `json:"status"`
	Rounds    int               `json:"rounds"`
	CreatedAt time.Time         `json:"createdAt"`
	EndedAt   *time.Time        `json:"endedAt"`
	Players   []PlayerRoomStats `json:"players"`
}
