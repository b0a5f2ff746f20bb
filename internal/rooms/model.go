package rooms

import (
	"sync"
	"time"

	"quizroom/internal/chat"
	"quizroom/internal/game"
	"quizroom/internal/players"
	"quizroom/internal/scoring"
)

// Room is one live session. Every field below mu is guarded by it: all
// events for a room run one at a time under Lock, and rooms never lock each
// other.
type Room struct {
	Code string

	mu            sync.Mutex
	Players       *players.Roster
	Game          *game.State
	Chat          *chat.History
	CreatedAt     time.Time
	EndedAt       *time.Time
	QuestionTimer *time.Timer
	closed        bool
}

func newRoom(code string, chatLimit int) *Room {
	return &Room{
		Code:      code,
		Players:   players.NewRoster(),
		Game:      game.NewState(),
		Chat:      chat.NewHistory(chatLimit),
		CreatedAt: time.Now(),
	}
}

func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

// Closed reports whether the room was torn down. A caller that looked the
// room up before teardown must treat it as gone.
func (r *Room) Closed() bool { return r.closed }

// Close marks the room ended and stops its question timer. It returns the
// terminal status.
func (r *Room) Close(at time.Time) game.Status {
	r.StopTimer()
	r.closed = true
	r.EndedAt = &at
	return r.Game.End()
}

func (r *Room) StopTimer() {
	if r.QuestionTimer != nil {
		r.QuestionTimer.Stop()
		r.QuestionTimer = nil
	}
}

// Snapshot is the durable record of a room.
type Snapshot struct {
	RoomID       string                `json:"roomId"`
	Status       game.Status           `json:"status"`
	Players      []players.Player      `json:"players"`
	CurrentRound *int                  `json:"currentRound"`
	Rounds       []*game.Round         `json:"rounds"`
	Chat         []chat.Entry          `json:"chat"`
	FinalScores  []scoring.FinalResult `json:"finalScores"`
	CreatedAt    time.Time             `json:"createdAt"`
	EndedAt      *time.Time            `json:"endedAt,omitempty"`
}

// Snapshot copies the room's state. Rounds are shared, not deep-copied;
// take it after Close, when they no longer change.
func (r *Room) Snapshot() Snapshot {
	var current *int
	if r.Game.CurrentRound != nil {
		idx := *r.Game.CurrentRound
		current = &idx
	}
	return Snapshot{
		RoomID:       r.Code,
		Status:       r.Game.Status,
		Players:      r.Players.List(),
		CurrentRound: current,
		Rounds:       append([]*game.Round(nil), r.Game.Rounds...),
		Chat:         r.Chat.Entries(),
		FinalScores:  scoring.Compute(r.Game.Rounds).PerPlayerTotal,
		CreatedAt:    r.CreatedAt,
		EndedAt:      r.EndedAt,
	}
}
