package game

import "errors"

type Status string

const (
	StatusWaiting    = Status("WAITING")
	StatusOutgoing   = Status("OUTGOING")
	StatusUnfinished = Status("UNFINISHED")
	StatusCompleted  = Status("COMPLETED")
)

var (
	ErrRoundInProgress   = errors.New("a round is already in progress")
	ErrNoRoundInProgress = errors.New("no round in progress")
	ErrAlreadyAnswered   = errors.New("already answered the current question")
)

// Outcome is the result of an advance decision.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeNextQuestion
	OutcomeQuizEnded
)

// State is a room's round controller. CurrentRound is nil exactly when
// Rounds is empty. State has no lock; the owning room serializes access.
type State struct {
	Status       Status   `json:"status"`
	CurrentRound *int     `json:"currentRound"`
	Rounds       []*Round `json:"rounds"`
}

func NewState() *State {
	return &State{Status: StatusWaiting}
}

// Live returns the round being played, or nil between rounds.
func (s *State) Live() *Round {
	if s.Status != StatusOutgoing || s.CurrentRound == nil {
		return nil
	}
	return s.Rounds[*s.CurrentRound]
}

// Last returns the most recent round, or nil before the first one.
func (s *State) Last() *Round {
	if s.CurrentRound == nil {
		return nil
	}
	return s.Rounds[*s.CurrentRound]
}

// Start appends a new round and makes it live. Nothing is mutated when the
// params are invalid or a round is already live.
func (s *State) Start(p QuizParams) (*Round, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s.Status == StatusOutgoing {
		return nil, ErrRoundInProgress
	}

	round := &Round{
		Categories:  append([]string(nil), p.Categories...),
		Timer:       p.Timer,
		NbQuestions: p.NbQuestions,
		Questions:   append([]Question(nil), p.Questions...),
		Language:    p.Language,
	}
	s.Rounds = append(s.Rounds, round)
	idx := len(s.Rounds) - 1
	s.CurrentRound = &idx
	s.Status = StatusOutgoing
	return round, nil
}

// Submit records answer (nil for no answer) for username on the current
// question and marks the player as having answered.
func (s *State) Submit(username string, answer *string) error {
	round := s.Live()
	if round == nil {
		return ErrNoRoundInProgress
	}
	if round.HasAnswered(username) {
		return ErrAlreadyAnswered
	}
	round.record(username, answer)
	round.Answered = append(round.Answered, username)
	return nil
}

// Forget removes a departed player from the live round's answered set.
func (s *State) Forget(username string) {
	if round := s.Live(); round != nil {
		round.forget(username)
	}
}

// Advance runs the barrier check against the player count at call time.
// When every player has answered it either moves the cursor to the next
// question or ends the round, never both.
func (s *State) Advance(playerCount int) Outcome {
	round := s.Live()
	if round == nil || playerCount <= 0 || len(round.Answered) != playerCount {
		return OutcomeNone
	}
	round.Answered = nil
	if !round.IsLastQuestion() {
		round.CurrentQuestion++
		return OutcomeNextQuestion
	}
	round.Ended = true
	s.Status = StatusWaiting
	return OutcomeQuizEnded
}

// Classify is the teardown status: COMPLETED when at least one round was
// played and none is live, UNFINISHED otherwise. A live round is unfinished
// whatever its cursor, including a cursor still at question 0.
func (s *State) Classify() Status {
	if len(s.Rounds) > 0 && s.Status != StatusOutgoing {
		return StatusCompleted
	}
	return StatusUnfinished
}

// End stops any live round and stamps the terminal status. An interrupted
// round is closed where it stood.
func (s *State) End() Status {
	status := s.Classify()
	if round := s.Live(); round != nil {
		round.Answered = nil
		round.Ended = true
	}
	s.Status = status
	return status
}
