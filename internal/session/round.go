package session

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"quizroom/internal/chat"
	"quizroom/internal/events"
	"quizroom/internal/game"
	"quizroom/internal/messages"
	"quizroom/internal/metrics"
	"quizroom/internal/rooms"
	"quizroom/internal/scoring"
)

// StartQuiz opens a new round and broadcasts its first question. Any seated
// player may start; admin rights are a client-side convention.
func (m *Manager) StartQuiz(connID, code string, params game.QuizParams) error {
	room, err := m.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.Unlock()

	p, err := seated(room, connID)
	if err != nil {
		return err
	}

	round, err := room.Game.Start(params)
	var missing *game.MissingParamsError
	switch {
	case errors.As(err, &missing):
		return missingParams(missing.Fields)
	case errors.Is(err, game.ErrRoundInProgress):
		return ErrGameInProgress
	case err != nil:
		return fmt.Errorf("starting round: %w", err)
	}
	metrics.RoundsStarted.Inc()
	log.Printf("[Session] %s started round %d in room %s (%d questions)\n",
		p.Username, *room.Game.CurrentRound, room.Code, len(round.Questions))

	m.announce(room, chat.LevelSuccess, messages.StartedGame, messages.Vars{"username": p.Username})
	m.announceQuestion(room, round)
	m.notify.Broadcast(room.Code, events.QuizStarted())
	m.sendQuestion(room, round)
	return nil
}

// SubmitAnswer records the caller's answer (nil for none) to the current
// question, then runs the advance decision.
func (m *Manager) SubmitAnswer(connID, code string, answer *string) error {
	room, err := m.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.Unlock()

	p, err := seated(room, connID)
	if err != nil {
		return err
	}

	switch err := room.Game.Submit(p.Username, answer); {
	case errors.Is(err, game.ErrNoRoundInProgress):
		return ErrNoRoundInProgress
	case errors.Is(err, game.ErrAlreadyAnswered):
		return ErrAlreadyAnswered
	case err != nil:
		return fmt.Errorf("submitting answer: %w", err)
	}

	vars := messages.Vars{"username": p.Username}
	if answer == nil {
		metrics.Answers.WithLabelValues("skipped").Inc()
		m.announce(room, chat.LevelWarning, messages.DidntAnswer, vars)
	} else {
		metrics.Answers.WithLabelValues("answered").Inc()
		m.announce(room, chat.LevelInfo, messages.Answered, vars)
	}
	m.notify.Send(connID, events.PlayerAlreadyAnswered())

	m.advance(room)
	return nil
}

// Results sends per-round and cumulative scores to the caller. It reads the
// live room when there is one and the archived record otherwise. Nothing is
// mutated, so repeated calls give identical output.
func (m *Manager) Results(connID, code string) error {
	room, err := m.lockRoom(code)
	switch {
	case err == nil:
		res := scoring.Compute(room.Game.Rounds)
		room.Unlock()
		m.notify.Send(connID, events.ResultsInRoom(res))
		return nil
	case !errors.Is(err, ErrRoomNotFound):
		return err
	}

	snap, err := m.archived(code)
	if err != nil {
		return err
	}
	m.notify.Send(connID, events.ResultsInRoom(scoring.Compute(snap.Rounds)))
	return nil
}

func (m *Manager) archived(code string) (*rooms.Snapshot, error) {
	if m.archive == nil {
		return nil, ErrRoomNotFound
	}
	ctx, cancel := m.persistContext()
	defer cancel()

	snap, err := m.archive.LoadRoom(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("loading archived room %s: %w", code, err)
	}
	if snap == nil {
		return nil, ErrRoomNotFound
	}
	return snap, nil
}

// advance runs the barrier check against the current player count and
// broadcasts whichever transition it produced. Called with the room locked
// after every answer and every departure.
func (m *Manager) advance(room *rooms.Room) {
	round := room.Game.Live()
	if round == nil {
		return
	}

	switch room.Game.Advance(room.Players.Len()) {
	case game.OutcomeNextQuestion:
		m.announceQuestion(room, round)
		m.sendQuestion(room, round)
	case game.OutcomeQuizEnded:
		room.StopTimer()
		room.Players.SetScores(scoring.Compute(room.Game.Rounds).Totals())
		m.announce(room, chat.LevelSuccess, messages.QuizEnded, nil)
		m.notify.Broadcast(room.Code, events.QuizEnded())
		m.broadcastRoster(room)
		log.Printf("[Session] Round %d ended in room %s\n", *room.Game.CurrentRound, room.Code)
	}
}

func (m *Manager) announceQuestion(room *rooms.Room, round *game.Round) {
	m.announce(room, chat.LevelInfo, messages.QuestionNumber, messages.Vars{
		"current": strconv.Itoa(round.CurrentQuestion + 1),
		"total":   strconv.Itoa(len(round.Questions)),
	})
}

// sendQuestion broadcasts the question under the cursor and arms its
// deadline.
func (m *Manager) sendQuestion(room *rooms.Room, round *game.Round) {
	m.notify.Broadcast(room.Code, events.NewQuestion(round))
	m.armTimer(room, round)
}

func (m *Manager) armTimer(room *rooms.Room, round *game.Round) {
	room.StopTimer()
	if !m.cfg.QuestionTimers || round.Timer <= 0 {
		return
	}
	roundIdx := *room.Game.CurrentRound
	question := round.CurrentQuestion
	wait := time.Duration(round.Timer)*time.Second + m.cfg.TimerGrace
	room.QuestionTimer = time.AfterFunc(wait, func() {
		m.expire(room, roundIdx, question)
	})
}

// expire records a nil answer for every player who has not answered the
// question the timer was armed for. A timer that fires after its question
// moved on does nothing.
func (m *Manager) expire(room *rooms.Room, roundIdx, question int) {
	room.Lock()
	defer room.Unlock()

	if room.Closed() {
		return
	}
	round := room.Game.Live()
	if round == nil || *room.Game.CurrentRound != roundIdx || round.CurrentQuestion != question {
		return
	}
	room.QuestionTimer = nil

	for _, name := range room.Players.Usernames() {
		if err := room.Game.Submit(name, nil); err != nil {
			continue
		}
		metrics.Answers.WithLabelValues("timed_out").Inc()
		m.announce(room, chat.LevelWarning, messages.DidntAnswer, messages.Vars{"username": name})
	}
	log.Printf("[Session] Question %d of round %d timed out in room %s\n", question+1, roundIdx, room.Code)
	m.advance(room)
}
