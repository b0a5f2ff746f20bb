// Package events defines the wire protocol: every frame is
// {"event": name, "data": payload} in both directions.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"quizroom/internal/chat"
	"quizroom/internal/game"
	"quizroom/internal/players"
	"quizroom/internal/scoring"
)

// Inbound event names.
const (
	NameCreateRoom         = "createRoom"
	NameJoinRoom           = "joinRoom"
	NameDisconnectManually = "disconnectManually"
	NameSendMessage        = "sendMessage"
	NameGetPlayersInRoom   = "getPlayersInRoom"
	NameStartQuiz          = "startQuiz"
	NameSubmitAnswer       = "submitAnswer"
	NameGetResults         = "getResults"
)

// Outbound event names.
const (
	NameRoomEntered           = "roomEntered"
	NameRoomMessageInfo       = "roomMessageInfo"
	NameRoomMessageWarning    = "roomMessageWarning"
	NameRoomMessageError      = "roomMessageError"
	NameRoomMessageSuccess    = "roomMessageSuccess"
	NameChatUpdate            = "chatUpdate"
	NamePlayersInRoom         = "playersInRoom"
	NameNewAdmin              = "newAdmin"
	NameQuizStarted           = "quizStarted"
	NameNewQuestion           = "newQuestion"
	NameQuizEnded             = "quizEnded"
	NamePlayerAlreadyAnswered = "playerAlreadyAnswered"
	NameResultsInRoom         = "resultsInRoom"
)

var (
	ErrMalformed = errors.New("malformed event")
	ErrUnknown   = errors.New("unknown event")
)

// Inbound is one of the typed client requests below.
type Inbound interface {
	EventName() string
}

type CreateRoom struct {
	Username string `json:"username"`
}

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type DisconnectManually struct{}

type SendMessage struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type GetPlayersInRoom struct {
	RoomID string `json:"roomId"`
}

type StartQuiz struct {
	RoomID string `json:"roomId"`
	game.QuizParams
}

// SubmitAnswer carries a nil Answer for "no answer".
type SubmitAnswer struct {
	RoomID string
	Answer *string
}

func (s *SubmitAnswer) UnmarshalJSON(data []byte) error {
	var wire struct {
		RoomID string          `json:"roomId"`
		Answer json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.RoomID = wire.RoomID
	s.Answer = game.AnswerText(wire.Answer)
	return nil
}

type GetResults struct {
	RoomID string `json:"roomId"`
}

func (CreateRoom) EventName() string         { return NameCreateRoom }
func (JoinRoom) EventName() string           { return NameJoinRoom }
func (DisconnectManually) EventName() string { return NameDisconnectManually }
func (SendMessage) EventName() string        { return NameSendMessage }
func (GetPlayersInRoom) EventName() string   { return NameGetPlayersInRoom }
func (StartQuiz) EventName() string          { return NameStartQuiz }
func (SubmitAnswer) EventName() string       { return NameSubmitAnswer }
func (GetResults) EventName() string         { return NameGetResults }

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Parse decodes a client frame into its typed variant. Unknown names wrap
// ErrUnknown; undecodable frames or payloads wrap ErrMalformed.
func Parse(frame []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Event {
	case NameCreateRoom:
		return decode[CreateRoom](env.Data)
	case NameJoinRoom:
		return decode[JoinRoom](env.Data)
	case NameDisconnectManually:
		return DisconnectManually{}, nil
	case NameSendMessage:
		return decode[SendMessage](env.Data)
	case NameGetPlayersInRoom:
		return decode[GetPlayersInRoom](env.Data)
	case NameStartQuiz:
		return decode[StartQuiz](env.Data)
	case NameSubmitAnswer:
		return decode[SubmitAnswer](env.Data)
	case NameGetResults:
		return decode[GetResults](env.Data)
	case "":
		return nil, fmt.Errorf("%w: missing event name", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, env.Event)
	}
}

func decode[T Inbound](data json.RawMessage) (Inbound, error) {
	var v T
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}

// Outbound is a server frame.
type Outbound struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

type RoomEnteredPayload struct {
	IsAdmin bool   `json:"isAdmin"`
	RoomID  string `json:"roomId"`
}

type RoomMessagePayload struct {
	Message map[string]string `json:"message"`
}

type PlayersInRoomPayload struct {
	MaxPlayer int              `json:"maxPlayer"`
	Players   []players.Player `json:"players"`
}

type NewQuestionPayload struct {
	QuizLanguage         string          `json:"quizLanguage"`
	ChoosenTimer         int             `json:"choosenTimer"`
	QuestionsLength      int             `json:"questionsLength"`
	CurrentQuestionIndex int             `json:"currentQuestionIndex"`
	CurrentQuestion      json.RawMessage `json:"currentQuestion"`
}

func RoomEntered(isAdmin bool, roomID string) Outbound {
	return Outbound{Name: NameRoomEntered, Data: RoomEnteredPayload{IsAdmin: isAdmin, RoomID: roomID}}
}

// RoomMessage picks the outbound name for a chat level.
func RoomMessage(level chat.Level, message map[string]string) Outbound {
	name := NameRoomMessageInfo
	switch level {
	case chat.LevelWarning:
		name = NameRoomMessageWarning
	case chat.LevelSuccess:
		name = NameRoomMessageSuccess
	}
	return Outbound{Name: name, Data: RoomMessagePayload{Message: message}}
}

func RoomError(message map[string]string) Outbound {
	return Outbound{Name: NameRoomMessageError, Data: RoomMessagePayload{Message: message}}
}

func ChatUpdate(history []chat.Entry) Outbound {
	if history == nil {
		history = []chat.Entry{}
	}
	return Outbound{Name: NameChatUpdate, Data: history}
}

func PlayersInRoom(maxPlayer int, list []players.Player) Outbound {
	if list == nil {
		list = []players.Player{}
	}
	return Outbound{Name: NamePlayersInRoom, Data: PlayersInRoomPayload{MaxPlayer: maxPlayer, Players: list}}
}

func NewAdmin(p players.Player) Outbound {
	return Outbound{Name: NameNewAdmin, Data: p}
}

func QuizStarted() Outbound {
	return Outbound{Name: NameQuizStarted}
}

// NewQuestion never includes the correct answer.
func NewQuestion(round *game.Round) Outbound {
	return Outbound{Name: NameNewQuestion, Data: NewQuestionPayload{
		QuizLanguage:         round.Language,
		ChoosenTimer:         round.Timer,
		QuestionsLength:      len(round.Questions),
		CurrentQuestionIndex: round.CurrentQuestion,
		CurrentQuestion:      round.Current().Public(),
	}}
}

func QuizEnded() Outbound {
	return Outbound{Name: NameQuizEnded}
}

func PlayerAlreadyAnswered() Outbound {
	return Outbound{Name: NamePlayerAlreadyAnswered, Data: struct{}{}}
}

func ResultsInRoom(res scoring.Results) Outbound {
	return Outbound{Name: NameResultsInRoom, Data: res}
}
