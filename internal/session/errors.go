package session

import (
	"errors"
	"fmt"
	"strings"

	"quizroom/internal/events"
	"quizroom/internal/messages"
)

// Error is a request-scoped failure. It is reported to the requesting
// connection only and never mutates room state.
type Error struct {
	Code   messages.Key
	Fields []string
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Code, strings.Join(e.Fields, ", "))
	}
	return string(e.Code)
}

// Is matches on Code alone, so a MissingQuizParams error with fields still
// matches ErrMissingQuizParams.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrRoomCodeRequired  = &Error{Code: messages.ErrRoomCodeRequired}
	ErrRoomNotFound      = &Error{Code: messages.ErrRoomNotFound}
	ErrRoomFull          = &Error{Code: messages.ErrRoomFull}
	ErrNameRequired      = &Error{Code: messages.ErrNameRequired}
	ErrNameTaken         = &Error{Code: messages.ErrNameTaken}
	ErrGameInProgress    = &Error{Code: messages.ErrGameInProgress}
	ErrMissingQuizParams = &Error{Code: messages.ErrMissingQuizParams}
	ErrMessageRequired   = &Error{Code: messages.ErrMessageRequired}
	ErrNotInRoom         = &Error{Code: messages.ErrNotInRoom}
	ErrAlreadyInRoom     = &Error{Code: messages.ErrAlreadyInRoom}
	ErrNoRoundInProgress = &Error{Code: messages.ErrNoRoundInProgress}
	ErrAlreadyAnswered   = &Error{Code: messages.ErrAlreadyAnswered}
)

func missingParams(fields []string) *Error {
	return &Error{Code: messages.ErrMissingQuizParams, Fields: fields}
}

// Describe renders err as the per-language message carried by a
// roomMessageError event.
func Describe(err error) map[string]string {
	var serr *Error
	switch {
	case errors.As(err, &serr):
		var vars messages.Vars
		if len(serr.Fields) > 0 {
			vars = messages.Vars{"fields": strings.Join(serr.Fields, ", ")}
		}
		return messages.Localize(serr.Code, vars)
	case errors.Is(err, events.ErrUnknown):
		return messages.Localize(messages.ErrUnknownEvent, nil)
	case errors.Is(err, events.ErrMalformed):
		return messages.Localize(messages.ErrMalformedEvent, nil)
	default:
		return messages.Localize(messages.ErrInternal, nil)
	}
}
