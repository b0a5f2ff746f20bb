package game

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const correctAnswerKey = "correctAnswer"

// Question is an opaque question payload. The correct answer is split out
// on decode so Public never carries it; MarshalJSON returns the payload as
// it was received, correct answer included, for scoring and archiving.
type Question struct {
	Raw           json.RawMessage
	Payload       json.RawMessage
	CorrectAnswer *string
}

func (q *Question) UnmarshalJSON(data []byte) error {
	q.Raw = append(json.RawMessage(nil), data...)
	q.CorrectAnswer = nil
	q.Payload = q.Raw

	if !json.Valid(data) {
		return fmt.Errorf("decoding question: invalid JSON")
	}
	// Non-object payloads are kept as-is and have no correct answer.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil
	}
	if v, ok := fields[correctAnswerKey]; ok {
		q.CorrectAnswer = AnswerText(v)
		delete(fields, correctAnswerKey)
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding question payload: %w", err)
	}
	q.Payload = payload
	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	if len(q.Raw) == 0 {
		return []byte("null"), nil
	}
	return q.Raw, nil
}

// Public is the payload safe to send to players.
func (q Question) Public() json.RawMessage {
	if len(q.Payload) == 0 {
		return json.RawMessage("null")
	}
	return q.Payload
}

// AnswerText normalizes a JSON answer value: null yields nil, strings are
// unquoted, any other scalar keeps its literal text.
func AnswerText(v json.RawMessage) *string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return &s
	}
	s = string(v)
	return &s
}
