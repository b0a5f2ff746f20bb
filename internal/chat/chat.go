package chat

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

type Level string

const (
	LevelInfo    = Level("info")
	LevelWarning = Level("warning")
	LevelSuccess = Level("success")
)

// Entry is a transcript line: a plain string for user messages or a
// language->text map for system messages. It marshals to whichever it holds.
type Entry struct {
	Text      string
	Localized map[string]string
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Localized != nil {
		return json.Marshal(e.Localized)
	}
	return json.Marshal(e.Text)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*e = Entry{Text: text}
		return nil
	}
	var localized map[string]string
	if err := json.Unmarshal(data, &localized); err != nil {
		return err
	}
	*e = Entry{Localized: localized}
	return nil
}

// History is an append-only transcript. Guarded by the owning room's lock.
type History struct {
	entries []Entry
	limit   int
}

// NewHistory caps user messages at limit runes; zero means no cap.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

func (h *History) AppendSystem(localized map[string]string) Entry {
	e := Entry{Localized: localized}
	h.entries = append(h.entries, e)
	return e
}

// AppendUser formats and appends a user message. Messages over the limit
// are dropped and ok is false.
func (h *History) AppendUser(sender, message string) (e Entry, ok bool) {
	message = strings.TrimSpace(message)
	if h.limit > 0 && utf8.RuneCountInString(message) > h.limit {
		return Entry{}, false
	}
	e = Entry{Text: sender + ": " + message}
	h.entries = append(h.entries, e)
	return e, true
}

// Entries returns a copy of the transcript.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int {
	return len(h.entries)
}
