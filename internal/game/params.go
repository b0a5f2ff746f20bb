package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QuizParams are the admin's choices for a new round. Field names match the
// wire format.
type QuizParams struct {
	NbQuestions int        `json:"choosenNbQuestions"`
	Categories  Categories `json:"choosenCategory"`
	Timer       int        `json:"choosenTimer"`
	Questions   []Question `json:"questions"`
	Language    string     `json:"quizLanguage"`
}

// Validate reports every absent field at once.
func (p QuizParams) Validate() error {
	var missing []string
	if p.NbQuestions <= 0 {
		missing = append(missing, "choosenNbQuestions")
	}
	if len(p.Categories) == 0 {
		missing = append(missing, "choosenCategory")
	}
	if p.Timer <= 0 {
		missing = append(missing, "choosenTimer")
	}
	if len(p.Questions) == 0 {
		missing = append(missing, "questions")
	}
	if strings.TrimSpace(p.Language) == "" {
		missing = append(missing, "quizLanguage")
	}
	if len(missing) > 0 {
		return &MissingParamsError{Fields: missing}
	}
	return nil
}

type MissingParamsError struct {
	Fields []string
}

func (e *MissingParamsError) Error() string {
	return "missing quiz params: " + strings.Join(e.Fields, ", ")
}

// Categories accepts a single identifier or a list of identifiers.
type Categories []string

func (c *Categories) UnmarshalJSON(data []byte) error {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		one := AnswerText(data)
		if one == nil || *one == "" {
			*c = nil
			return nil
		}
		*c = Categories{*one}
		return nil
	}
	out := make(Categories, 0, len(list))
	for _, item := range list {
		v := AnswerText(item)
		if v == nil || *v == "" {
			return fmt.Errorf("empty category identifier")
		}
		out = append(out, *v)
	}
	*c = out
	return nil
}
