package game

import "slices"

// PlayerAnswer holds one player's answers for a round, index-aligned with
// the round's questions. A nil entry means no answer.
type PlayerAnswer struct {
	Username string    `json:"username"`
	Answers  []*string `json:"answers"`
}

type Round struct {
	Categories      []string       `json:"choosenCategory"`
	Timer           int            `json:"choosenTimer"`
	NbQuestions     int            `json:"choosenNbQuestions"`
	Questions       []Question     `json:"questions"`
	CurrentQuestion int            `json:"currentQuestionIndex"`
	Answers         []PlayerAnswer `json:"playersAnswers"`
	Answered        []string       `json:"playersAlreadyAnswered"`
	Language        string         `json:"quizLanguage"`
	Ended           bool           `json:"ended"`
}

func (r *Round) HasAnswered(username string) bool {
	return slices.Contains(r.Answered, username)
}

// IsLastQuestion reports whether the cursor sits on the final question.
func (r *Round) IsLastQuestion() bool {
	return r.CurrentQuestion >= len(r.Questions)-1
}

// Current is the question under the cursor.
func (r *Round) Current() Question {
	return r.Questions[r.CurrentQuestion]
}

// AnswersOf returns the recorded answers for username, or nil.
func (r *Round) AnswersOf(username string) []*string {
	for _, pa := range r.Answers {
		if pa.Username == username {
			return pa.Answers
		}
	}
	return nil
}

func (r *Round) record(username string, answer *string) {
	for i := range r.Answers {
		if r.Answers[i].Username == username {
			r.Answers[i].Answers = alignAppend(r.Answers[i].Answers, r.CurrentQuestion, answer)
			return
		}
	}
	r.Answers = append(r.Answers, PlayerAnswer{
		Username: username,
		Answers:  alignAppend(nil, r.CurrentQuestion, answer),
	})
}

// alignAppend pads with nil so the answer lands at index.
func alignAppend(answers []*string, index int, answer *string) []*string {
	for len(answers) < index {
		answers = append(answers, nil)
	}
	return append(answers, answer)
}

func (r *Round) forget(username string) {
	r.Answered = slices.DeleteFunc(r.Answered, func(name string) bool { return name == username })
}
