// Package scoring derives per-round and cumulative scores from recorded
// answers. It never mutates its input.
package scoring

import (
	"encoding/json"

	"quizroom/internal/game"
)

type PlayerScore struct {
	Username string    `json:"username"`
	Answers  []*string `json:"answers"`
	Score    int       `json:"score"`
}

type RoundResult struct {
	RoundIndex   int               `json:"roundIndex"`
	PlayersScore []PlayerScore     `json:"playersScore"`
	Questions    []json.RawMessage `json:"questions"`
}

type FinalResult struct {
	Username   string `json:"username"`
	FinalScore int    `json:"finalScore"`
}

type Results struct {
	PerRound       []RoundResult `json:"allPlayersScores"`
	PerPlayerTotal []FinalResult `json:"allPlayersFinalResult"`
}

// Compute scores every round. Totals are listed in first-seen order so the
// output is stable for unchanged input. Questions of a round still being
// played are returned without their correct answers.
func Compute(rounds []*game.Round) Results {
	res := Results{
		PerRound:       make([]RoundResult, 0, len(rounds)),
		PerPlayerTotal: []FinalResult{},
	}
	totals := make(map[string]int)
	var order []string

	for i, round := range rounds {
		rr := RoundResult{
			RoundIndex:   i,
			PlayersScore: make([]PlayerScore, 0, len(round.Answers)),
			Questions:    make([]json.RawMessage, 0, len(round.Questions)),
		}
		for _, pa := range round.Answers {
			score := Score(round.Questions, pa.Answers)
			rr.PlayersScore = append(rr.PlayersScore, PlayerScore{
				Username: pa.Username,
				Answers:  append([]*string(nil), pa.Answers...),
				Score:    score,
			})
			if _, seen := totals[pa.Username]; !seen {
				order = append(order, pa.Username)
			}
			totals[pa.Username] += score
		}
		for _, q := range round.Questions {
			if round.Ended {
				full, _ := q.MarshalJSON()
				rr.Questions = append(rr.Questions, full)
			} else {
				rr.Questions = append(rr.Questions, q.Public())
			}
		}
		res.PerRound = append(res.PerRound, rr)
	}

	for _, name := range order {
		res.PerPlayerTotal = append(res.PerPlayerTotal, FinalResult{Username: name, FinalScore: totals[name]})
	}
	return res
}

// Score counts answers equal to the correct answer at the same index. Nil
// answers, answers past the last question and questions without a correct
// answer score zero.
func Score(questions []game.Question, answers []*string) int {
	score := 0
	for i, a := range answers {
		if a == nil || i >= len(questions) {
			continue
		}
		correct := questions[i].CorrectAnswer
		if correct != nil && *correct == *a {
			score++
		}
	}
	return score
}

// Totals maps each username to its cumulative score.
func (r Results) Totals() map[string]int {
	out := make(map[string]int, len(r.PerPlayerTotal))
	for _, f := range r.PerPlayerTotal {
		out[f.Username] = f.FinalScore
	}
	return out
}
