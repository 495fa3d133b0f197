package testsession

import (
	"math"

	"testengine/backend/models"
)

// Score is the outcome of one answer, computed when the answer is recorded
// so an interrupted attempt still carries its partial score.
type Score struct {
	IsAnswered    bool
	IsCorrect     bool
	MarksObtained float64
}

// ScoreAnswer scores a selection against q under the test's rules.
// A nil selection is an explicit skip and is worth nothing.
func ScoreAnswer(def *TestDefinition, ref QuestionRef, q *Question, selected *uint) (Score, error) {
	if selected == nil {
		return Score{}, nil
	}
	opt, ok := q.Option(*selected)
	if !ok {
		return Score{}, ErrOptionNotInQuestion
	}
	if opt.IsCorrect {
		return Score{IsAnswered: true, IsCorrect: true, MarksObtained: ref.Marks}, nil
	}
	if !def.NegativeMarking {
		return Score{IsAnswered: true}, nil
	}
	return Score{IsAnswered: true, MarksObtained: -penalty(def, ref)}, nil
}

func penalty(def *TestDefinition, ref QuestionRef) float64 {
	if ref.NegativeMarks != nil {
		return math.Abs(*ref.NegativeMarks)
	}
	return ref.Marks * def.negativeFraction()
}

type Tally struct {
	Answered   int
	Correct    int
	Wrong      int
	Unanswered int
	Marks      float64
}

// TallyAnswers aggregates the answer rows of one attempt. The total is not
// clamped: heavy negative marking can push it below zero.
func TallyAnswers(totalQuestions int, answers []models.ExamAnswer) Tally {
	var t Tally
	for _, a := range answers {
		t.Marks += a.MarksObtained
		if !a.IsAnswered {
			continue
		}
		t.Answered++
		if a.IsCorrect {
			t.Correct++
		} else {
			t.Wrong++
		}
	}
	t.Unanswered = totalQuestions - t.Answered
	return t
}

// Percentage is rounded to two decimals; a zero total yields 0.
func Percentage(obtained, available float64) float64 {
	if available == 0 {
		return 0
	}
	return math.Round(obtained/available*100*100) / 100
}

func Passed(obtained float64, passingMarks *float64) bool {
	if passingMarks == nil {
		return true
	}
	return obtained >= *passingMarks
}
