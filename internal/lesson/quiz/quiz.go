// Package quiz scores a sequence of multiple-choice questions.
package quiz

import (
	"errors"
	"fmt"
	"math"

	"pmsim/internal/domain/course"
)

var (
	ErrOptionRange = errors.New("quiz: option index out of range")
	ErrUnanswered  = errors.New("quiz: current question not answered")
	ErrFinished    = errors.New("quiz: already finished")
)

// Feedback describes the answer to the current question.
type Feedback struct {
	Question     int
	Chosen       int
	Correct      bool
	Explanation  string
	CorrectIndex int
	CorrectLabel string
	// XP awarded for this answer.
	XP int
}

// Evaluator walks the questions in order.
type Evaluator struct {
	questions []course.QuizQuestion
	current   int
	feedback  *Feedback
	earned    int
	done      bool
}

// New returns an evaluator positioned at the first question.
func New(questions []course.QuizQuestion) *Evaluator {
	return &Evaluator{questions: questions, done: len(questions) == 0}
}

// Current returns the question awaiting an answer and its index.
func (e *Evaluator) Current() (course.QuizQuestion, int) {
	if e.done {
		return course.QuizQuestion{}, len(e.questions)
	}
	return e.questions[e.current], e.current
}

// Len is the number of questions.
func (e *Evaluator) Len() int {
	return len(e.questions)
}

// Choose answers the current question. Only the first call per question counts;
// later calls return the original feedback unchanged.
func (e *Evaluator) Choose(option int) (Feedback, error) {
	if e.done {
		return Feedback{}, ErrFinished
	}
	if e.feedback != nil {
		return *e.feedback, nil
	}
	q := e.questions[e.current]
	if option < 0 || option >= len(q.Options) {
		return Feedback{}, fmt.Errorf("%w: %d of %d", ErrOptionRange, option, len(q.Options))
	}

	picked := q.Options[option]
	fb := Feedback{
		Question:     e.current,
		Chosen:       option,
		Correct:      picked.Correct,
		Explanation:  picked.Explanation,
		CorrectIndex: q.CorrectIndex(),
	}
	if fb.CorrectIndex >= 0 {
		fb.CorrectLabel = q.Options[fb.CorrectIndex].Label
	}
	if picked.Correct {
		fb.XP = q.XP
		e.earned += q.XP
	}
	e.feedback = &fb
	return fb, nil
}

// Answered reports whether the current question has been answered.
func (e *Evaluator) Answered() bool {
	return e.feedback != nil
}

// Next advances past an answered question. It returns true when the quiz is finished.
func (e *Evaluator) Next() (bool, error) {
	if e.done {
		return true, nil
	}
	if e.feedback == nil {
		return false, ErrUnanswered
	}
	e.feedback = nil
	if e.current < len(e.questions)-1 {
		e.current++
		return false, nil
	}
	e.done = true
	return true, nil
}

// Finished reports whether every question was answered and advanced past.
func (e *Evaluator) Finished() bool {
	return e.done
}

// Earned is the running XP total.
func (e *Evaluator) Earned() int {
	return e.earned
}

// MaxXP is the XP available across all questions.
func (e *Evaluator) MaxXP() int {
	return course.MaxXP(e.questions)
}

// Percentage is the score so far against the maximum, recomputed on every call.
func (e *Evaluator) Percentage() int {
	return Percentage(e.earned, e.MaxXP())
}

// Percentage returns round(100*earned/max) clamped to [0,100]; 0 when max is not positive.
func Percentage(earned, max int) int {
	if max <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(earned) / float64(max)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
