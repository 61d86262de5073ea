package quiz

import (
	"errors"
	"testing"

	"pmsim/internal/domain/course"
)

func twoQuestions() []course.QuizQuestion {
	return []course.QuizQuestion{
		{ID: "q1", Prompt: "Rule or model?", XP: 50, Options: []course.Answer{
			{Label: "Rule", Correct: true, Explanation: "Ship the rule first."},
			{Label: "Model", Explanation: "Too early."},
		}},
		{ID: "q2", Prompt: "What's the failure?", XP: 50, Options: []course.Answer{
			{Label: "Thin files", Correct: true, Explanation: "Yes."},
			{Label: "Nothing", Explanation: "The data says otherwise."},
		}},
	}
}

func TestQuiz_HalfCorrect(t *testing.T) {
	e := New(twoQuestions())

	fb, err := e.Choose(0)
	if err != nil {
		t.Fatal(err)
	}
	if !fb.Correct || fb.XP != 50 {
		t.Fatalf("unexpected feedback %+v", fb)
	}
	if done, err := e.Next(); err != nil || done {
		t.Fatalf("expected to advance, got done=%v err=%v", done, err)
	}

	fb, err = e.Choose(1)
	if err != nil {
		t.Fatal(err)
	}
	if fb.Correct || fb.XP != 0 || fb.CorrectIndex != 0 || fb.CorrectLabel != "Thin files" {
		t.Fatalf("wrong answer should reveal the correct option, got %+v", fb)
	}
	if fb.Explanation != "The data says otherwise." {
		t.Fatalf("expected chosen option's explanation, got %q", fb.Explanation)
	}
	done, err := e.Next()
	if err != nil || !done {
		t.Fatalf("expected finish, got done=%v err=%v", done, err)
	}

	if e.Earned() != 50 || e.Percentage() != 50 {
		t.Fatalf("expected 50 xp and 50%%, got %d and %d%%", e.Earned(), e.Percentage())
	}
}

func TestChoose_OnlyOncePerQuestion(t *testing.T) {
	e := New(twoQuestions())
	if _, err := e.Choose(1); err != nil {
		t.Fatal(err)
	}
	fb, err := e.Choose(0)
	if err != nil {
		t.Fatal(err)
	}
	if fb.Chosen != 1 || fb.Correct {
		t.Fatalf("second choose must be a no-op, got %+v", fb)
	}
	if e.Earned() != 0 {
		t.Fatalf("second choose must not award xp, got %d", e.Earned())
	}
}

func TestChoose_Preconditions(t *testing.T) {
	e := New(twoQuestions())
	if _, err := e.Choose(5); !errors.Is(err, ErrOptionRange) {
		t.Fatalf("expected ErrOptionRange, got %v", err)
	}
	if _, err := e.Next(); !errors.Is(err, ErrUnanswered) {
		t.Fatalf("expected ErrUnanswered, got %v", err)
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		earned, max, want int
	}{
		{0, 0, 0},
		{10, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{150, 150, 100},
		{0, 150, 0},
	}
	for _, c := range cases {
		if got := Percentage(c.earned, c.max); got != c.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", c.earned, c.max, got, c.want)
		}
	}
}

func TestEmptyQuizIsFinished(t *testing.T) {
	e := New(nil)
	if !e.Finished() {
		t.Fatalf("empty quiz should be finished")
	}
	if _, err := e.Choose(0); !errors.Is(err, ErrFinished) {
		t.Fatalf("expected ErrFinished, got %v", err)
	}
	if e.Percentage() != 0 {
		t.Fatalf("zero-sum quiz must score 0")
	}
}
