package scenario

import (
	"errors"
	"testing"

	"pmsim/internal/domain/course"
)

func tree() *course.Scenario {
	return &course.Scenario{
		StartID: "root",
		Nodes: map[string]course.Node{
			"root": {ID: "root", Prompt: "Replace the rule?", Options: []course.Choice{
				{Label: "Yes", NextID: "a1", Consequence: "Careful."},
				{Label: "Ask first", NextID: "end-good"},
			}},
			"a1": {ID: "a1", Prompt: "Pushback", Options: []course.Choice{
				{Label: "Scope ML", NextID: "end-bad"},
				{Label: "Ask for failure", NextID: "end-ok"},
			}},
		},
		Outcomes: map[string]course.Outcome{
			"end-good": {Severity: course.SeverityGood, Title: "Framed", XP: 100},
			"end-ok":   {Severity: course.SeverityOK, Title: "Recovered", XP: 50},
			"end-bad":  {Severity: course.SeverityBad, Title: "Overbuilt", XP: 10},
		},
	}
}

func TestNew_NilTree(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoScenario) {
		t.Fatalf("expected ErrNoScenario, got %v", err)
	}
}

func TestSelect_WalksToOutcome(t *testing.T) {
	e, err := New(tree())
	if err != nil {
		t.Fatal(err)
	}

	step, err := e.Select("root", 0)
	if err != nil {
		t.Fatal(err)
	}
	if step.Terminal() || step.NextNodeID != "a1" || step.Consequence != "Careful." {
		t.Fatalf("unexpected step %+v", step)
	}
	if e.Current() != "a1" {
		t.Fatalf("expected current a1, got %q", e.Current())
	}

	step, err = e.Select("a1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !step.Terminal() || step.OutcomeID != "end-ok" || step.Outcome.XP != 50 {
		t.Fatalf("unexpected terminal step %+v", step)
	}
	if !e.Finished() || e.XP() != 50 {
		t.Fatalf("expected finished with 50 xp, got finished=%v xp=%d", e.Finished(), e.XP())
	}

	path := e.Path()
	want := []string{"root", "a1", "end-ok"}
	if len(path) != len(want) {
		t.Fatalf("path %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("path %v, want %v", path, want)
		}
	}

	hist := e.History()
	if len(hist) != 2 || hist[0].Chosen != "Yes" || hist[0].Consequence != "Careful." || hist[1].Chosen != "Ask for failure" {
		t.Fatalf("unexpected history %+v", hist)
	}
}

func TestSelect_Preconditions(t *testing.T) {
	e, _ := New(tree())

	if _, err := e.Select("a1", 0); !errors.Is(err, ErrNotCurrent) {
		t.Fatalf("expected ErrNotCurrent, got %v", err)
	}
	if _, err := e.Select("root", 2); !errors.Is(err, ErrOptionRange) {
		t.Fatalf("expected ErrOptionRange, got %v", err)
	}
	if _, err := e.Select("root", -1); !errors.Is(err, ErrOptionRange) {
		t.Fatalf("expected ErrOptionRange, got %v", err)
	}
	if len(e.Path()) != 1 {
		t.Fatalf("rejected selections must not extend the path")
	}

	if _, err := e.Select("root", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Select("root", 1); !errors.Is(err, ErrFinished) {
		t.Fatalf("expected ErrFinished, got %v", err)
	}
	if e.XP() != 100 {
		t.Fatalf("expected xp 100, got %d", e.XP())
	}
	if _, ok := e.CurrentNode(); ok {
		t.Fatalf("finished walk has no current node")
	}
}

func TestXP_ZeroUntilFinished(t *testing.T) {
	e, _ := New(tree())
	if e.XP() != 0 {
		t.Fatalf("expected 0 xp before an outcome")
	}
	if _, _, ok := e.Outcome(); ok {
		t.Fatalf("expected no outcome yet")
	}
}
