package player

import (
	"errors"
	"testing"

	"pmsim/internal/domain/course"
	"pmsim/internal/lesson/progress"
)

func testDay() *course.Day {
	return &course.Day{
		Number:  1,
		Title:   "Discovery",
		TotalXP: 400,
		Clusters: []course.Session{
			*testSession("d1.a", false),
			*testSession("d1.b", true),
		},
	}
}

func playCluster(t *testing.T, p *Player) {
	t.Helper()
	p.CompleteWidget()
	p.ContinueConcept()
	if p.Phase() == course.PhaseTree {
		p.SelectOption("root", 1)
	}
	finishQuiz(t, p, 0, 1)
}

func TestDay_ClustersRunInOrder(t *testing.T) {
	tracker := progress.NewTracker()
	var results []DayResult
	d, err := NewDay(testDay(), tracker,
		OnDayComplete(func(r DayResult) { results = append(results, r) }),
		WithPlayerOptions(WithNarrationDelay(0)),
	)
	if err != nil {
		t.Fatal(err)
	}

	if d.Unlocked(1) {
		t.Fatal("second cluster should start locked")
	}
	if _, err := d.Cluster(1); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	first, idx := d.Active()
	if idx != 0 {
		t.Fatalf("expected cluster 0 active, got %d", idx)
	}
	playCluster(t, first)
	if !d.Unlocked(1) || d.Finished() {
		t.Fatal("expected second cluster unlocked and day unfinished")
	}
	if tracker.TotalXP() != 0 {
		t.Fatalf("clusters must not be recorded individually, got %d XP", tracker.TotalXP())
	}

	second, idx := d.Active()
	if idx != 1 || second == first {
		t.Fatal("expected the second cluster to be active")
	}
	playCluster(t, second)

	if !d.Finished() || d.XP() != 300 {
		t.Fatalf("expected finished day with 300 XP, got %v / %d", d.Finished(), d.XP())
	}
	if d.Percentage() != 75 {
		t.Fatalf("expected 75%%, got %d", d.Percentage())
	}
	if len(results) != 1 || results[0].XP != 300 {
		t.Fatalf("expected one day result, got %+v", results)
	}
	rec, ok := tracker.Record(DayID(1))
	if !ok || rec.XPEarned != 300 {
		t.Fatalf("expected day recorded, got %+v", rec)
	}
}

func TestDay_RevisitFinishedCluster(t *testing.T) {
	d, err := NewDay(testDay(), nil, WithPlayerOptions(WithNarrationDelay(0)))
	if err != nil {
		t.Fatal(err)
	}
	first, _ := d.Active()
	playCluster(t, first)

	again, err := d.Cluster(0)
	if err != nil {
		t.Fatal(err)
	}
	if again != first || again.Phase() != course.PhaseDone {
		t.Fatal("expected the finished cluster back")
	}
	if again.CompleteWidget() {
		t.Fatal("finished cluster must be read-only")
	}
	if d.XP() != 100 {
		t.Fatalf("revisit changed XP: %d", d.XP())
	}
}

func TestDay_RequiresClusters(t *testing.T) {
	if _, err := NewDay(&course.Day{Number: 9}, nil); err == nil {
		t.Fatal("expected error for empty day")
	}
}
