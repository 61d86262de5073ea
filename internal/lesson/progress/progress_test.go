package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	"pmsim/internal/domain/course"
)

func TestRecordCompletion_Idempotent(t *testing.T) {
	tr := NewTracker()

	if got := tr.RecordCompletion("1.1", 120); got != 120 {
		t.Fatalf("expected total 120, got %d", got)
	}
	if got := tr.RecordCompletion("1.1", 120); got != 120 {
		t.Fatalf("second completion must not change total, got %d", got)
	}
	if got := tr.RecordCompletion("1.1", 999); got != 120 {
		t.Fatalf("completion with different xp must not change total, got %d", got)
	}

	recs := tr.Records()
	if len(recs) != 1 || recs[0].SessionID != "1.1" || recs[0].XPEarned != 120 {
		t.Fatalf("expected exactly one record for 1.1, got %+v", recs)
	}
}

func TestRecordCompletion_StampsWithClock(t *testing.T) {
	mock := clock.NewMock()
	mock.Add(3 * time.Hour)
	tr := NewTracker(WithClock(mock))

	tr.RecordRun("1.2", 80, "run-1")
	rec, ok := tr.Record("1.2")
	if !ok {
		t.Fatalf("expected record")
	}
	if !rec.CompletedAt.Equal(mock.Now()) || rec.RunID != "run-1" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestRecordCompletion_ConcurrentSameSession(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.RecordCompletion("1.1", 10)
		}()
	}
	wg.Wait()
	if tr.TotalXP() != 10 || len(tr.Records()) != 1 {
		t.Fatalf("expected a single completion, got total=%d records=%d", tr.TotalXP(), len(tr.Records()))
	}
}

func TestLevel(t *testing.T) {
	cases := []struct{ xp, threshold, want int }{
		{0, 200, 1},
		{199, 200, 1},
		{200, 200, 2},
		{650, 200, 4},
		{650, 0, 4},
	}
	for _, c := range cases {
		if got := Level(c.xp, c.threshold); got != c.want {
			t.Fatalf("Level(%d, %d) = %d, want %d", c.xp, c.threshold, got, c.want)
		}
	}

	tr := NewTracker(WithLevelThreshold(100))
	tr.RecordCompletion("a", 250)
	if tr.Level() != 3 {
		t.Fatalf("expected level 3, got %d", tr.Level())
	}
}

func TestStageProgress(t *testing.T) {
	st := &course.Stage{Sessions: []course.Session{{ID: "1.1"}, {ID: "1.2"}, {ID: "1.3"}}}
	tr := NewTracker()
	tr.RecordCompletion("1.2", 10)
	tr.RecordCompletion("9.9", 10)

	done, total := tr.StageProgress(st)
	if done != 1 || total != 3 {
		t.Fatalf("expected 1/3, got %d/%d", done, total)
	}
	if !tr.Completed("1.2") || tr.Completed("1.1") {
		t.Fatalf("unexpected completion flags")
	}
}
