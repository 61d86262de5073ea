package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pmsim/internal/domain/course"
	"pmsim/internal/lesson/quiz"
)

var ErrLocked = errors.New("player: cluster is locked")

// DayResult describes a finished day.
type DayResult struct {
	Day        int
	RunID      string
	XP         int
	Percentage int
}

// DayID is the progress id a day is recorded under.
func DayID(n int) string {
	return fmt.Sprintf("day-%d", n)
}

// Day plays the clusters of a day in order. Only the active cluster accepts
// events; later ones stay locked until it finishes. The day's XP is recorded
// once, when the last cluster is done.
type Day struct {
	day        *course.Day
	recorder   Recorder
	opts       []Option
	runID      string
	onComplete func(DayResult)
	log        *logrus.Entry

	mu       sync.Mutex
	active   int
	players  []*Player
	xp       int
	reported bool
}

type DayOption func(*Day)

// OnDayComplete is called once when the last cluster finishes.
func OnDayComplete(f func(DayResult)) DayOption {
	return func(d *Day) { d.onComplete = f }
}

// WithPlayerOptions configures every cluster player. Recorders passed here
// are ignored; the day records its own total.
func WithPlayerOptions(opts ...Option) DayOption {
	return func(d *Day) { d.opts = append(d.opts, opts...) }
}

// NewDay starts day d at its first cluster.
func NewDay(d *course.Day, recorder Recorder, opts ...DayOption) (*Day, error) {
	if len(d.Clusters) == 0 {
		return nil, fmt.Errorf("day %d has no clusters", d.Number)
	}
	day := &Day{
		day:      d,
		recorder: recorder,
		runID:    uuid.NewString(),
		log: logrus.WithFields(logrus.Fields{
			"component": "player",
			"day":       d.Number,
		}),
	}
	for _, o := range opts {
		o(day)
	}
	day.players = make([]*Player, len(d.Clusters))
	return day, nil
}

// playerLocked returns the player of an unlocked cluster, starting it on first use.
func (d *Day) playerLocked(i int) *Player {
	if d.players[i] == nil {
		opts := append([]Option(nil), d.opts...)
		opts = append(opts,
			WithRecorder(nil),
			OnComplete(func(r Result) { d.clusterDone(i, r) }),
		)
		d.players[i] = New(&d.day.Clusters[i], opts...)
	}
	return d.players[i]
}

func (d *Day) clusterDone(i int, r Result) {
	d.mu.Lock()
	if i != d.active {
		d.mu.Unlock()
		return
	}
	d.xp += r.XP
	if i < len(d.day.Clusters)-1 {
		d.active++
		next := d.active
		d.mu.Unlock()
		d.log.WithField("cluster", next).Debug("unlocked next cluster")
		return
	}
	if d.reported {
		d.mu.Unlock()
		return
	}
	d.reported = true
	result := DayResult{
		Day:        d.day.Number,
		RunID:      d.runID,
		XP:         d.xp,
		Percentage: quiz.Percentage(d.xp, d.day.TotalXP),
	}
	if d.recorder != nil {
		d.recorder.RecordRun(DayID(d.day.Number), d.xp, d.runID)
	}
	d.mu.Unlock()

	d.log.WithField("xp", result.XP).Info("day complete")
	if d.onComplete != nil {
		d.onComplete(result)
	}
}

// Active returns the cluster currently accepting events and its index.
// A newly unlocked cluster starts when it is first returned.
func (d *Day) Active() (*Player, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playerLocked(d.active), d.active
}

// Cluster returns cluster i. Finished clusters can be revisited; clusters
// past the active one are locked.
func (d *Day) Cluster(i int) (*Player, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.day.Clusters) {
		return nil, fmt.Errorf("cluster %d out of range", i)
	}
	if i > d.active {
		return nil, fmt.Errorf("%w: cluster %d", ErrLocked, i)
	}
	return d.playerLocked(i), nil
}

// Unlocked reports whether cluster i can be opened.
func (d *Day) Unlocked(i int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return i >= 0 && i <= d.active && i < len(d.day.Clusters)
}

func (d *Day) Day() *course.Day {
	return d.day
}

func (d *Day) XP() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.xp
}

// Percentage is the day score against the day's total XP.
func (d *Day) Percentage() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return quiz.Percentage(d.xp, d.day.TotalXP)
}

// Finished reports whether every cluster is done.
func (d *Day) Finished() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reported
}

// Leave stops narration of every started cluster.
func (d *Day) Leave() {
	d.mu.Lock()
	players := append([]*Player(nil), d.players...)
	d.mu.Unlock()
	for _, p := range players {
		if p != nil {
			p.Leave()
		}
	}
}
