// Package progress accumulates completed sessions and total XP for the life of the process.
package progress

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/sirupsen/logrus"

	"pmsim/internal/domain/course"
)

// DefaultLevelThreshold is the XP needed per level.
const DefaultLevelThreshold = 200

// Record is one completed session.
type Record struct {
	SessionID   string    `json:"session_id"`
	XPEarned    int       `json:"xp_earned"`
	CompletedAt time.Time `json:"completed_at"`
	RunID       string    `json:"run_id,omitempty"`
}

// Tracker is the append-only completion list plus the running XP total.
type Tracker struct {
	mu        sync.Mutex
	records   []Record
	index     map[string]int
	totalXP   int
	threshold int
	clock     clock.Clock
	log       *logrus.Entry
}

type Option func(*Tracker)

// WithLevelThreshold sets the XP per level.
func WithLevelThreshold(xp int) Option {
	return func(t *Tracker) {
		if xp > 0 {
			t.threshold = xp
		}
	}
}

// WithClock overrides the clock used to stamp completions.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		index:     make(map[string]int),
		threshold: DefaultLevelThreshold,
		clock:     clock.New(),
		log:       logrus.WithField("component", "progress"),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// RecordCompletion marks sessionID complete and returns the new total.
// A session that is already complete leaves the total and the list unchanged.
func (t *Tracker) RecordCompletion(sessionID string, xpEarned int) int {
	return t.record(sessionID, xpEarned, "")
}

// RecordRun is RecordCompletion with the id of the playback that produced it.
func (t *Tracker) RecordRun(sessionID string, xpEarned int, runID string) int {
	return t.record(sessionID, xpEarned, runID)
}

func (t *Tracker) record(sessionID string, xpEarned int, runID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.index[sessionID]; ok {
		t.log.WithField("session", sessionID).Debug("session already complete, ignoring")
		return t.totalXP
	}
	if xpEarned < 0 {
		xpEarned = 0
	}
	t.index[sessionID] = len(t.records)
	t.records = append(t.records, Record{
		SessionID:   sessionID,
		XPEarned:    xpEarned,
		CompletedAt: t.clock.Now(),
		RunID:       runID,
	})
	t.totalXP += xpEarned

	t.log.WithFields(logrus.Fields{
		"session":  sessionID,
		"xp":       xpEarned,
		"total_xp": t.totalXP,
	}).Info("session complete")
	return t.totalXP
}

// Completed reports whether sessionID has been recorded.
func (t *Tracker) Completed(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.index[sessionID]
	return ok
}

// Record returns the completion record for sessionID.
func (t *Tracker) Record(sessionID string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[sessionID]
	if !ok {
		return Record{}, false
	}
	return t.records[i], true
}

// Records returns a copy of the completion list in completion order.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Record(nil), t.records...)
}

func (t *Tracker) TotalXP() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalXP
}

// Level derives the learner level from the current total.
func (t *Tracker) Level() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Level(t.totalXP, t.threshold)
}

// StageProgress counts completed sessions of a stage.
func (t *Tracker) StageProgress(stage *course.Stage) (completed, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range stage.Sessions {
		if _, ok := t.index[s.ID]; ok {
			completed++
		}
	}
	return completed, len(stage.Sessions)
}

// Level returns floor(totalXP/threshold)+1.
func Level(totalXP, threshold int) int {
	if threshold <= 0 {
		threshold = DefaultLevelThreshold
	}
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP/threshold + 1
}
