// Package player drives one session through widget, concept, scenario, quiz and done.
//
// A Player accepts the three learner events the shell forwards (widget
// completion, scenario selection, quiz answers) and moves through the phases
// strictly in order. Events that arrive for a phase that is no longer current
// are ignored. Each phase entry cancels pending narration and schedules the
// phase's own line; entering done reports the XP exactly once.
package player

import (
	"errors"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pmsim/internal/domain/course"
	"pmsim/internal/lesson/quiz"
	"pmsim/internal/lesson/scenario"
)

// DefaultNarrationDelay lets a phase view render before its line is spoken.
const DefaultNarrationDelay = 400 * time.Millisecond

var ErrNoScenario = errors.New("player: tree phase entered without a scenario")

// Narrator speaks phase lines. Implementations must not call back into the
// Player from Speak or Stop.
type Narrator interface {
	Speak(text string, character course.Character)
	Stop()
}

// Recorder receives the XP of a finished run.
type Recorder interface {
	RecordRun(sessionID string, xpEarned int, runID string) int
}

// Result describes a finished session.
type Result struct {
	SessionID  string
	RunID      string
	XP         int
	Percentage int
}

// Option configures a Player.
type Option func(*Player)

// WithNarrator sets who speaks phase lines. Without one the player is silent.
func WithNarrator(n Narrator) Option {
	return func(p *Player) { p.narrator = n }
}

// WithRecorder sets where the finished run is reported.
func WithRecorder(r Recorder) Option {
	return func(p *Player) { p.recorder = r }
}

// WithClock replaces the clock that schedules narration.
func WithClock(c clock.Clock) Option {
	return func(p *Player) { p.clock = c }
}

// WithNarrationDelay sets how long after a phase entry its line is spoken.
func WithNarrationDelay(d time.Duration) Option {
	return func(p *Player) { p.delay = d }
}

// OnPhase is called after every phase entry, outside the player's lock.
func OnPhase(f func(course.Phase)) Option {
	return func(p *Player) { p.onPhase = f }
}

// OnComplete is called once when the session reaches done.
func OnComplete(f func(Result)) Option {
	return func(p *Player) { p.onComplete = f }
}

type Player struct {
	session    *course.Session
	runID      string
	narrator   Narrator
	recorder   Recorder
	clock      clock.Clock
	delay      time.Duration
	onPhase    func(course.Phase)
	onComplete func(Result)
	log        *logrus.Entry

	mu       sync.Mutex
	phase    course.Phase
	trail    []course.Phase
	gen      uint64
	xp       int
	tree     *scenario.Evaluator
	quiz     *quiz.Evaluator
	pending  *clock.Timer
	reported bool
	left     bool
}

// New starts session s in the widget phase.
func New(s *course.Session, opts ...Option) *Player {
	p := &Player{
		session: s,
		runID:   uuid.NewString(),
		clock:   clock.New(),
		delay:   DefaultNarrationDelay,
	}
	for _, o := range opts {
		o(p)
	}
	p.log = logrus.WithFields(logrus.Fields{
		"component": "player",
		"session":   s.ID,
		"run":       p.runID,
	})

	p.mu.Lock()
	p.phase = course.PhaseWidget
	p.trail = []course.Phase{course.PhaseWidget}
	p.scheduleLocked()
	p.mu.Unlock()
	return p
}

// CompleteWidget moves widget to concept. It reports false when ignored.
func (p *Player) CompleteWidget() bool {
	p.mu.Lock()
	if !p.expectLocked(course.PhaseWidget, "widget completion") {
		p.mu.Unlock()
		return false
	}
	p.enterLocked(course.PhaseConcept)
	p.mu.Unlock()
	p.notify(course.PhaseConcept, nil)
	return true
}

// ContinueConcept dismisses the concept card. Sessions with a scenario move
// to tree; sessions without one go straight to quiz.
func (p *Player) ContinueConcept() bool {
	p.mu.Lock()
	if !p.expectLocked(course.PhaseConcept, "concept dismissal") {
		p.mu.Unlock()
		return false
	}
	next := course.PhaseQuiz
	if p.session.HasScenario() {
		next = course.PhaseTree
	}
	if err := p.enterLocked(next); err != nil {
		p.mu.Unlock()
		p.log.WithError(err).Error("cannot enter phase")
		return false
	}
	p.mu.Unlock()
	p.notify(next, nil)
	return true
}

// SelectOption answers scenario node nodeID. A terminal outcome adds its XP
// and moves to quiz. A selection for an already answered node, or outside
// the tree phase, is ignored and returns a zero Step.
func (p *Player) SelectOption(nodeID string, option int) (scenario.Step, error) {
	p.mu.Lock()
	if !p.expectLocked(course.PhaseTree, "scenario selection") || p.tree.Visited(nodeID) {
		p.mu.Unlock()
		return scenario.Step{}, nil
	}
	step, err := p.tree.Select(nodeID, option)
	if err != nil {
		p.mu.Unlock()
		return scenario.Step{}, err
	}
	if !step.Terminal() {
		p.mu.Unlock()
		return step, nil
	}
	p.xp += step.Outcome.XP
	p.log.WithFields(logrus.Fields{
		"outcome": step.OutcomeID,
		"xp":      step.Outcome.XP,
	}).Debug("scenario finished")
	p.enterLocked(course.PhaseQuiz)
	p.mu.Unlock()
	p.notify(course.PhaseQuiz, nil)
	return step, nil
}

// ChooseAnswer answers the current quiz question. Repeated answers return
// the first feedback; answers outside the quiz phase are ignored.
func (p *Player) ChooseAnswer(option int) (quiz.Feedback, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.expectLocked(course.PhaseQuiz, "quiz answer") {
		return quiz.Feedback{}, false, nil
	}
	fb, err := p.quiz.Choose(option)
	if err != nil {
		return quiz.Feedback{}, false, err
	}
	return fb, true, nil
}

// NextQuestion advances the quiz. Past the last question the quiz XP is added
// and the session is done. It returns true once done.
func (p *Player) NextQuestion() (bool, error) {
	p.mu.Lock()
	if !p.expectLocked(course.PhaseQuiz, "quiz advance") {
		done := p.phase == course.PhaseDone
		p.mu.Unlock()
		return done, nil
	}
	finished, err := p.quiz.Next()
	if err != nil || !finished {
		p.mu.Unlock()
		return false, err
	}
	p.xp += p.quiz.Earned()
	p.enterLocked(course.PhaseDone)
	result := p.reportLocked()
	p.mu.Unlock()
	p.notify(course.PhaseDone, result)
	return true, nil
}

// Leave abandons the session: pending and playing narration stop and later
// events are ignored.
func (p *Player) Leave() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.left {
		return
	}
	p.left = true
	p.gen++
	p.cancelPendingLocked()
	if p.narrator != nil {
		p.narrator.Stop()
	}
	p.log.WithField("phase", p.phase).Debug("left session")
}

// Replay speaks the current phase line again, immediately.
func (p *Player) Replay() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.left {
		return
	}
	p.gen++
	p.cancelPendingLocked()
	if line := p.session.Voice.For(p.phase); line != nil && p.narrator != nil {
		p.narrator.Speak(line.Text, line.Character)
	}
}

func (p *Player) expectLocked(want course.Phase, event string) bool {
	if p.left || p.phase != want {
		p.log.WithFields(logrus.Fields{
			"event": event,
			"phase": p.phase,
		}).Debug("ignoring stale event")
		return false
	}
	return true
}

// enterLocked switches to next, builds its evaluator and reschedules narration.
func (p *Player) enterLocked(next course.Phase) error {
	switch next {
	case course.PhaseTree:
		tree, err := scenario.New(p.session.Scenario)
		if err != nil {
			return ErrNoScenario
		}
		p.tree = tree
	case course.PhaseQuiz:
		p.quiz = quiz.New(p.session.Quiz)
	}
	p.phase = next
	p.trail = append(p.trail, next)
	p.gen++
	p.cancelPendingLocked()
	if p.narrator != nil {
		p.narrator.Stop()
	}
	p.scheduleLocked()
	p.log.WithField("phase", next).Debug("entered phase")
	return nil
}

// scheduleLocked arranges narration of the current phase line after the delay.
func (p *Player) scheduleLocked() {
	line := p.session.Voice.For(p.phase)
	if line == nil || p.narrator == nil {
		return
	}
	if p.delay <= 0 {
		p.narrator.Speak(line.Text, line.Character)
		return
	}
	gen := p.gen
	text, character := line.Text, line.Character
	p.pending = p.clock.AfterFunc(p.delay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.gen || p.left {
			return
		}
		p.pending = nil
		p.narrator.Speak(text, character)
	})
}

func (p *Player) cancelPendingLocked() {
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
}

// reportLocked records the finished run exactly once.
func (p *Player) reportLocked() *Result {
	if p.reported {
		return nil
	}
	p.reported = true
	if p.recorder != nil {
		p.recorder.RecordRun(p.session.ID, p.xp, p.runID)
	}
	p.log.WithField("xp", p.xp).Info("session complete")
	return &Result{
		SessionID:  p.session.ID,
		RunID:      p.runID,
		XP:         p.xp,
		Percentage: quiz.Percentage(p.xp, p.session.TotalXP),
	}
}

func (p *Player) notify(phase course.Phase, result *Result) {
	if p.onPhase != nil {
		p.onPhase(phase)
	}
	if result != nil && p.onComplete != nil {
		p.onComplete(*result)
	}
}

func (p *Player) Session() *course.Session {
	return p.session
}

func (p *Player) RunID() string {
	return p.runID
}

func (p *Player) Phase() course.Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Trail lists the phases entered so far, in order.
func (p *Player) Trail() []course.Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]course.Phase(nil), p.trail...)
}

// XP is the XP earned so far.
func (p *Player) XP() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.xp
}

// Percentage is the session score against its total XP.
func (p *Player) Percentage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return quiz.Percentage(p.xp, p.session.TotalXP)
}

// Label is the heading for the current phase.
func (p *Player) Label() course.Label {
	return course.LabelFor(p.Phase(), p.session)
}

// Line is the narration line of the current phase, or nil.
func (p *Player) Line() *course.Line {
	return p.session.Voice.For(p.Phase())
}

// Scenario returns the scenario walk, nil before the tree phase.
func (p *Player) Scenario() *scenario.Evaluator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tree
}

// Quiz returns the quiz walk, nil before the quiz phase.
func (p *Player) Quiz() *quiz.Evaluator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quiz
}
