// Package reveal paces narrator text word by word.
//
// A Revealer runs in one of two modes. Autonomous reveals start as soon as
// the text changes, at a fixed speed. Synchronized reveals (built with Follow)
// hold at zero words until a pacing signal for the current text arrives, then
// reveal at the signal's pace. Word i becomes visible at start + i*pace, so
// the reveal never drifts however long the text is.
package reveal

import (
	"strings"
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"pmsim/internal/lesson/voice"
)

const DefaultSpeed = 90 * time.Millisecond

// Frame is what a view should render at one instant.
type Frame struct {
	Text   string
	Shown  int
	Total  int
	Cursor bool
	Done   bool
}

// Source emits pacing signals, usually a voice.Provider.
type Source interface {
	Subscribe(voice.Listener) (unsubscribe func())
}

type Option func(*Revealer)

func WithClock(c clock.Clock) Option {
	return func(r *Revealer) { r.clock = c }
}

// WithSpeed sets the autonomous pace per word.
func WithSpeed(d time.Duration) Option {
	return func(r *Revealer) {
		if d > 0 {
			r.speed = d
		}
	}
}

// WithFloor sets the fastest pace a signal may impose.
func WithFloor(d time.Duration) Option {
	return func(r *Revealer) {
		if d > 0 {
			r.floor = d
		}
	}
}

// OnDone registers a callback run once per completed reveal.
func OnDone(f func()) Option {
	return func(r *Revealer) { r.onDone = f }
}

type Revealer struct {
	clock  clock.Clock
	speed  time.Duration
	floor  time.Duration
	synced bool
	onDone func()
	unsub  func()

	mu      sync.Mutex
	gen     uint64
	text    string
	words   []string
	token   uint64
	pace    time.Duration
	start   time.Time
	running bool
	done    bool
	timer   *clock.Timer
}

// New returns an autonomous Revealer.
func New(opts ...Option) *Revealer {
	r := &Revealer{
		clock: clock.New(),
		speed: DefaultSpeed,
		floor: voice.MinPace,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Follow returns a synchronized Revealer driven by src.
func Follow(src Source, opts ...Option) *Revealer {
	r := New(opts...)
	r.synced = true
	r.unsub = src.Subscribe(r.Listener())
	return r
}

// Synchronized reports the mode.
func (r *Revealer) Synchronized() bool {
	return r.synced
}

// Close detaches from the pacing source and cancels the completion timer.
func (r *Revealer) Close() {
	if r.unsub != nil {
		r.unsub()
	}
	r.mu.Lock()
	r.stopTimerLocked()
	r.mu.Unlock()
}

// SetText replaces the text. A changed text restarts the reveal from zero.
func (r *Revealer) SetText(text string) {
	r.mu.Lock()
	if text == r.text && r.words != nil {
		r.mu.Unlock()
		return
	}
	r.text = text
	r.words = strings.Fields(text)
	r.resetLocked()
	r.mu.Unlock()
}

// Restart replays the current text from zero.
func (r *Revealer) Restart() {
	r.mu.Lock()
	r.resetLocked()
	r.mu.Unlock()
}

func (r *Revealer) resetLocked() {
	r.gen++
	r.stopTimerLocked()
	r.done = false
	r.running = false
	if !r.synced {
		r.startLocked(r.speed)
	}
}

// Sync applies a pacing signal. Signals with an old token or for other
// text are ignored; a new token restarts the reveal at its pace.
func (r *Revealer) Sync(sig voice.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.synced || sig.Token <= r.token {
		return
	}
	if sig.Text != "" && sig.Text != r.text {
		return
	}
	r.token = sig.Token
	r.gen++
	r.stopTimerLocked()
	r.done = false
	r.startLocked(sig.PacePerWord)
}

// Fallback starts a held synchronized reveal at pace. It is used when no
// signal will arrive, for example while muted.
func (r *Revealer) Fallback(pace time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || r.done {
		return
	}
	r.startLocked(pace)
}

// Complete shows all words at once.
func (r *Revealer) Complete() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.gen++
	r.stopTimerLocked()
	r.running = false
	r.done = true
	f := r.onDone
	r.mu.Unlock()
	if f != nil {
		f()
	}
}

func (r *Revealer) startLocked(pace time.Duration) {
	if pace < r.floor {
		pace = r.floor
	}
	r.pace = pace
	r.start = r.clock.Now()
	r.running = true
	gen := r.gen
	r.timer = r.clock.AfterFunc(pace*time.Duration(len(r.words)), func() { r.finish(gen) })
}

func (r *Revealer) finish(gen uint64) {
	r.mu.Lock()
	if gen != r.gen || r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.running = false
	r.timer = nil
	f := r.onDone
	r.mu.Unlock()
	if f != nil {
		f()
	}
}

func (r *Revealer) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Frame samples the reveal at the current clock time.
func (r *Revealer) Frame() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := len(r.words)
	shown := 0
	switch {
	case r.done:
		shown = total
	case r.running:
		shown = int(r.clock.Now().Sub(r.start) / r.pace)
		if shown > total {
			shown = total
		}
	}
	return Frame{
		Text:   strings.Join(r.words[:shown], " "),
		Shown:  shown,
		Total:  total,
		Cursor: shown < total,
		Done:   shown == total && (r.done || r.running),
	}
}

// Pace is the active pace per word, zero while held.
func (r *Revealer) Pace() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return 0
	}
	return r.pace
}

// Listener adapts the revealer to provider events. Signals restart the
// reveal; a failure without a signal shows the text in full.
func (r *Revealer) Listener() voice.Listener {
	return func(ev voice.Event) {
		switch {
		case ev.Signal != nil:
			r.Sync(*ev.Signal)
		case ev.State == voice.StateErrored:
			r.Complete()
		}
	}
}
