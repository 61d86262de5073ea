// Package voice narrates lesson text and reports playback pacing.
//
// A Provider owns the single in-flight utterance. Every Speak supersedes the
// previous one; Stop and muting cancel it. Listeners receive state changes and,
// when playback starts, a Signal carrying a fresh token and the pace per word.
package voice

import (
	"sync"
	"time"

	"pmsim/internal/domain/course"
)

// State is the lifecycle of one utterance.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateLoaded
	StatePlaying
	StateEnded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StateEnded:
		return "ended"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// Signal starts (or restarts) a synchronized text reveal.
// Tokens increase with every utterance, so a larger token always wins.
type Signal struct {
	Token       uint64
	PacePerWord time.Duration
	Text        string
}

// Event reports a state change of utterance Utterance.
type Event struct {
	Utterance uint64
	State     State
	Signal    *Signal
	Err       error
}

// Listener receives provider events. It must not block.
type Listener func(Event)

// Status is a snapshot of a provider.
type Status struct {
	Utterance uint64
	State     State
	Muted     bool
}

// Speaking reports whether audio is playing.
func (s Status) Speaking() bool {
	return s.State == StatePlaying
}

// Loading reports whether audio is being fetched or prepared.
func (s Status) Loading() bool {
	return s.State == StateRequesting || s.State == StateLoaded
}

// Provider is the narration contract used by the lesson player and the shell.
type Provider interface {
	// Speak narrates text asynchronously, superseding anything in flight.
	// It is a no-op while muted.
	Speak(text string, character course.Character)
	// Stop cancels any request or playback; the status is idle on return.
	Stop()
	// ToggleMute flips muting and returns the new value. Muting stops playback.
	ToggleMute() bool
	Muted() bool
	Status() Status
	Subscribe(Listener) (unsubscribe func())
	// Paced reports whether the provider emits pacing signals.
	Paced() bool
}

// Voices maps characters to backend voice names.
type Voices map[course.Character]string

// For returns the voice for c, falling back to the narrator.
func (v Voices) For(c course.Character) string {
	if name, ok := v[c]; ok && name != "" {
		return name
	}
	return v[course.CharacterNarrator]
}

// Degrade selects what happens when synthesis fails.
type Degrade string

const (
	// DegradeText keeps revealing text at the default pace.
	DegradeText Degrade = "text"
	// DegradeNone drops the narration entirely.
	DegradeNone Degrade = "none"
)

type hub struct {
	mu        sync.Mutex
	next      int
	listeners map[int]Listener
}

func (h *hub) Subscribe(l Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listeners == nil {
		h.listeners = make(map[int]Listener)
	}
	id := h.next
	h.next++
	h.listeners[id] = l
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *hub) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	h.mu.Lock()
	ls := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		ls = append(ls, l)
	}
	h.mu.Unlock()
	for _, ev := range events {
		for _, l := range ls {
			l(ev)
		}
	}
}
