package voice

import (
	"strings"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/sirupsen/logrus"

	"pmsim/internal/domain/course"
)

// SilentProvider narrates without audio. It reports playback for as long as
// the text would take at the fallback pace, so synchronized reveals still run.
type SilentProvider struct {
	hub
	clock  clock.Clock
	pacing Pacing
	log    *logrus.Entry

	mu    sync.Mutex
	gen   uint64
	state State
	muted bool
	timer *clock.Timer
}

func NewSilentProvider(clk clock.Clock, pacing Pacing) *SilentProvider {
	if clk == nil {
		clk = clock.New()
	}
	return &SilentProvider{
		clock:  clk,
		pacing: pacing.normalized(),
		log:    logrus.WithField("component", "voice"),
	}
}

func (s *SilentProvider) Speak(text string, character course.Character) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.mu.Lock()
	if s.muted {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.gen++
	id := s.gen
	pace := s.pacing.Fallback()
	length := pace * time.Duration(WordCount(text))
	s.state = StatePlaying
	s.timer = s.clock.AfterFunc(length, func() { s.finish(id) })
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"character": character,
		"length":    length,
	}).Debug("simulating narration")
	s.emit(
		Event{Utterance: id, State: StateRequesting},
		Event{Utterance: id, State: StateLoaded},
		Event{Utterance: id, State: StatePlaying, Signal: &Signal{Token: id, PacePerWord: pace, Text: text}},
	)
}

func (s *SilentProvider) finish(id uint64) {
	s.mu.Lock()
	if id != s.gen || s.state != StatePlaying {
		s.mu.Unlock()
		return
	}
	s.state = StateEnded
	s.timer = nil
	s.mu.Unlock()
	s.emit(Event{Utterance: id, State: StateEnded})
}

func (s *SilentProvider) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *SilentProvider) Stop() {
	s.mu.Lock()
	active := s.state != StateIdle
	s.stopTimerLocked()
	s.gen++
	id := s.gen
	s.state = StateIdle
	s.mu.Unlock()
	if active {
		s.emit(Event{Utterance: id, State: StateIdle})
	}
}

func (s *SilentProvider) ToggleMute() bool {
	s.mu.Lock()
	s.muted = !s.muted
	muted := s.muted
	active := muted && s.state != StateIdle
	if muted {
		s.stopTimerLocked()
		s.gen++
		s.state = StateIdle
	}
	id := s.gen
	s.mu.Unlock()
	if active {
		s.emit(Event{Utterance: id, State: StateIdle})
	}
	return muted
}

func (s *SilentProvider) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *SilentProvider) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Utterance: s.gen, State: s.state, Muted: s.muted}
}

func (s *SilentProvider) Paced() bool { return true }
