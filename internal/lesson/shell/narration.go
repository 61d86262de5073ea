package shell

import (
	"time"

	"pmsim/internal/domain/course"
	"pmsim/internal/lesson/reveal"
	"pmsim/internal/lesson/voice"
)

// narration feeds phase lines to the revealer and the voice provider.
// The revealer gets the text before the provider speaks so its pacing
// signal matches.
type narration struct {
	provider voice.Provider
	rev      *reveal.Revealer
	fallback time.Duration
	started  chan string
}

func newNarration(provider voice.Provider, rev *reveal.Revealer, fallback time.Duration) *narration {
	return &narration{
		provider: provider,
		rev:      rev,
		fallback: fallback,
		started:  make(chan string, 1),
	}
}

func (n *narration) Speak(text string, character course.Character) {
	n.rev.SetText(text)
	n.rev.Restart()
	if n.provider.Muted() {
		n.rev.Fallback(n.fallback)
	}
	n.provider.Speak(text, character)

	// Only the latest line matters to the shell.
	select {
	case <-n.started:
	default:
	}
	select {
	case n.started <- text:
	default:
	}
}

func (n *narration) Stop() {
	n.provider.Stop()
}
