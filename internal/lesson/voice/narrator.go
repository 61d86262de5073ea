package voice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pmsim/internal/domain/course"
)

const DefaultTimeout = 20 * time.Second

// Narrator is a Provider backed by a Synthesizer and an audio Output.
//
// Each Speak bumps a generation counter. Results and playback completions
// are only applied while their generation is still current, so a late
// response for a superseded utterance is dropped.
type Narrator struct {
	hub
	synth   Synthesizer
	out     Output
	voices  Voices
	pacing  Pacing
	degrade Degrade
	timeout time.Duration
	format  string
	lang    string
	rate    int
	log     *logrus.Entry

	mu       sync.Mutex
	gen      uint64
	state    State
	muted    bool
	cancel   context.CancelFunc
	playback Playback
}

type NarratorOption func(*Narrator)

func WithVoices(v Voices) NarratorOption {
	return func(n *Narrator) { n.voices = v }
}

func WithPacing(p Pacing) NarratorOption {
	return func(n *Narrator) { n.pacing = p.normalized() }
}

func WithDegrade(d Degrade) NarratorOption {
	return func(n *Narrator) {
		if d != "" {
			n.degrade = d
		}
	}
}

// WithTimeout bounds a single synthesis request.
func WithTimeout(d time.Duration) NarratorOption {
	return func(n *Narrator) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithAudioFormat sets the requested format, language and sample rate.
func WithAudioFormat(format, language string, sampleRate int) NarratorOption {
	return func(n *Narrator) {
		n.format = format
		n.lang = language
		n.rate = sampleRate
	}
}

func NewNarrator(synth Synthesizer, out Output, opts ...NarratorOption) *Narrator {
	n := &Narrator{
		synth:   synth,
		out:     out,
		voices:  Voices{},
		pacing:  DefaultPacing(),
		degrade: DegradeText,
		timeout: DefaultTimeout,
		log:     logrus.WithField("component", "voice"),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

func (n *Narrator) Speak(text string, character course.Character) {
	if strings.TrimSpace(text) == "" {
		return
	}
	n.mu.Lock()
	if n.muted {
		n.mu.Unlock()
		return
	}
	n.releaseLocked()
	n.gen++
	id := n.gen
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	n.cancel = cancel
	n.state = StateRequesting
	req := Request{
		Text:       text,
		Voice:      n.voices.For(character),
		Character:  character,
		Format:     n.format,
		Language:   n.lang,
		SampleRate: n.rate,
	}
	n.mu.Unlock()

	n.emit(Event{Utterance: id, State: StateRequesting})
	go n.run(ctx, id, req)
}

func (n *Narrator) run(ctx context.Context, id uint64, req Request) {
	audio, err := n.synth.Synthesize(ctx, req)

	n.mu.Lock()
	if id != n.gen {
		n.mu.Unlock()
		n.log.WithField("utterance", id).Debug("dropping superseded synthesis result")
		return
	}
	if err != nil {
		events := n.failLocked(id, req.Text, err)
		n.mu.Unlock()
		n.emit(events...)
		return
	}
	n.state = StateLoaded
	pb, err := n.out.Play(audio)
	if err != nil {
		events := n.failLocked(id, req.Text, err)
		n.mu.Unlock()
		n.emit(append([]Event{{Utterance: id, State: StateLoaded}}, events...)...)
		return
	}
	n.playback = pb
	n.state = StatePlaying
	sig := &Signal{
		Token:       id,
		PacePerWord: n.pacing.For(pb.Duration(), req.Text),
		Text:        req.Text,
	}
	n.mu.Unlock()

	n.emit(
		Event{Utterance: id, State: StateLoaded},
		Event{Utterance: id, State: StatePlaying, Signal: sig},
	)

	<-pb.Done()

	n.mu.Lock()
	if id != n.gen || n.playback != pb {
		n.mu.Unlock()
		return
	}
	n.playback = nil
	n.state = StateEnded
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.mu.Unlock()
	n.emit(Event{Utterance: id, State: StateEnded})
}

// failLocked marks utterance id as errored. With DegradeText the errored
// event carries a fallback Signal so the text still reveals.
func (n *Narrator) failLocked(id uint64, text string, err error) []Event {
	n.log.WithError(err).WithField("utterance", id).Warn("narration failed")
	n.state = StateErrored
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	ev := Event{Utterance: id, State: StateErrored, Err: err}
	if n.degrade == DegradeText {
		ev.Signal = &Signal{Token: id, PacePerWord: n.pacing.Fallback(), Text: text}
	}
	return []Event{ev}
}

// releaseLocked cancels the pending request and stops playback.
func (n *Narrator) releaseLocked() {
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	if n.playback != nil {
		n.playback.Stop()
		n.playback = nil
	}
}

func (n *Narrator) Stop() {
	n.mu.Lock()
	active := n.state != StateIdle
	n.releaseLocked()
	n.gen++
	id := n.gen
	n.state = StateIdle
	n.mu.Unlock()
	if active {
		n.emit(Event{Utterance: id, State: StateIdle})
	}
}

func (n *Narrator) ToggleMute() bool {
	n.mu.Lock()
	n.muted = !n.muted
	muted := n.muted
	active := muted && n.state != StateIdle
	if muted {
		n.releaseLocked()
		n.gen++
		n.state = StateIdle
	}
	id := n.gen
	n.mu.Unlock()
	if active {
		n.emit(Event{Utterance: id, State: StateIdle})
	}
	return muted
}

func (n *Narrator) Muted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.muted
}

func (n *Narrator) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Status{Utterance: n.gen, State: n.state, Muted: n.muted}
}

func (n *Narrator) Paced() bool { return true }
