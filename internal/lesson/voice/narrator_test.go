package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	"pmsim/internal/domain/course"
)

type recorder struct {
	ch chan Event
}

func record(p Provider) *recorder {
	r := &recorder{ch: make(chan Event, 128)}
	p.Subscribe(func(ev Event) { r.ch <- ev })
	return r
}

func (r *recorder) waitFor(t *testing.T, state State) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-r.ch:
			if ev.State == state {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", state)
		}
	}
}

func (r *recorder) drain() []Event {
	var events []Event
	for {
		select {
		case ev := <-r.ch:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// fakeOutput plays on a mock clock and remembers what it played.
// Synthesized audio carries the request text as its data.
type fakeOutput struct {
	clock *ClockOutput

	mu     sync.Mutex
	played []string
	last   Playback
}

func newFakeOutput(clk clock.Clock, length time.Duration) *fakeOutput {
	o := &fakeOutput{clock: NewClockOutput(clk)}
	o.clock.Measure = func(*Audio) (time.Duration, error) { return length, nil }
	return o
}

func (o *fakeOutput) Play(audio *Audio) (Playback, error) {
	pb, err := o.clock.Play(audio)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.played = append(o.played, string(audio.Data))
	o.last = pb
	o.mu.Unlock()
	return pb, nil
}

func (o *fakeOutput) Played() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.played...)
}

func echoSynth() Synthesizer {
	return SynthesizerFunc(func(ctx context.Context, req Request) (*Audio, error) {
		return &Audio{Data: []byte(req.Text), Format: "wav"}, nil
	})
}

// gatedSynth blocks every request until its text is released.
type gatedSynth struct {
	mu       sync.Mutex
	gates    map[string]chan struct{}
	canceled map[string]bool
	returned chan string
}

func newGatedSynth() *gatedSynth {
	return &gatedSynth{
		gates:    make(map[string]chan struct{}),
		canceled: make(map[string]bool),
		returned: make(chan string, 16),
	}
}

func (g *gatedSynth) gate(text string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[text]
	if !ok {
		ch = make(chan struct{})
		g.gates[text] = ch
	}
	return ch
}

func (g *gatedSynth) release(text string) { close(g.gate(text)) }

func (g *gatedSynth) wasCanceled(text string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canceled[text]
}

// Synthesize ignores cancellation when returning so late results reach the narrator.
func (g *gatedSynth) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	gate := g.gate(req.Text)
	select {
	case <-gate:
	case <-ctx.Done():
		<-gate
	}
	if ctx.Err() != nil {
		g.mu.Lock()
		g.canceled[req.Text] = true
		g.mu.Unlock()
	}
	g.returned <- req.Text
	return &Audio{Data: []byte(req.Text), Format: "wav"}, nil
}

func TestNarrator_PlaysAndEnds(t *testing.T) {
	mock := clock.NewMock()
	out := newFakeOutput(mock, 2*time.Second)
	n := NewNarrator(echoSynth(), out)
	rec := record(n)

	n.Speak("one two three four", course.CharacterNarrator)

	ev := rec.waitFor(t, StatePlaying)
	if ev.Signal == nil {
		t.Fatal("expected a pacing signal on playing")
	}
	if ev.Signal.Token != ev.Utterance || ev.Signal.PacePerWord != 500*time.Millisecond {
		t.Fatalf("unexpected signal %+v", ev.Signal)
	}
	if !n.Status().Speaking() {
		t.Fatal("expected speaking")
	}

	mock.Add(2 * time.Second)
	rec.waitFor(t, StateEnded)
	if s := n.Status(); s.Speaking() || s.Loading() {
		t.Fatalf("expected finished status, got %+v", s)
	}
}

func TestNarrator_SpeakEmptyIsNoop(t *testing.T) {
	n := NewNarrator(echoSynth(), newFakeOutput(clock.NewMock(), time.Second))
	rec := record(n)
	n.Speak("   ", course.CharacterNarrator)
	if events := rec.drain(); len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}
}

func TestNarrator_OnlyLastSpeakPlays(t *testing.T) {
	synth := newGatedSynth()
	out := newFakeOutput(clock.NewMock(), time.Second)
	n := NewNarrator(synth, out)
	rec := record(n)

	texts := []string{"first", "second", "third", "fourth", "last"}
	for _, text := range texts {
		n.Speak(text, course.CharacterNarrator)
	}
	// Release in reverse so superseded responses arrive after the winner.
	for i := len(texts) - 1; i >= 0; i-- {
		synth.release(texts[i])
	}
	ev := rec.waitFor(t, StatePlaying)
	if ev.Signal.Text != "last" {
		t.Fatalf("expected last utterance to play, got %q", ev.Signal.Text)
	}
	for range texts {
		<-synth.returned
	}
	time.Sleep(50 * time.Millisecond)

	if played := out.Played(); len(played) != 1 || played[0] != "last" {
		t.Fatalf("expected only %q to play, got %v", "last", played)
	}
	for _, text := range texts[:len(texts)-1] {
		if !synth.wasCanceled(text) {
			t.Fatalf("expected request %q to be canceled", text)
		}
	}
	for _, ev := range rec.drain() {
		if ev.State == StatePlaying {
			t.Fatalf("superseded utterance reached playing: %+v", ev)
		}
	}
}

func TestNarrator_SpeakSupersedesPlayback(t *testing.T) {
	mock := clock.NewMock()
	out := newFakeOutput(mock, time.Minute)
	n := NewNarrator(echoSynth(), out)
	rec := record(n)

	n.Speak("first line", course.CharacterNarrator)
	rec.waitFor(t, StatePlaying)
	out.mu.Lock()
	first := out.last
	out.mu.Unlock()

	n.Speak("second line", course.CharacterPriya)
	select {
	case <-first.Done():
	default:
		t.Fatal("expected first playback to be stopped")
	}
	ev := rec.waitFor(t, StatePlaying)
	if ev.Signal.Text != "second line" {
		t.Fatalf("unexpected signal %+v", ev.Signal)
	}
}

func TestNarrator_StopIsImmediate(t *testing.T) {
	synth := newGatedSynth()
	n := NewNarrator(synth, newFakeOutput(clock.NewMock(), time.Second))
	rec := record(n)

	n.Speak("hello there", course.CharacterNarrator)
	if !n.Status().Loading() {
		t.Fatal("expected loading after speak")
	}
	n.Stop()
	if s := n.Status(); s.State != StateIdle || s.Loading() || s.Speaking() {
		t.Fatalf("expected idle after stop, got %+v", s)
	}
	rec.waitFor(t, StateIdle)

	synth.release("hello there")
	<-synth.returned
	time.Sleep(20 * time.Millisecond)
	if !synth.wasCanceled("hello there") {
		t.Fatal("expected request context to be canceled")
	}
	if s := n.Status(); s.State != StateIdle {
		t.Fatalf("late response changed state to %s", s.State)
	}
}

func TestNarrator_MuteStopsAndBlocksSpeech(t *testing.T) {
	mock := clock.NewMock()
	out := newFakeOutput(mock, time.Minute)
	n := NewNarrator(echoSynth(), out)
	rec := record(n)

	n.Speak("playing now", course.CharacterNarrator)
	rec.waitFor(t, StatePlaying)
	out.mu.Lock()
	pb := out.last
	out.mu.Unlock()

	if !n.ToggleMute() {
		t.Fatal("expected muted")
	}
	if n.Status().Speaking() {
		t.Fatal("expected speaking to stop on mute")
	}
	select {
	case <-pb.Done():
	default:
		t.Fatal("expected playback halted on mute")
	}

	n.Speak("ignored while muted", course.CharacterNarrator)
	if n.Status().State != StateIdle {
		t.Fatalf("speak while muted changed state to %s", n.Status().State)
	}

	if n.ToggleMute() {
		t.Fatal("expected unmuted")
	}
	time.Sleep(20 * time.Millisecond)
	if played := out.Played(); len(played) != 1 {
		t.Fatalf("unmute must not replay, played %v", played)
	}
}

func TestNarrator_FailureDegradesToText(t *testing.T) {
	boom := errors.New("backend down")
	synth := SynthesizerFunc(func(ctx context.Context, req Request) (*Audio, error) {
		return nil, boom
	})
	n := NewNarrator(synth, newFakeOutput(clock.NewMock(), time.Second))
	rec := record(n)

	n.Speak("some words here", course.CharacterNarrator)
	ev := rec.waitFor(t, StateErrored)
	if !errors.Is(ev.Err, boom) {
		t.Fatalf("expected backend error, got %v", ev.Err)
	}
	if ev.Signal == nil || ev.Signal.PacePerWord != DefaultPace {
		t.Fatalf("expected fallback signal, got %+v", ev.Signal)
	}
	if s := n.Status(); s.Loading() || s.Speaking() {
		t.Fatalf("expected settled status after failure, got %+v", s)
	}
}

func TestNarrator_FailureWithoutDegrade(t *testing.T) {
	synth := SynthesizerFunc(func(ctx context.Context, req Request) (*Audio, error) {
		return nil, ErrNoCredentials
	})
	n := NewNarrator(synth, newFakeOutput(clock.NewMock(), time.Second), WithDegrade(DegradeNone))
	rec := record(n)

	n.Speak("some words", course.CharacterNarrator)
	if ev := rec.waitFor(t, StateErrored); ev.Signal != nil {
		t.Fatalf("expected no signal, got %+v", ev.Signal)
	}
}

func TestNarrator_TimeoutSettles(t *testing.T) {
	synth := SynthesizerFunc(func(ctx context.Context, req Request) (*Audio, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	n := NewNarrator(synth, newFakeOutput(clock.NewMock(), time.Second), WithTimeout(10*time.Millisecond))
	rec := record(n)

	n.Speak("never arrives", course.CharacterNarrator)
	ev := rec.waitFor(t, StateErrored)
	if !errors.Is(ev.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", ev.Err)
	}
	if n.Status().Loading() {
		t.Fatal("narrator stuck loading")
	}
}

func TestNarrator_PaceFloor(t *testing.T) {
	out := newFakeOutput(clock.NewMock(), 100*time.Millisecond)
	n := NewNarrator(echoSynth(), out)
	rec := record(n)

	n.Speak("a b c d e f g h i j", course.CharacterNarrator)
	ev := rec.waitFor(t, StatePlaying)
	if ev.Signal.PacePerWord != MinPace {
		t.Fatalf("expected pace floored at %v, got %v", MinPace, ev.Signal.PacePerWord)
	}
}

func TestNarrator_UsesCharacterVoice(t *testing.T) {
	voices := make(chan string, 1)
	synth := SynthesizerFunc(func(ctx context.Context, req Request) (*Audio, error) {
		voices <- req.Voice
		return &Audio{Data: []byte(req.Text)}, nil
	})
	n := NewNarrator(synth, newFakeOutput(clock.NewMock(), time.Second), WithVoices(SarvamVoices))

	n.Speak("hi", course.CharacterPriya)
	if v := <-voices; v != "priya" {
		t.Fatalf("expected voice priya, got %q", v)
	}
}
