package voice

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// Playback is one playing utterance.
type Playback interface {
	// Duration is the audio length, or zero when unknown.
	Duration() time.Duration
	// Done is closed when playback ends or is stopped.
	Done() <-chan struct{}
	// Stop halts playback. It is safe to call more than once.
	Stop()
}

// Output plays synthesized audio.
type Output interface {
	Play(audio *Audio) (Playback, error)
}

// decode opens audio with the beep decoder matching its format.
func decode(audio *Audio) (beep.StreamSeekCloser, beep.Format, error) {
	switch audio.Format {
	case "mp3":
		return mp3.Decode(io.NopCloser(bytes.NewReader(audio.Data)))
	case "wav", "":
		return wav.Decode(bytes.NewReader(audio.Data))
	}
	return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", audio.Format)
}

// DecodeDuration measures the length of audio.
func DecodeDuration(audio *Audio) (time.Duration, error) {
	streamer, format, err := decode(audio)
	if err != nil {
		return 0, fmt.Errorf("failed to decode %s: %w", audio.Format, err)
	}
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()), nil
}

// ClockOutput simulates playback on a clock without producing sound.
// It is used headless and in tests.
type ClockOutput struct {
	Clock clock.Clock
	// Measure reports the audio length; DecodeDuration when nil.
	Measure func(*Audio) (time.Duration, error)
}

func NewClockOutput(clk clock.Clock) *ClockOutput {
	if clk == nil {
		clk = clock.New()
	}
	return &ClockOutput{Clock: clk}
}

func (o *ClockOutput) Play(audio *Audio) (Playback, error) {
	measure := o.Measure
	if measure == nil {
		measure = DecodeDuration
	}
	d, err := measure(audio)
	if err != nil {
		return nil, err
	}
	pb := &timedPlayback{duration: d, done: make(chan struct{})}
	pb.mu.Lock()
	pb.timer = o.Clock.AfterFunc(d, pb.Stop)
	pb.mu.Unlock()
	return pb, nil
}

type timedPlayback struct {
	duration time.Duration
	done     chan struct{}
	once     sync.Once

	mu    sync.Mutex
	timer *clock.Timer
}

func (p *timedPlayback) Duration() time.Duration { return p.duration }

func (p *timedPlayback) Done() <-chan struct{} { return p.done }

func (p *timedPlayback) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		if p.timer != nil {
			p.timer.Stop()
		}
		p.mu.Unlock()
		close(p.done)
	})
}
