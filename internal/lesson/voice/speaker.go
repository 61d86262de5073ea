package voice

import (
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// SpeakerOutput plays audio on the default sound device.
// The device is opened once at a fixed rate; other rates are resampled.
type SpeakerOutput struct {
	rate beep.SampleRate
	once sync.Once
	err  error
}

func NewSpeakerOutput(sampleRate int) *SpeakerOutput {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &SpeakerOutput{rate: beep.SampleRate(sampleRate)}
}

func (o *SpeakerOutput) init() error {
	o.once.Do(func() {
		o.err = speaker.Init(o.rate, o.rate.N(time.Second/10))
	})
	return o.err
}

func (o *SpeakerOutput) Play(audio *Audio) (Playback, error) {
	if err := o.init(); err != nil {
		return nil, fmt.Errorf("failed to open speaker: %w", err)
	}
	streamer, format, err := decode(audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", audio.Format, err)
	}

	var s beep.Streamer = streamer
	if format.SampleRate != o.rate {
		s = beep.Resample(4, format.SampleRate, o.rate, streamer)
	}

	pb := &speakerPlayback{
		streamer: streamer,
		duration: format.SampleRate.D(streamer.Len()),
		ctrl:     &beep.Ctrl{Streamer: s, Paused: false},
		done:     make(chan struct{}),
	}
	speaker.Play(beep.Seq(pb.ctrl, beep.Callback(pb.finish)))
	return pb, nil
}

type speakerPlayback struct {
	streamer beep.StreamSeekCloser
	duration time.Duration
	ctrl     *beep.Ctrl
	done     chan struct{}
	once     sync.Once
}

func (p *speakerPlayback) Duration() time.Duration { return p.duration }

func (p *speakerPlayback) Done() <-chan struct{} { return p.done }

// finish runs on the speaker goroutine when the stream is exhausted.
func (p *speakerPlayback) finish() {
	p.once.Do(func() {
		close(p.done)
		go p.streamer.Close()
	})
}

func (p *speakerPlayback) Stop() {
	speaker.Lock()
	p.ctrl.Streamer = nil
	speaker.Unlock()
	p.once.Do(func() {
		close(p.done)
		p.streamer.Close()
	})
}
