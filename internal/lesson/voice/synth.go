package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"pmsim/internal/domain/course"
)

// ErrNoCredentials is returned when a backend has no API key configured.
var ErrNoCredentials = errors.New("voice: missing credentials")

// Request is one synthesis call.
type Request struct {
	Text       string
	Voice      string
	Character  course.Character
	Format     string
	Language   string
	SampleRate int
}

// Audio is synthesized speech.
type Audio struct {
	Data   []byte
	Format string // "mp3" or "wav"
}

// Synthesizer converts text to audio. Implementations wrap a remote TTS backend.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Audio, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, req Request) (*Audio, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	return f(ctx, req)
}

type throttled struct {
	next    Synthesizer
	limiter *rate.Limiter
}

// Throttle limits next to one request per interval with the given burst.
// Waiting requests give up when their context is cancelled.
func Throttle(next Synthesizer, interval time.Duration, burst int) Synthesizer {
	if interval <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &throttled{next: next, limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

func (t *throttled) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle: %w", err)
	}
	return t.next.Synthesize(ctx, req)
}
