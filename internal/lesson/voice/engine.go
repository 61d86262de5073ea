package voice

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/facebookgo/clock"
	"github.com/sirupsen/logrus"
)

type ProviderType string

const (
	ProviderAuto   ProviderType = "auto" // best available backend
	ProviderSarvam ProviderType = "sarvam"
	ProviderOpenAI ProviderType = "openai"
	ProviderGoogle ProviderType = "google"
	ProviderNative ProviderType = "native"
	ProviderSilent ProviderType = "silent"
)

func (p ProviderType) String() string {
	return string(p)
}

// Config selects and tunes a Provider.
type Config struct {
	Provider   ProviderType
	Language   string
	Model      string
	Format     string
	SampleRate int
	Timeout    time.Duration
	Degrade    Degrade
	CachePath  string
	// RateLimit is the minimum interval between backend requests; zero disables it.
	RateLimit time.Duration
	Pacing    Pacing
	// Output is "speaker" or "none" (timed playback without sound).
	Output string
	Muted  bool
	Clock  clock.Clock
}

// Credentials are opaque backend tokens.
type Credentials struct {
	SarvamKey         string
	OpenAIKey         string
	GoogleCredentials string
}

// Resolve turns ProviderAuto into a concrete backend: Sarvam, then OpenAI,
// then Google, then the native speech command, then silence.
func Resolve(t ProviderType, creds Credentials) ProviderType {
	if t != ProviderAuto && t != "" {
		return t
	}
	switch {
	case creds.SarvamKey != "":
		return ProviderSarvam
	case creds.OpenAIKey != "":
		return ProviderOpenAI
	case creds.GoogleCredentials != "":
		return ProviderGoogle
	case NativeAvailable():
		return ProviderNative
	}
	return ProviderSilent
}

// Available lists the providers usable with creds on this machine.
func Available(creds Credentials) []ProviderType {
	providers := []ProviderType{ProviderSilent}
	if NativeAvailable() {
		providers = append(providers, ProviderNative)
	}
	if creds.SarvamKey != "" {
		providers = append(providers, ProviderSarvam)
	}
	if creds.OpenAIKey != "" {
		providers = append(providers, ProviderOpenAI)
	}
	if creds.GoogleCredentials != "" {
		providers = append(providers, ProviderGoogle)
	}
	return providers
}

// NewProvider builds the Provider described by cfg.
func NewProvider(ctx context.Context, cfg Config, creds Credentials) (Provider, error) {
	p, err := newProvider(ctx, cfg, creds)
	if err != nil {
		return nil, err
	}
	if cfg.Muted && !p.Muted() {
		p.ToggleMute()
	}
	return p, nil
}

func newProvider(ctx context.Context, cfg Config, creds Credentials) (Provider, error) {
	kind := Resolve(cfg.Provider, creds)
	logrus.WithFields(logrus.Fields{"component": "voice", "provider": kind}).Debug("selected voice provider")

	var (
		synth  Synthesizer
		voices Voices
		format = cfg.Format
		lang   = cfg.Language
		err    error
	)
	httpOpts := []HTTPOption{WithModel(cfg.Model), WithLanguage(cfg.Language)}

	switch kind {
	case ProviderSilent:
		return NewSilentProvider(cfg.Clock, cfg.Pacing), nil
	case ProviderNative:
		return NewNativeProvider()
	case ProviderSarvam:
		voices = SarvamVoices
		synth, err = NewSarvamSynthesizer(creds.SarvamKey, httpOpts...)
	case ProviderOpenAI:
		voices = OpenAIVoices
		synth, err = NewOpenAISynthesizer(creds.OpenAIKey, httpOpts...)
	case ProviderGoogle:
		voices = GoogleVoices
		format, lang = "mp3", ""
		synth, err = NewGoogleSynthesizer(ctx)
	default:
		return nil, fmt.Errorf("unsupported voice provider: %s", kind)
	}
	if err != nil {
		return nil, err
	}

	synth = Throttle(synth, cfg.RateLimit, 2)
	if cfg.CachePath != "" {
		cached, err := NewCachedSynthesizer(synth, filepath.Join(cfg.CachePath, kind.String()))
		if err != nil {
			return nil, err
		}
		synth = cached
	}

	var out Output = NewSpeakerOutput(44100)
	if cfg.Output == "none" {
		out = NewClockOutput(cfg.Clock)
	}

	return NewNarrator(synth, out,
		WithVoices(voices),
		WithPacing(cfg.Pacing),
		WithDegrade(cfg.Degrade),
		WithTimeout(cfg.Timeout),
		WithAudioFormat(format, lang, cfg.SampleRate),
	), nil
}
