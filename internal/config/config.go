package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"pmsim/internal/lesson/progress"
	"pmsim/internal/lesson/reveal"
	"pmsim/internal/lesson/voice"
)

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("voice.provider", "auto") // Auto-select best backend
	v.SetDefault("voice.language", "")
	v.SetDefault("voice.model", "")
	v.SetDefault("voice.format", "")
	v.SetDefault("voice.sample_rate", 0)
	v.SetDefault("voice.timeout", voice.DefaultTimeout)
	v.SetDefault("voice.delay", 400*time.Millisecond)
	v.SetDefault("voice.degrade", string(voice.DegradeText))
	v.SetDefault("voice.cache_path", filepath.Join(cacheRoot(), "audio"))
	v.SetDefault("voice.rate_limit", 250*time.Millisecond)
	v.SetDefault("voice.output", "speaker")
	v.SetDefault("voice.muted", false)

	v.SetDefault("reveal.speed", reveal.DefaultSpeed)
	v.SetDefault("reveal.floor", voice.MinPace)
	v.SetDefault("reveal.default_pace", voice.DefaultPace)

	v.SetDefault("progress.level_threshold", progress.DefaultLevelThreshold)

	v.SetDefault("content.path", "")
	v.SetDefault("content.remote_url", "")
	v.SetDefault("content.cache_dir", filepath.Join(cacheRoot(), "content"))
	v.SetDefault("content.max_age", 24*time.Hour)
}

func cacheRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "pmsim")
	}
	return filepath.Join(".", "cache")
}

// Settings is the typed view of the configuration.
type Settings struct {
	Voice          voice.Config
	NarrationDelay time.Duration
	Reveal         Reveal
	LevelThreshold int
	Content        Content
}

type Reveal struct {
	Speed time.Duration
	Floor time.Duration
}

type Content struct {
	Path      string
	RemoteURL string
	CacheDir  string
	MaxAge    time.Duration
}

// Load assembles Settings from v and rejects unknown enum values.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		Voice: voice.Config{
			Provider:   voice.ProviderType(v.GetString("voice.provider")),
			Language:   v.GetString("voice.language"),
			Model:      v.GetString("voice.model"),
			Format:     v.GetString("voice.format"),
			SampleRate: v.GetInt("voice.sample_rate"),
			Timeout:    v.GetDuration("voice.timeout"),
			Degrade:    voice.Degrade(v.GetString("voice.degrade")),
			CachePath:  v.GetString("voice.cache_path"),
			RateLimit:  v.GetDuration("voice.rate_limit"),
			Pacing: voice.Pacing{
				Default: v.GetDuration("reveal.default_pace"),
				Floor:   v.GetDuration("reveal.floor"),
			},
			Output: v.GetString("voice.output"),
			Muted:  v.GetBool("voice.muted"),
		},
		NarrationDelay: v.GetDuration("voice.delay"),
		Reveal: Reveal{
			Speed: v.GetDuration("reveal.speed"),
			Floor: v.GetDuration("reveal.floor"),
		},
		LevelThreshold: v.GetInt("progress.level_threshold"),
		Content: Content{
			Path:      v.GetString("content.path"),
			RemoteURL: v.GetString("content.remote_url"),
			CacheDir:  v.GetString("content.cache_dir"),
			MaxAge:    v.GetDuration("content.max_age"),
		},
	}

	switch s.Voice.Provider {
	case voice.ProviderAuto, voice.ProviderSarvam, voice.ProviderOpenAI,
		voice.ProviderGoogle, voice.ProviderNative, voice.ProviderSilent:
	default:
		return s, fmt.Errorf("unknown voice.provider %q", s.Voice.Provider)
	}
	switch s.Voice.Degrade {
	case voice.DegradeText, voice.DegradeNone:
	default:
		return s, fmt.Errorf("unknown voice.degrade %q", s.Voice.Degrade)
	}
	switch s.Voice.Output {
	case "speaker", "none":
	default:
		return s, fmt.Errorf("unknown voice.output %q", s.Voice.Output)
	}
	return s, nil
}

// Secrets are the backend credentials. They are only read from the environment.
type Secrets struct {
	SarvamKey         string `env:"SARVAM_API_KEY"`
	OpenAIKey         string `env:"OPENAI_API_KEY"`
	GoogleCredentials string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

// LoadSecrets parses Secrets from the environment.
func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := env.Parse(&s); err != nil {
		return s, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

func (s Secrets) Credentials() voice.Credentials {
	return voice.Credentials{
		SarvamKey:         s.SarvamKey,
		OpenAIKey:         s.OpenAIKey,
		GoogleCredentials: s.GoogleCredentials,
	}
}
