package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"pmsim/internal/lesson/voice"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	s, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if s.Voice.Provider != voice.ProviderAuto || s.Voice.Degrade != voice.DegradeText {
		t.Fatalf("unexpected voice defaults %+v", s.Voice)
	}
	if s.NarrationDelay != 400*time.Millisecond {
		t.Fatalf("unexpected narration delay %v", s.NarrationDelay)
	}
	if s.Voice.Pacing.Floor != voice.MinPace || s.Reveal.Floor != voice.MinPace {
		t.Fatalf("unexpected floor %v / %v", s.Voice.Pacing.Floor, s.Reveal.Floor)
	}
	if s.LevelThreshold != 200 || s.Content.MaxAge != 24*time.Hour {
		t.Fatalf("unexpected defaults %+v", s)
	}
}

func TestLoad_FromYAML(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	cfg := `
voice:
  provider: silent
  delay: 1s
  degrade: none
  output: none
reveal:
  default_pace: 300ms
content:
  path: ./lessons
`
	if err := v.ReadConfig(strings.NewReader(cfg)); err != nil {
		t.Fatal(err)
	}
	s, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if s.Voice.Provider != voice.ProviderSilent || s.Voice.Degrade != voice.DegradeNone {
		t.Fatalf("unexpected voice settings %+v", s.Voice)
	}
	if s.NarrationDelay != time.Second || s.Voice.Pacing.Default != 300*time.Millisecond {
		t.Fatalf("unexpected durations %v / %v", s.NarrationDelay, s.Voice.Pacing.Default)
	}
	if s.Content.Path != "./lessons" {
		t.Fatalf("unexpected content path %q", s.Content.Path)
	}
}

func TestLoad_RejectsUnknownValues(t *testing.T) {
	for key, value := range map[string]string{
		"voice.provider": "carrier-pigeon",
		"voice.degrade":  "loud",
		"voice.output":   "radio",
	} {
		v := viper.New()
		SetDefaults(v)
		v.Set(key, value)
		if _, err := Load(v); err == nil {
			t.Fatalf("expected error for %s=%s", key, value)
		}
	}
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv("SARVAM_API_KEY", "sk-sarvam")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/creds.json")

	s, err := LoadSecrets()
	if err != nil {
		t.Fatal(err)
	}
	creds := s.Credentials()
	if creds.SarvamKey != "sk-sarvam" || creds.OpenAIKey != "" || creds.GoogleCredentials != "/tmp/creds.json" {
		t.Fatalf("unexpected credentials %+v", creds)
	}
	if voice.Resolve(voice.ProviderAuto, creds) != voice.ProviderSarvam {
		t.Fatal("expected sarvam to win auto selection")
	}
}
