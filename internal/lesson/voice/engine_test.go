package voice

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/facebookgo/clock"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name  string
		typ   ProviderType
		creds Credentials
		want  ProviderType
	}{
		{"explicit wins", ProviderSilent, Credentials{SarvamKey: "k"}, ProviderSilent},
		{"sarvam first", ProviderAuto, Credentials{SarvamKey: "k", OpenAIKey: "o"}, ProviderSarvam},
		{"openai next", ProviderAuto, Credentials{OpenAIKey: "o", GoogleCredentials: "g"}, ProviderOpenAI},
		{"google next", "", Credentials{GoogleCredentials: "/tmp/key.json"}, ProviderGoogle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.typ, tc.creds); got != tc.want {
				t.Fatalf("Resolve = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestResolve_NoCredentials(t *testing.T) {
	got := Resolve(ProviderAuto, Credentials{})
	want := ProviderSilent
	if NativeAvailable() {
		want = ProviderNative
	}
	if got != want {
		t.Fatalf("Resolve = %s, want %s", got, want)
	}
}

func TestAvailable(t *testing.T) {
	got := Available(Credentials{OpenAIKey: "o"})
	var hasSilent, hasOpenAI, hasSarvam bool
	for _, p := range got {
		switch p {
		case ProviderSilent:
			hasSilent = true
		case ProviderOpenAI:
			hasOpenAI = true
		case ProviderSarvam:
			hasSarvam = true
		}
	}
	if !hasSilent || !hasOpenAI || hasSarvam {
		t.Fatalf("unexpected providers %v", got)
	}
}

func TestNewProvider_SilentMuted(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{
		Provider: ProviderSilent,
		Muted:    true,
		Clock:    clock.NewMock(),
	}, Credentials{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*SilentProvider); !ok {
		t.Fatalf("expected *SilentProvider, got %T", p)
	}
	if !p.Muted() {
		t.Fatal("expected provider to start muted")
	}
}

func TestNewProvider_SarvamWithCache(t *testing.T) {
	dir := t.TempDir()
	p, err := NewProvider(context.Background(), Config{
		Provider:  ProviderSarvam,
		CachePath: dir,
		Output:    "none",
		Clock:     clock.NewMock(),
	}, Credentials{SarvamKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	n, ok := p.(*Narrator)
	if !ok {
		t.Fatalf("expected *Narrator, got %T", p)
	}
	if _, ok := n.synth.(*CachedSynthesizer); !ok {
		t.Fatalf("expected cached synthesizer, got %T", n.synth)
	}
	if _, ok := n.out.(*ClockOutput); !ok {
		t.Fatalf("expected clock output, got %T", n.out)
	}
	if _, err := os.Stat(filepath.Join(dir, "sarvam")); err != nil {
		t.Fatalf("expected cache dir: %v", err)
	}
}

func TestNewProvider_MissingKey(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Provider: ProviderOpenAI}, Credentials{}); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Provider: "carrier-pigeon"}, Credentials{}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
