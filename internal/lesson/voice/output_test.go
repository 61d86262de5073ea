package voice

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// silentWAV encodes d of mono silence at rate.
func silentWAV(t *testing.T, rate beep.SampleRate, d time.Duration) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "silence.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	format := beep.Format{SampleRate: rate, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Silence(rate.N(d)), format); err != nil {
		t.Fatal(err)
	}
	f.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDecodeDuration_WAV(t *testing.T) {
	audio := &Audio{Data: silentWAV(t, 22050, 1500*time.Millisecond), Format: "wav"}
	d, err := DecodeDuration(audio)
	if err != nil {
		t.Fatal(err)
	}
	if d != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %v", d)
	}
}

func TestDecodeDuration_Unsupported(t *testing.T) {
	if _, err := DecodeDuration(&Audio{Data: []byte("x"), Format: "ogg"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestClockOutput_EndsAfterDuration(t *testing.T) {
	mock := clock.NewMock()
	out := NewClockOutput(mock)
	pb, err := out.Play(&Audio{Data: silentWAV(t, 22050, time.Second), Format: "wav"})
	if err != nil {
		t.Fatal(err)
	}
	if pb.Duration() != time.Second {
		t.Fatalf("expected 1s, got %v", pb.Duration())
	}

	mock.Add(999 * time.Millisecond)
	select {
	case <-pb.Done():
		t.Fatal("ended early")
	default:
	}
	mock.Add(time.Millisecond)
	select {
	case <-pb.Done():
	default:
		t.Fatal("expected playback to end")
	}
	pb.Stop()
}

func TestClockOutput_StopIsIdempotent(t *testing.T) {
	out := NewClockOutput(clock.NewMock())
	out.Measure = func(*Audio) (time.Duration, error) { return time.Hour, nil }
	pb, err := out.Play(&Audio{})
	if err != nil {
		t.Fatal(err)
	}
	pb.Stop()
	pb.Stop()
	<-pb.Done()
}
