package voice

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"pmsim/internal/domain/course"
)

// ErrNoNativeVoice is returned when no system speech command is installed.
var ErrNoNativeVoice = errors.New("voice: no native speech command found")

// Profile is a native rate/pitch setting relative to the engine default.
type Profile struct {
	Rate  float64
	Pitch float64
}

var NativeProfiles = map[course.Character]Profile{
	course.CharacterNarrator: {Rate: 0.88, Pitch: 1.0},
	course.CharacterPriya:    {Rate: 0.95, Pitch: 1.12},
	course.CharacterLearner:  {Rate: 0.92, Pitch: 0.95},
}

func profileFor(c course.Character) Profile {
	if p, ok := NativeProfiles[c]; ok {
		return p
	}
	return NativeProfiles[course.CharacterNarrator]
}

// CommandFunc builds the process that utters text.
type CommandFunc func(ctx context.Context, text string, p Profile) *exec.Cmd

// NativeProvider speaks through a system speech command (espeak-ng, espeak or say).
// It reports no duration, so readers of its events reveal text at their own speed.
type NativeProvider struct {
	hub
	command CommandFunc
	log     *logrus.Entry

	mu     sync.Mutex
	gen    uint64
	state  State
	muted  bool
	cancel context.CancelFunc
}

type NativeOption func(*NativeProvider)

// WithCommand replaces the speech command.
func WithCommand(f CommandFunc) NativeOption {
	return func(n *NativeProvider) { n.command = f }
}

func NewNativeProvider(opts ...NativeOption) (*NativeProvider, error) {
	n := &NativeProvider{log: logrus.WithFields(logrus.Fields{"component": "voice", "backend": "native"})}
	for _, o := range opts {
		o(n)
	}
	if n.command == nil {
		path, err := findSpeechExecutable()
		if err != nil {
			return nil, err
		}
		n.command = func(ctx context.Context, text string, p Profile) *exec.Cmd {
			return exec.CommandContext(ctx, path, speechArgs(text, p)...)
		}
	}
	return n, nil
}

// NativeAvailable reports whether a system speech command is installed.
func NativeAvailable() bool {
	_, err := findSpeechExecutable()
	return err == nil
}

func findSpeechExecutable() (string, error) {
	for _, candidate := range speechCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (tried %s)", ErrNoNativeVoice, strings.Join(speechCandidates, ", "))
}

func (n *NativeProvider) Speak(text string, character course.Character) {
	if strings.TrimSpace(text) == "" {
		return
	}
	n.mu.Lock()
	if n.muted {
		n.mu.Unlock()
		return
	}
	if n.cancel != nil {
		n.cancel()
	}
	n.gen++
	id := n.gen
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	cmd := n.command(ctx, text, profileFor(character))
	if err := cmd.Start(); err != nil {
		n.state = StateErrored
		n.cancel = nil
		cancel()
		n.mu.Unlock()
		n.log.WithError(err).Warn("failed to start speech command")
		n.emit(Event{Utterance: id, State: StateErrored, Err: err})
		return
	}
	n.state = StatePlaying
	n.mu.Unlock()

	n.emit(
		Event{Utterance: id, State: StateRequesting},
		Event{Utterance: id, State: StatePlaying},
	)
	go n.wait(id, cmd)
}

func (n *NativeProvider) wait(id uint64, cmd *exec.Cmd) {
	err := cmd.Wait()

	n.mu.Lock()
	if id != n.gen {
		n.mu.Unlock()
		return
	}
	n.cancel = nil
	ev := Event{Utterance: id, State: StateEnded}
	if err != nil {
		n.log.WithError(err).Warn("speech command failed")
		ev = Event{Utterance: id, State: StateErrored, Err: err}
	}
	n.state = ev.State
	n.mu.Unlock()
	n.emit(ev)
}

func (n *NativeProvider) Stop() {
	n.mu.Lock()
	active := n.state != StateIdle
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.gen++
	id := n.gen
	n.state = StateIdle
	n.mu.Unlock()
	if active {
		n.emit(Event{Utterance: id, State: StateIdle})
	}
}

func (n *NativeProvider) ToggleMute() bool {
	n.mu.Lock()
	n.muted = !n.muted
	muted := n.muted
	n.mu.Unlock()
	if muted {
		n.Stop()
	}
	return muted
}

func (n *NativeProvider) Muted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.muted
}

func (n *NativeProvider) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Status{Utterance: n.gen, State: n.state, Muted: n.muted}
}

func (n *NativeProvider) Paced() bool { return false }

// NativeVoices lists the voices the system speech command offers.
func NativeVoices(ctx context.Context) ([]string, error) {
	path, err := findSpeechExecutable()
	if err != nil {
		return nil, err
	}
	out, err := exec.CommandContext(ctx, path, voiceListArgs...).Output()
	if err != nil {
		return nil, fmt.Errorf("list native voices: %w", err)
	}
	return parseVoiceList(string(out)), nil
}
