package voice

import (
	"strings"
	"time"
)

const (
	DefaultPace = 280 * time.Millisecond
	MinPace     = 60 * time.Millisecond
)

// Pacing turns an audio duration into a reveal speed.
type Pacing struct {
	// Default is used when the audio duration is unknown.
	Default time.Duration
	// Floor is the fastest pace ever reported.
	Floor time.Duration
}

func DefaultPacing() Pacing {
	return Pacing{Default: DefaultPace, Floor: MinPace}
}

func (p Pacing) normalized() Pacing {
	if p.Default <= 0 {
		p.Default = DefaultPace
	}
	if p.Floor <= 0 {
		p.Floor = MinPace
	}
	return p
}

// For returns duration/words when both are known, else the default, never below the floor.
func (p Pacing) For(duration time.Duration, text string) time.Duration {
	p = p.normalized()
	pace := p.Default
	if words := WordCount(text); duration > 0 && words > 0 {
		pace = duration / time.Duration(words)
	}
	if pace < p.Floor {
		pace = p.Floor
	}
	return pace
}

// Fallback is the pace used without audio.
func (p Pacing) Fallback() time.Duration {
	p = p.normalized()
	if p.Default < p.Floor {
		return p.Floor
	}
	return p.Default
}

// WordCount counts whitespace-delimited words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
