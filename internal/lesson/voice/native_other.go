//go:build !darwin && !windows

package voice

import (
	"strconv"
	"strings"
)

var speechCandidates = []string{"espeak-ng", "espeak"}

// espeak speed is words per minute (default 175), pitch 0-99 (default 50).
func speechArgs(text string, p Profile) []string {
	return []string{
		"-s", strconv.Itoa(int(175 * p.Rate)),
		"-p", strconv.Itoa(int(50 * p.Pitch)),
		"-a", "100",
		text,
	}
}

var voiceListArgs = []string{"--voices"}

// parseVoiceList reads `espeak --voices`:
// Pty Language Age/Gender VoiceName File Other Languages
func parseVoiceList(output string) []string {
	var voices []string
	for i, line := range strings.Split(output, "\n") {
		if i == 0 {
			continue
		}
		if fields := strings.Fields(line); len(fields) >= 4 {
			voices = append(voices, fields[3])
		}
	}
	return voices
}
