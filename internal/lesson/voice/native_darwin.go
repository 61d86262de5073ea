package voice

import (
	"strconv"
	"strings"
)

var speechCandidates = []string{"say"}

// say takes words per minute; its default is about 175.
func speechArgs(text string, p Profile) []string {
	return []string{"-r", strconv.Itoa(int(175 * p.Rate)), text}
}

var voiceListArgs = []string{"-v", "?"}

// parseVoiceList reads `say -v ?`: "Name    locale    # sample".
func parseVoiceList(output string) []string {
	var voices []string
	for _, line := range strings.Split(output, "\n") {
		name, _, ok := strings.Cut(line, "#")
		if !ok {
			continue
		}
		fields := strings.Fields(name)
		if len(fields) < 2 {
			continue
		}
		voices = append(voices, strings.Join(fields[:len(fields)-1], " "))
	}
	return voices
}
