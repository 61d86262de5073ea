package voice

import (
	"fmt"
	"strings"
)

var speechCandidates = []string{"powershell"}

// System.Speech takes a rate from -10 to 10 with 0 as normal speed.
func speechArgs(text string, p Profile) []string {
	rate := int(p.Rate*10) - 10
	script := fmt.Sprintf(`Add-Type -AssemblyName System.Speech; `+
		`$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer; `+
		`$synth.Rate = %d; $synth.Volume = 100; $synth.Speak('%s')`,
		rate, strings.ReplaceAll(text, "'", "''"))
	return []string{"-NoProfile", "-NonInteractive", "-Command", script}
}

var voiceListArgs = []string{"-NoProfile", "-NonInteractive", "-Command",
	`Add-Type -AssemblyName System.Speech; ` +
		`(New-Object System.Speech.Synthesis.SpeechSynthesizer).GetInstalledVoices() | ` +
		`ForEach-Object { $_.VoiceInfo.Name }`}

func parseVoiceList(output string) []string {
	var voices []string
	for _, line := range strings.Split(output, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			voices = append(voices, name)
		}
	}
	return voices
}
