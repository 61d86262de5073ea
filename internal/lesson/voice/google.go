package voice

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"

	"pmsim/internal/domain/course"
)

// Google rejects inputs over 5000 bytes; stay a little under.
const googleChunkLimit = 4800

var GoogleVoices = Voices{
	course.CharacterNarrator: "en-US-Chirp3-HD-Charon",
	course.CharacterPriya:    "en-US-Chirp3-HD-Kore",
	course.CharacterLearner:  "en-US-Chirp3-HD-Puck",
}

// GoogleSynthesizer uses Cloud Text-to-Speech with application default credentials.
type GoogleSynthesizer struct {
	client *texttospeech.Client
	speed  float64
}

func NewGoogleSynthesizer(ctx context.Context) (*GoogleSynthesizer, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	return &GoogleSynthesizer{client: client, speed: 1.0}, nil
}

// Synthesize returns MP3 audio. Long text is synthesized in chunks whose frames are concatenated.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	// Chirp voices don't support speakingRate.
	if !strings.Contains(strings.ToLower(req.Voice), "chirp") {
		audioCfg.SpeakingRate = g.speed
	}
	lang := req.Language
	if lang == "" {
		lang = languageOf(req.Voice)
	}

	var buf bytes.Buffer
	for i, chunk := range splitIntoChunks(req.Text, googleChunkLimit) {
		resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: lang,
				Name:         req.Voice,
			},
			AudioConfig: audioCfg,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to synthesize chunk %d: %w", i, err)
		}
		buf.Write(resp.AudioContent)
	}
	return &Audio{Data: buf.Bytes(), Format: "mp3"}, nil
}

// Voices lists the voice names the backend offers.
func (g *GoogleSynthesizer) Voices(ctx context.Context) ([]string, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, err
	}
	voices := make([]string, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		voices = append(voices, v.Name)
	}
	return voices, nil
}

func (g *GoogleSynthesizer) Close() error {
	return g.client.Close()
}

// languageOf extracts "en-US" from "en-US-Chirp3-HD-Charon".
func languageOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

// splitIntoChunks breaks text at whitespace into chunks of at most limit bytes.
// A single word longer than limit is cut at rune boundaries.
func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	for _, word := range strings.Fields(text) {
		for len(word) > limit {
			flush()
			cut := limit
			for cut > 0 && !utf8.RuneStart(word[cut]) {
				cut--
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(word)
			}
			chunks = append(chunks, word[:cut])
			word = word[cut:]
		}
		if word == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(word) > limit {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	flush()
	return chunks
}
