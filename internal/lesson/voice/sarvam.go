package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"pmsim/internal/domain/course"
)

const sarvamEndpoint = "https://api.sarvam.ai/text-to-speech"

// SarvamVoices are the default speakers per character.
var SarvamVoices = Voices{
	course.CharacterNarrator: "amelia",
	course.CharacterPriya:    "priya",
	course.CharacterLearner:  "aditya",
}

// SarvamSynthesizer calls a TTS backend that returns base64 audio inline in JSON.
type SarvamSynthesizer struct {
	httpBackend
}

func NewSarvamSynthesizer(apiKey string, opts ...HTTPOption) (*SarvamSynthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("sarvam: %w", ErrNoCredentials)
	}
	b := newHTTPBackend("sarvam", sarvamEndpoint, "bulbul:v3", opts)
	if b.language == "" {
		b.language = "en-IN"
	}
	b.headers["api-subscription-key"] = apiKey
	return &SarvamSynthesizer{httpBackend: b}, nil
}

type sarvamRequest struct {
	Text               string `json:"text"`
	TargetLanguageCode string `json:"target_language_code"`
	Model              string `json:"model"`
	Speaker            string `json:"speaker"`
	SpeechSampleRate   int    `json:"speech_sample_rate"`
	OutputAudioCodec   string `json:"output_audio_codec"`
}

type sarvamResponse struct {
	Audios []string `json:"audios"`
}

func (s *SarvamSynthesizer) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	format := req.Format
	if format == "" {
		format = "wav"
	}
	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = 22050
	}
	lang := req.Language
	if lang == "" {
		lang = s.language
	}

	body, err := s.post(ctx, sarvamRequest{
		Text:               req.Text,
		TargetLanguageCode: lang,
		Model:              s.model,
		Speaker:            req.Voice,
		SpeechSampleRate:   sampleRate,
		OutputAudioCodec:   format,
	})
	if err != nil {
		return nil, err
	}

	var resp sarvamResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("sarvam: decode response: %w", err)
	}
	if len(resp.Audios) == 0 || resp.Audios[0] == "" {
		return nil, errors.New("sarvam: no audio returned")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Audios[0])
	if err != nil {
		return nil, fmt.Errorf("sarvam: decode audio: %w", err)
	}
	return &Audio{Data: data, Format: format}, nil
}
