package voice

import (
	"context"
	"errors"
	"fmt"

	"pmsim/internal/domain/course"
)

const openAIEndpoint = "https://api.openai.com/v1/audio/speech"

var OpenAIVoices = Voices{
	course.CharacterNarrator: "nova",
	course.CharacterPriya:    "shimmer",
	course.CharacterLearner:  "onyx",
}

// OpenAISynthesizer calls a TTS backend that returns the audio payload as the response body.
type OpenAISynthesizer struct {
	httpBackend
	speed float64
}

func NewOpenAISynthesizer(apiKey string, opts ...HTTPOption) (*OpenAISynthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrNoCredentials)
	}
	b := newHTTPBackend("openai", openAIEndpoint, "tts-1", opts)
	b.headers["Authorization"] = "Bearer " + apiKey
	return &OpenAISynthesizer{httpBackend: b, speed: 0.95}, nil
}

type openAIRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	format := req.Format
	if format == "" {
		format = "mp3"
	}
	data, err := o.post(ctx, openAIRequest{
		Model:          o.model,
		Input:          req.Text,
		Voice:          req.Voice,
		ResponseFormat: format,
		Speed:          o.speed,
	})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("openai: empty audio")
	}
	return &Audio{Data: data, Format: format}, nil
}
