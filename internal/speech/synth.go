package speech

import (
	"context"
	"fmt"
	"io"

	openai "github.com/openai/openai-go/v3"

	"venture/pkg/voice"
)

// DefaultTTSModel is the hosted speech synthesis model.
const DefaultTTSModel = "tts-1"

// Synthesizer turns text into WAV audio spoken with a voice profile.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, p voice.Profile) ([]byte, error)
}

// OpenAISynth synthesizes speech with the OpenAI audio API.
type OpenAISynth struct {
	client openai.Client
	model  string
}

// NewOpenAISynth creates a synthesizer. An empty model selects DefaultTTSModel.
func NewOpenAISynth(client openai.Client, model string) *OpenAISynth {
	if model == "" {
		model = DefaultTTSModel
	}
	return &OpenAISynth{client: client, model: model}
}

// Synthesize implements Synthesizer. Pitch has no server-side equivalent
// and is not sent.
func (s *OpenAISynth) Synthesize(ctx context.Context, text string, p voice.Profile) ([]byte, error) {
	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(p.Name),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	}
	if p.Speed > 0 {
		params.Speed = openai.Float(p.Speed)
	}

	res, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("speech: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	return data, nil
}
