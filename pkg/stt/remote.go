package stt

import (
	"context"
	"fmt"
	"os"

	openai "github.com/openai/openai-go/v3"

	"venture/pkg/audioconv"
)

// DefaultRemoteModel is the hosted transcription model.
const DefaultRemoteModel = "whisper-1"

// Remote recognizes speech with the OpenAI transcription API.
type Remote struct {
	client   openai.Client
	model    string
	language string
}

// NewRemote creates a remote recognizer. An empty model selects
// DefaultRemoteModel; an empty language lets the service detect it.
func NewRemote(client openai.Client, model, language string) *Remote {
	if model == "" {
		model = DefaultRemoteModel
	}
	return &Remote{client: client, model: model, language: language}
}

// Recognize implements Recognizer. The utterance is written to a transient
// WAV file for upload.
func (r *Remote) Recognize(ctx context.Context, pcm []float32) (string, error) {
	if len(pcm) == 0 {
		return "", &RecognitionError{Kind: NoSpeech}
	}

	f, err := os.CreateTemp("", "utterance-*.wav")
	if err != nil {
		return "", &RecognitionError{Kind: Service, Err: err}
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if err := audioconv.EncodeWAV(f, pcm, SampleRate); err != nil {
		return "", &RecognitionError{Kind: Service, Err: err}
	}
	if _, err := f.Seek(0, 0); err != nil {
		return "", &RecognitionError{Kind: Service, Err: err}
	}

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(r.model),
	}
	if r.language != "" {
		params.Language = openai.String(r.language)
	}

	resp, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", &RecognitionError{Kind: Service, Err: fmt.Errorf("transcription: %w", err)}
	}

	return cleanTranscript(resp.Text)
}
