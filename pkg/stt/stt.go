// Package stt turns captured utterances into text.
//
// Two recognizers are provided: Transcriber runs a local whisper.cpp model,
// Remote uploads the utterance to the OpenAI transcription endpoint. Both
// report failures as *RecognitionError so callers can skip the utterance.
package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SampleRate is the rate of captured PCM fed to every recognizer.
const SampleRate = 16000

// Recognizer converts mono 16 kHz float32 PCM to text.
type Recognizer interface {
	Recognize(ctx context.Context, pcm []float32) (string, error)
}

// Kind classifies a recognition failure.
type Kind int

const (
	// NoSpeech means the audio held nothing to transcribe.
	NoSpeech Kind = iota
	// Unintelligible means speech was present but produced no usable text.
	Unintelligible
	// Service means the recognizer itself failed.
	Service
)

func (k Kind) String() string {
	switch k {
	case NoSpeech:
		return "no speech"
	case Unintelligible:
		return "unintelligible"
	case Service:
		return "service error"
	default:
		return "unknown"
	}
}

// RecognitionError is returned by every Recognizer on failure.
type RecognitionError struct {
	Kind Kind
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return "recognition: " + e.Kind.String()
	}
	return fmt.Sprintf("recognition: %s: %v", e.Kind, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a RecognitionError of kind k.
func IsKind(err error, k Kind) bool {
	var re *RecognitionError
	return errors.As(err, &re) && re.Kind == k
}

// cleanTranscript trims recognizer output and drops whisper's
// non-speech annotations such as "[BLANK_AUDIO]" or "(music)".
func cleanTranscript(s string) (string, error) {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if isAnnotation(f) {
			continue
		}
		kept = append(kept, f)
	}

	text := strings.Join(kept, " ")
	if text == "" {
		if len(fields) > 0 {
			return "", &RecognitionError{Kind: Unintelligible}
		}
		return "", &RecognitionError{Kind: NoSpeech}
	}
	return text, nil
}

func isAnnotation(word string) bool {
	return len(word) >= 2 &&
		((word[0] == '[' && word[len(word)-1] == ']') ||
			(word[0] == '(' && word[len(word)-1] == ')'))
}
