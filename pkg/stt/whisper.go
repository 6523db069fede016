package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Options tune the local whisper model.
type Options struct {
	Language      string // "auto", "en", ...
	TranslateToEn bool
	Threads       int // <=0 => NumCPU()
	InitialPrompt string
	BeamSize      int // 0 = greedy
}

// Transcriber runs a whisper.cpp model in-process.
type Transcriber struct {
	model whisper.Model
	opt   Options
}

// NewTranscriber loads the ggml model at modelPath.
func NewTranscriber(modelPath string, opt Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Transcriber{model: m, opt: opt}, nil
}

// Close releases the model.
func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

// Recognize implements Recognizer.
func (t *Transcriber) Recognize(ctx context.Context, pcm []float32) (string, error) {
	if len(pcm) == 0 {
		return "", &RecognitionError{Kind: NoSpeech}
	}
	if t.model == nil {
		return "", &RecognitionError{Kind: Service, Err: errors.New("nil model")}
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", &RecognitionError{Kind: Service, Err: fmt.Errorf("new context: %w", err)}
	}

	lang := t.opt.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return "", &RecognitionError{Kind: Service, Err: fmt.Errorf("set language: %w", err)}
	}
	wctx.SetTranslate(t.opt.TranslateToEn)

	threads := t.opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if t.opt.BeamSize > 0 {
		wctx.SetBeamSize(t.opt.BeamSize)
	}
	if t.opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(t.opt.InitialPrompt)
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return "", &RecognitionError{Kind: Service, Err: fmt.Errorf("process: %w", err)}
	}

	var parts []string
	for {
		if err := ctx.Err(); err != nil {
			return "", &RecognitionError{Kind: Service, Err: err}
		}

		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &RecognitionError{Kind: Service, Err: fmt.Errorf("next segment: %w", err)}
		}
		parts = append(parts, seg.Text)
	}

	return cleanTranscript(strings.Join(parts, " "))
}
