// Package inference asks a remote chat model for NPC replies.
//
// Client.GetResponse streams a reply and extracts the emotion tag the model is
// instructed to prefix; Client.Complete is the plain single-shot variant.
// The transport is abstracted behind Model so the OpenAI backend can be
// swapped for a fake in tests.
package inference

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"venture/internal/observe"
)

// SystemInstruction asks the model to prefix every reply with an emotion tag.
const SystemInstruction = "You are an NPC in a game. Respond naturally and include an emotion tag at the start of your response in the format [EMOTION:emotion_name]. Available emotions: happy, sad, angry, excited, calm, friendly, authoritative."

// FallbackText is shown in place of a reply when inference fails.
const FallbackText = "Sorry, I couldn't process that."

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty model response")

// Error is an inference transport or API failure. Callers recover from it by
// substituting FallbackText.
type Error struct {
	Op  string // "stream" or "complete"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Model is a chat backend.
type Model interface {
	// Stream sends the messages and calls onChunk with each text delta in
	// order. It returns when the stream ends, fails, or ctx is cancelled.
	Stream(ctx context.Context, system, user string, onChunk func(string)) error

	// Complete sends a single user message and returns the whole reply.
	Complete(ctx context.Context, user string) (string, error)
}

// Response is a parsed NPC reply.
type Response struct {
	Text    string
	Emotion string // empty when the model sent no tag
}

// Client wraps a Model with emotion parsing, timeouts and metrics.
type Client struct {
	model   Model
	timeout time.Duration
	metrics *observe.Metrics
}

// NewClient creates a client. A zero timeout disables the per-call deadline;
// metrics may be nil.
func NewClient(model Model, timeout time.Duration, metrics *observe.Metrics) *Client {
	return &Client{model: model, timeout: timeout, metrics: metrics}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// GetResponse streams a reply to prompt and strips its emotion tag.
func (c *Client) GetResponse(ctx context.Context, prompt string) (resp Response, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordStage(ctx, "llm", start, err) }()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var p TagParser
	if err := c.model.Stream(ctx, SystemInstruction, prompt, p.Feed); err != nil {
		return Response{}, &Error{Op: "stream", Err: err}
	}

	resp.Text = p.Text()
	if resp.Text == "" {
		return Response{}, &Error{Op: "stream", Err: ErrEmptyResponse}
	}
	if emotion, ok := p.Emotion(); ok {
		resp.Emotion = emotion
	}

	log.Debug("Model response", "emotion", resp.Emotion, "chars", len(resp.Text))
	return resp, nil
}

// Complete asks for a single-shot reply without emotion parsing.
func (c *Client) Complete(ctx context.Context, prompt string) (text string, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordStage(ctx, "llm", start, err) }()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	text, err = c.model.Complete(ctx, prompt)
	if err != nil {
		return "", &Error{Op: "complete", Err: err}
	}
	if text == "" {
		return "", &Error{Op: "complete", Err: ErrEmptyResponse}
	}
	return text, nil
}
