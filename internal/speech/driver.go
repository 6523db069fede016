// Package speech drives the microphone capture, recognition, synthesis and
// playback of an NPC voice conversation.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "log/slog"

	"golang.org/x/sync/errgroup"

	"venture/internal/audio"
	"venture/internal/observe"
	"venture/pkg/stt"
	"venture/pkg/voice"
)

// ErrUnavailable is returned by StartListening when no microphone or
// recognizer is configured.
var ErrUnavailable = errors.New("speech input unavailable")

// UtteranceHandler receives recognized text. It runs on the drain task, so
// the next utterance is not processed until it returns.
type UtteranceHandler func(ctx context.Context, text string)

// Microphone captures single utterances.
type Microphone interface {
	Calibrate(ctx context.Context, d time.Duration) error
	Listen(ctx context.Context, wait, phraseLimit time.Duration) ([]float32, error)
	Close() error
}

// Player plays an audio file to completion. Stop cuts it short.
type Player interface {
	Play(ctx context.Context, path string) error
	Stop()
}

// Ducker lowers other applications' volume while the NPC speaks.
type Ducker interface {
	Duck(ctx context.Context, factor float64, fade time.Duration) error
	Unduck(ctx context.Context, fade time.Duration) error
}

type Config struct {
	Voices     *voice.Registry
	Synth      Synthesizer
	Player     Player
	Recognizer stt.Recognizer
	OpenMic    func() (Microphone, error)

	// Optional.
	Ducker  Ducker
	Cue     func(ctx context.Context)
	Metrics *observe.Metrics
	TempDir string

	Calibration  time.Duration // 1s
	WaitTimeout  time.Duration // 1s
	PhraseLimit  time.Duration // 10s
	PollInterval time.Duration // 100ms
}

func (c *Config) defaults() {
	if c.Calibration <= 0 {
		c.Calibration = time.Second
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = time.Second
	}
	if c.PhraseLimit <= 0 {
		c.PhraseLimit = 10 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
}

// Driver owns the speech pipeline state: the listening and speaking flags
// and the captured utterance queue.
type Driver struct {
	cfg Config

	listening atomic.Bool
	speaking  atomic.Bool
	queue     queue

	mu         sync.Mutex
	stopListen context.CancelFunc
	tasks      chan struct{} // closed when the current task group exits
	gen        int
	stopSynth  context.CancelFunc
	synthGen   int
}

// NewDriver creates an idle driver.
func NewDriver(cfg Config) *Driver {
	cfg.defaults()
	return &Driver{cfg: cfg}
}

func (d *Driver) IsListening() bool { return d.listening.Load() }

func (d *Driver) IsSpeaking() bool { return d.speaking.Load() }

// StartListening starts the capture and drain tasks. Calling it while
// already listening does nothing.
func (d *Driver) StartListening(handler UtteranceHandler) error {
	if d.cfg.OpenMic == nil || d.cfg.Recognizer == nil {
		return ErrUnavailable
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.listening.Load() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.capture(gctx) })
	g.Go(func() error { return d.drain(gctx, handler) })

	d.gen++
	gen, done := d.gen, make(chan struct{})
	d.stopListen, d.tasks = cancel, done
	d.listening.Store(true)
	log.Info("Listening started")

	go func() {
		defer close(done)
		err := g.Wait()
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Speech tasks failed", "err", err)
		}

		d.mu.Lock()
		if d.gen == gen {
			d.listening.Store(false)
			d.stopListen = nil
		}
		d.mu.Unlock()
	}()

	return nil
}

// StopListening signals the capture and drain tasks to exit and returns
// without waiting for them.
func (d *Driver) StopListening() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listening.Store(false)
	if d.stopListen != nil {
		d.stopListen()
		d.stopListen = nil
		log.Info("Listening stopped")
	}
}

// Wait blocks until the most recently started task group has exited.
func (d *Driver) Wait() {
	d.mu.Lock()
	done := d.tasks
	d.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (d *Driver) capture(ctx context.Context) error {
	mic, err := d.cfg.OpenMic()
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	defer mic.Close()

	if err := mic.Calibrate(ctx, d.cfg.Calibration); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	if d.cfg.Cue != nil {
		d.cfg.Cue(ctx)
	}

	for {
		pcm, err := mic.Listen(ctx, d.cfg.WaitTimeout, d.cfg.PhraseLimit)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, audio.ErrWaitTimeout):
			continue
		case err != nil:
			log.Warn("Failed to capture utterance", "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.cfg.PollInterval):
			}
			continue
		}

		log.Debug("Captured utterance", "samples", len(pcm))
		d.queue.push(pcm)
	}
}

func (d *Driver) drain(ctx context.Context, handler UtteranceHandler) error {
	tick := time.NewTicker(d.cfg.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}

		if d.speaking.Load() {
			continue
		}
		pcm, dropped, ok := d.queue.popFlush()
		if !ok {
			continue
		}
		if dropped > 0 {
			log.Debug("Dropped queued utterances", "count", dropped)
			d.cfg.Metrics.RecordDropped(ctx, dropped)
		}

		start := time.Now()
		text, err := d.cfg.Recognizer.Recognize(ctx, pcm)
		d.cfg.Metrics.RecordStage(ctx, "stt", start, err)
		if err != nil {
			var rerr *stt.RecognitionError
			if errors.As(err, &rerr) && rerr.Kind != stt.Service {
				log.Debug("Skipping utterance", "kind", rerr.Kind)
			} else {
				log.Warn("Recognition failed", "err", err)
			}
			continue
		}

		log.Info("Recognized", "text", text)
		handler(ctx, text)
	}
}

// InterruptSpeech stops playback and any pending synthesis and drops
// queued utterances. It does nothing when the NPC is not speaking.
func (d *Driver) InterruptSpeech() {
	d.mu.Lock()
	if !d.speaking.Load() {
		d.mu.Unlock()
		return
	}
	if d.stopSynth != nil {
		d.stopSynth()
	}
	d.mu.Unlock()
	if d.cfg.Player != nil {
		d.cfg.Player.Stop()
	}

	d.speaking.Store(false)
	n := d.queue.flush()
	d.cfg.Metrics.RecordInterruption(context.Background())
	log.Info("Speech interrupted", "dropped", n)
}

// TextToSpeech speaks text with the active voice and blocks until playback
// finished or was interrupted. Interruption is not an error.
func (d *Driver) TextToSpeech(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if d.cfg.Synth == nil || d.cfg.Player == nil {
		return errors.New("speech output unavailable")
	}

	sctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.synthGen++
	gen := d.synthGen
	d.stopSynth = cancel
	d.speaking.Store(true)
	d.mu.Unlock()
	defer d.speaking.Store(false)

	defer func() {
		cancel()
		d.mu.Lock()
		if d.synthGen == gen {
			d.stopSynth = nil
		}
		d.mu.Unlock()
	}()

	err := d.speak(sctx, text)
	if err != nil && sctx.Err() != nil && ctx.Err() == nil {
		return nil
	}
	if errors.Is(err, audio.ErrInterrupted) {
		return nil
	}
	return err
}

func (d *Driver) speak(ctx context.Context, text string) error {
	profile := d.cfg.Voices.Current()

	start := time.Now()
	wav, err := d.cfg.Synth.Synthesize(ctx, text, profile)
	d.cfg.Metrics.RecordStage(ctx, "tts", start, err)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(d.cfg.TempDir, "npc-*.wav")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	_, err = f.Write(wav)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if d.cfg.Ducker != nil {
		if err := d.cfg.Ducker.Duck(ctx, 0.3, 150*time.Millisecond); err != nil {
			log.Warn("Failed to duck audio", "err", err)
		}
		defer func() {
			if err := d.cfg.Ducker.Unduck(context.Background(), 300*time.Millisecond); err != nil {
				log.Warn("Failed to unduck audio", "err", err)
			}
		}()
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	log.Debug("Speaking", "voice", profile.Name, "speed", profile.Speed)
	return d.cfg.Player.Play(ctx, f.Name())
}

// SetVoice selects the voice used for synthesis. Unknown ids select the
// default voice.
func (d *Driver) SetVoice(id voice.ID, speed, pitch float64) voice.Profile {
	return d.cfg.Voices.Set(id, speed, pitch)
}

// AdjustVoiceForEmotion switches to the voice mapped to tag. It reports
// whether a mapping existed; on a miss the voice is unchanged.
func (d *Driver) AdjustVoiceForEmotion(tag string) bool {
	_, ok := d.cfg.Voices.ApplyEmotion(tag)
	return ok
}
