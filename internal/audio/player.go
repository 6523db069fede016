// Package audio captures microphone utterances and plays synthesized speech.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"venture/pkg/audioconv"
)

// PlaybackRate is the output device rate; decoded audio is resampled to it.
const PlaybackRate = 24000

// ErrInterrupted is returned by Play when Stop cut playback short.
var ErrInterrupted = errors.New("playback interrupted")

// PlaybackError is an audio decode or output failure.
type PlaybackError struct {
	Path string
	Err  error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s: %v", e.Path, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Player plays audio files on the default output device, one at a time.
type Player struct {
	initOnce sync.Once
	initErr  error

	mu   sync.Mutex
	stop chan struct{}
}

// NewPlayer creates a player. The speaker is opened on first use.
func NewPlayer() *Player {
	return &Player{}
}

func (p *Player) init() error {
	p.initOnce.Do(func() {
		sr := beep.SampleRate(PlaybackRate)
		p.initErr = speaker.Init(sr, sr.N(time.Second/10))
	})
	return p.initErr
}

// Play decodes path and blocks until it finished playing, Stop was called,
// or ctx was cancelled.
func (p *Player) Play(ctx context.Context, path string) error {
	if err := p.init(); err != nil {
		return &PlaybackError{Path: path, Err: err}
	}

	pcm, err := audioconv.DecodeFile(path, audioconv.Options{SampleRate: PlaybackRate})
	if err != nil {
		return &PlaybackError{Path: path, Err: err}
	}

	stop := make(chan struct{})
	p.mu.Lock()
	p.stop = stop
	p.mu.Unlock()

	done := make(chan struct{})
	speaker.Play(beep.Seq(pcmStreamer(pcm), beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-stop:
		speaker.Clear()
		return ErrInterrupted
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Stop cuts the current playback immediately. It is a no-op when nothing is
// playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

func pcmStreamer(pcm []float32) beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= len(pcm) {
			return 0, false
		}
		n := copy2(samples, pcm[pos:])
		pos += n
		return n, true
	})
}

func copy2(dst [][2]float64, src []float32) int {
	n := min(len(dst), len(src))
	for i := range n {
		v := float64(src[i])
		dst[i][0], dst[i][1] = v, v
	}
	return n
}
