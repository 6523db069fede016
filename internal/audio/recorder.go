package audio

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms

	minEnergy       = 0.015
	energyRatio     = 1.5
	silenceDuration = 600 * time.Millisecond
)

// ErrWaitTimeout is returned by Listen when no speech started before the
// wait timeout.
var ErrWaitTimeout = errors.New("listening timed out waiting for phrase")

// FrameSource delivers fixed-size frames of mono 16 kHz samples.
type FrameSource interface {
	ReadFrame(buf []float32) error
}

// Microphone detects utterances on a FrameSource by energy thresholding.
type Microphone struct {
	src FrameSource

	mu        sync.Mutex
	threshold float64
}

// NewMicrophone wraps src with the default energy threshold.
func NewMicrophone(src FrameSource) *Microphone {
	return &Microphone{src: src, threshold: minEnergy}
}

// Open starts the default input device and returns a microphone on it.
// Close releases the device.
func Open() (*Microphone, error) {
	dev, err := OpenDevice()
	if err != nil {
		return nil, err
	}
	return NewMicrophone(dev), nil
}

// Close closes the frame source if it owns a device.
func (m *Microphone) Close() error {
	if c, ok := m.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Threshold returns the current speech energy threshold.
func (m *Microphone) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Calibrate measures ambient noise for d and raises the speech threshold
// above it.
func (m *Microphone) Calibrate(ctx context.Context, d time.Duration) error {
	buf := make([]float32, frameSize)
	frames := max(int(d/(20*time.Millisecond)), 1)

	var sum float64
	for range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.src.ReadFrame(buf); err != nil {
			return err
		}
		sum += frameRMS(buf)
	}

	m.mu.Lock()
	m.threshold = math.Max(minEnergy, sum/float64(frames)*energyRatio)
	m.mu.Unlock()
	return nil
}

// Listen waits up to wait for speech to begin, then records until
// silenceDuration of quiet or phraseLimit of audio. It returns
// ErrWaitTimeout when nothing was said within wait.
func (m *Microphone) Listen(ctx context.Context, wait, phraseLimit time.Duration) ([]float32, error) {
	const frameDur = 20 * time.Millisecond

	thresh := m.Threshold()
	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	var (
		waited  time.Duration
		spoken  time.Duration
		silence time.Duration
		started bool
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.src.ReadFrame(buf); err != nil {
			return nil, err
		}

		loud := frameRMS(buf) > thresh

		if !started {
			if !loud {
				waited += frameDur
				if waited >= wait {
					return nil, ErrWaitTimeout
				}
				continue
			}
			started = true
		}

		out = append(out, buf...)
		spoken += frameDur

		if loud {
			silence = 0
		} else {
			silence += frameDur
			if silence >= silenceDuration {
				break
			}
		}
		if spoken >= phraseLimit {
			break
		}
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}

// Device is a FrameSource on the default portaudio input.
type Device struct {
	stream *portaudio.Stream
	buf    []float32
}

// OpenDevice initialises portaudio and starts the default input stream.
func OpenDevice() (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	d := &Device{buf: make([]float32, frameSize)}
	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(d.buf), d.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}

	d.stream = stream
	return d, nil
}

// ReadFrame implements FrameSource. len(buf) must equal the device frame size.
func (d *Device) ReadFrame(buf []float32) error {
	if err := d.stream.Read(); err != nil {
		return err
	}
	copy(buf, d.buf)
	return nil
}

// Close stops the stream and terminates portaudio.
func (d *Device) Close() error {
	errStop := d.stream.Stop()
	errClose := d.stream.Close()
	errTerm := portaudio.Terminate()
	return errors.Join(errStop, errClose, errTerm)
}
