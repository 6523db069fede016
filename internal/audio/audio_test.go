package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

// levelSource yields constant-amplitude frames, one level per frame, then
// silence.
type levelSource struct {
	levels []float32
	read   int
}

func (s *levelSource) ReadFrame(buf []float32) error {
	var v float32
	if s.read < len(s.levels) {
		v = s.levels[s.read]
	}
	s.read++
	for i := range buf {
		buf[i] = v
	}
	return nil
}

func levels(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestListenStopsOnSilence(t *testing.T) {
	src := &levelSource{levels: append(levels(5, 0), levels(10, 0.5)...)}
	mic := NewMicrophone(src)

	pcm, err := mic.Listen(context.Background(), time.Second, 10*time.Second)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	// 10 speech frames followed by 600ms of trailing silence.
	if want := (10 + 30) * frameSize; len(pcm) != want {
		t.Fatalf("len(pcm) = %d, want %d", len(pcm), want)
	}
}

func TestListenWaitTimeout(t *testing.T) {
	mic := NewMicrophone(&levelSource{})

	_, err := mic.Listen(context.Background(), 100*time.Millisecond, time.Second)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("err = %v, want ErrWaitTimeout", err)
	}
}

func TestListenPhraseLimit(t *testing.T) {
	mic := NewMicrophone(&levelSource{levels: levels(100, 0.5)})

	pcm, err := mic.Listen(context.Background(), time.Second, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if want := 10 * frameSize; len(pcm) != want {
		t.Fatalf("len(pcm) = %d, want %d", len(pcm), want)
	}
}

func TestListenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMicrophone(&levelSource{}).Listen(ctx, time.Second, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCalibrate(t *testing.T) {
	tests := []struct {
		level float32
		want  float64
	}{
		{0.1, 0.15},
		{0.001, minEnergy},
	}
	for _, tt := range tests {
		mic := NewMicrophone(&levelSource{levels: levels(50, tt.level)})
		if err := mic.Calibrate(context.Background(), time.Second); err != nil {
			t.Fatalf("Calibrate: %v", err)
		}
		if got := mic.Threshold(); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("level %v: threshold = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestPCMStreamer(t *testing.T) {
	s := pcmStreamer([]float32{0.25, -0.5, 1})

	buf := make([][2]float64, 2)
	n, ok := s.Stream(buf)
	if n != 2 || !ok || buf[1] != [2]float64{-0.5, -0.5} {
		t.Fatalf("first = %d %v %v", n, ok, buf)
	}
	n, ok = s.Stream(buf)
	if n != 1 || !ok || buf[0] != [2]float64{1, 1} {
		t.Fatalf("second = %d %v %v", n, ok, buf)
	}
	if n, ok = s.Stream(buf); n != 0 || ok {
		t.Fatalf("drained = %d %v", n, ok)
	}
}

const sinkInputs = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"
Sink Input #42
	Volume: front-left: 52429 /  80% / -5.81 dB
	Properties:
		application.name = "venture"
`

type fakePactl struct {
	list string
	sets []string
}

func (f *fakePactl) run(_ context.Context, args ...string) ([]byte, error) {
	if args[0] == "list" {
		return []byte(f.list), nil
	}
	f.sets = append(f.sets, strings.Join(args[1:], " "))
	return nil, nil
}

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputs)
	want := []sinkInput{{41, 100, "Firefox"}, {42, 80, "venture"}}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDuckerSkipsSelf(t *testing.T) {
	p := &fakePactl{list: sinkInputs}
	d := newDucker(p.run, []string{"venture"}, 10)

	if err := d.Duck(context.Background(), 0.3, 0); err != nil {
		t.Fatalf("Duck: %v", err)
	}
	if want := []string{"41 30%"}; fmt.Sprint(p.sets) != fmt.Sprint(want) {
		t.Fatalf("sets = %v, want %v", p.sets, want)
	}

	// Second duck is a no-op.
	_ = d.Duck(context.Background(), 0.3, 0)
	if len(p.sets) != 1 {
		t.Fatalf("duck twice: sets = %v", p.sets)
	}

	p.list = strings.Replace(sinkInputs, "100%", "30%", 1)
	p.sets = nil
	if err := d.Unduck(context.Background(), 0); err != nil {
		t.Fatalf("Unduck: %v", err)
	}
	if want := []string{"41 100%"}; fmt.Sprint(p.sets) != fmt.Sprint(want) {
		t.Fatalf("sets = %v, want %v", p.sets, want)
	}
}

func TestDuckerMinVolume(t *testing.T) {
	p := &fakePactl{list: sinkInputs}
	d := newDucker(p.run, nil, 50)

	if err := d.Duck(context.Background(), 0.1, 0); err != nil {
		t.Fatalf("Duck: %v", err)
	}
	if want := []string{"41 50%", "42 50%"}; fmt.Sprint(p.sets) != fmt.Sprint(want) {
		t.Fatalf("sets = %v, want %v", p.sets, want)
	}
}
