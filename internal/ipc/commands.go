package ipc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"venture/internal/input"
)

var ErrUnknownCommand = errors.New("unknown command")

const frame = time.Second / 60

// Feeder turns control messages into input events on a channel.
type Feeder struct {
	Out chan<- input.Event
}

// Handle implements Handler.
//
//	key <name> [shift] [ctrl]
//	type <text>
//	click
//	look <dx> [dy]
//	move <w|a|s|d> [frames]
//	quit
func (f Feeder) Handle(ctx context.Context, msg ControlMessage) error {
	switch msg.Cmd {
	case "key":
		if len(msg.Args) == 0 {
			return errors.New("key: missing key name")
		}
		var mods input.Mod
		for _, m := range msg.Args[1:] {
			switch strings.ToLower(m) {
			case "shift":
				mods |= input.ModShift
			case "ctrl":
				mods |= input.ModCtrl
			default:
				return fmt.Errorf("key: unknown modifier %q", m)
			}
		}
		return f.send(ctx, tap(input.Press(input.Key(strings.ToLower(msg.Args[0])), mods))...)

	case "type":
		return f.send(ctx, tap(input.Type(strings.Join(msg.Args, " "))...)...)

	case "click":
		return f.send(ctx, input.Event{Kind: input.MouseDown, Button: input.ButtonLeft})

	case "look":
		var d [2]float64
		for i := 0; i < len(msg.Args) && i < 2; i++ {
			v, err := strconv.ParseFloat(msg.Args[i], 64)
			if err != nil {
				return fmt.Errorf("look: %w", err)
			}
			d[i] = v
		}
		return f.send(ctx, input.Event{Kind: input.MouseMotion, DX: d[0], DY: d[1]})

	case "move":
		return f.move(ctx, msg.Args)

	case "quit":
		return f.send(ctx, input.Event{Kind: input.Quit})
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Cmd)
}

// move holds a movement key down for a number of frames.
func (f Feeder) move(ctx context.Context, args []string) error {
	if len(args) == 0 || !strings.Contains("wasd", args[0]) || len(args[0]) != 1 {
		return errors.New("move: direction must be one of w, a, s, d")
	}
	frames := 10
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("move: bad frame count %q", args[1])
		}
		frames = n
	}

	key := input.Key(args[0])
	if err := f.send(ctx, input.Event{Kind: input.KeyDown, Key: key}); err != nil {
		return err
	}

	select {
	case <-time.After(time.Duration(frames) * frame):
	case <-ctx.Done():
	}
	// Release the key even when the request was cancelled mid-move.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	return f.send(rctx, input.Event{Kind: input.KeyUp, Key: key})
}

// tap follows every key press with its release.
func tap(presses ...input.Event) []input.Event {
	out := make([]input.Event, 0, 2*len(presses))
	for _, e := range presses {
		out = append(out, e, input.Event{Kind: input.KeyUp, Key: e.Key, Mods: e.Mods})
	}
	return out
}

func (f Feeder) send(ctx context.Context, events ...input.Event) error {
	for _, e := range events {
		select {
		case f.Out <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
