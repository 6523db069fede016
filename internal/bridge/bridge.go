// Package bridge links the game to an external scene renderer over a
// websocket: input events come in, frames go out.
package bridge

import (
	"context"
	"encoding/json"
	"time"

	log "log/slog"

	"venture/internal/conversation"
	"venture/internal/game"
	"venture/internal/input"
	"venture/pkg/util"
)

const DefaultReconnect = 2 * time.Second

type Bridge struct {
	sock   *socket
	events chan input.Event

	last *game.Frame
}

// Dial connects to the renderer at url. reconn is the delay between
// reconnection attempts.
func Dial(ctx context.Context, url string, reconn time.Duration) (*Bridge, error) {
	if reconn <= 0 {
		reconn = DefaultReconnect
	}
	sock, err := dial(ctx, url, reconn)
	if err != nil {
		return nil, err
	}
	log.Info("Connected to renderer", "url", url)
	return &Bridge{sock: sock, events: make(chan input.Event, 64)}, nil
}

// Events delivers input decoded from the renderer.
func (b *Bridge) Events() <-chan input.Event {
	return b.events
}

// Run reads from the renderer until ctx is done, reconnecting when the
// connection drops.
func (b *Bridge) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { b.sock.current().Close() })
	defer stop()

	for {
		in := b.sock.read()
		if err := ctx.Err(); err != nil {
			return err
		}

		switch in.kind {
		case connClosed, readFailure:
			log.Warn("Renderer connection lost, reconnecting", "url", b.sock.url, "err", in.err)
			if err := b.sock.reconnect(ctx); err != nil {
				return err
			}
			log.Info("Reconnected to renderer")

		case readOK:
			var e input.Event
			if err := json.Unmarshal(in.msg, &e); err != nil {
				log.Warn("Failed to parse renderer event", "msg", string(in.msg), "err", err)
				continue
			}
			select {
			case b.events <- e:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Publish sends f unless it matches the last frame sent. It must be called
// from a single goroutine.
func (b *Bridge) Publish(f game.Frame) {
	if b.last != nil && sameFrame(*b.last, f) {
		return
	}

	data, err := json.Marshal(f)
	if err != nil {
		log.Error("Failed to encode frame", "err", err)
		return
	}
	if err := b.sock.write(data); err != nil {
		log.Debug("Failed to publish frame", "err", err)
		return
	}
	b.last = &f
}

func (b *Bridge) Close() error {
	return b.sock.close()
}

// sameFrame compares everything the renderer draws, ignoring the sequence
// number.
func sameFrame(a, b game.Frame) bool {
	if a.Player != b.Player || a.Nearby != b.Nearby || a.Prompt != b.Prompt {
		return false
	}
	if (a.Menu == nil) != (b.Menu == nil) || (a.Menu != nil && *a.Menu != *b.Menu) {
		return false
	}
	if !util.EqualSlices(a.NPCs, b.NPCs, util.Same, false) {
		return false
	}
	return sameOverlay(a.Overlay, b.Overlay)
}

func sameOverlay(a, b *conversation.Overlay) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Controls == b.Controls &&
		a.Prompt == b.Prompt &&
		util.EqualSlices(a.Lines, b.Lines, util.Same, false) &&
		util.EqualSlices(a.Indicators, b.Indicators, util.Same, false)
}
