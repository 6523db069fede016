// Package notify plays short audible cues.
package notify

import (
	"context"
	"errors"

	log "log/slog"

	"venture/internal/audio"
)

// Player plays an audio file to completion.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Cue plays a sound file, typically when the microphone opens.
type Cue struct {
	player Player
	path   string
}

// NewCue returns nil when path is empty; a nil Cue is silent.
func NewCue(player Player, path string) *Cue {
	if path == "" {
		return nil
	}
	return &Cue{player: player, path: path}
}

// Ring plays the cue. Failures are logged, never returned.
func (c *Cue) Ring(ctx context.Context) {
	if c == nil {
		return
	}
	err := c.player.Play(ctx, c.path)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, audio.ErrInterrupted) {
		log.Warn("Failed to play cue", "path", c.path, "err", err)
	}
}
