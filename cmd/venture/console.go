package main

import (
	log "log/slog"

	"venture/internal/game"
	"venture/pkg/util"
)

// console stands in for the renderer: it logs prompts and conversation
// lines as they change so the game can be driven over the control socket.
type console struct {
	prompt string
	lines  []string
	menu   bool
}

func newConsole() *console {
	return &console{menu: true}
}

func (c *console) Publish(f game.Frame) {
	if (f.Menu != nil) != c.menu {
		c.menu = f.Menu != nil
		if !c.menu {
			log.Info("Entered the office")
		}
	}

	if f.Prompt != c.prompt {
		c.prompt = f.Prompt
		if f.Prompt != "" {
			log.Info("Prompt", "text", f.Prompt)
		}
	}

	var lines []string
	if f.Overlay != nil {
		lines = f.Overlay.Lines
	}
	if !util.EqualSlices(c.lines, lines, util.Same, false) {
		for _, l := range lines {
			log.Debug("Overlay", "line", l)
		}
		if len(lines) > 0 {
			log.Info("Conversation", "last", lines[len(lines)-1])
		}
		c.lines = lines
	}
}
