package main

import (
	"testing"

	"venture/internal/conversation"
	"venture/internal/game"
)

func TestConsoleTracksChanges(t *testing.T) {
	c := newConsole()

	c.Publish(game.Frame{Menu: &game.MenuFrame{Title: "V"}})
	if !c.menu {
		t.Fatal("menu frame should keep menu state")
	}

	c.Publish(game.Frame{Prompt: "Press TAB to talk to HR"})
	if c.menu || c.prompt != "Press TAB to talk to HR" {
		t.Fatalf("state = menu %v prompt %q", c.menu, c.prompt)
	}

	c.Publish(game.Frame{Overlay: &conversation.Overlay{Lines: []string{"NPC: Hello!"}}})
	if len(c.lines) != 1 || c.prompt != "" {
		t.Fatalf("lines = %v prompt %q", c.lines, c.prompt)
	}

	c.Publish(game.Frame{})
	if c.lines != nil {
		t.Fatalf("lines = %v, want cleared", c.lines)
	}
}
