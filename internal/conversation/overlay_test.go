package conversation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"venture/internal/input"
	"venture/internal/proximity"
	"venture/internal/world"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"NPC: Hello there", 80, []string{"NPC: Hello there"}},
		{"one two three four", 9, []string{"one two", "three", "four"}},
		{"tiny supercalifragilistic end", 8, []string{"tiny", "supercalifragilistic", "end"}},
		{"   ", 10, nil},
	}
	for _, tt := range tests {
		if got := wrap(tt.text, tt.width); fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("wrap(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestRenderShowsLastThreeEntries(t *testing.T) {
	c := newTestConversation(&fakeInference{}, newFakeSpeech(), Options{WrapWidth: 200})
	c.StartConversation(context.Background(), proximity.HR, world.Vec3{})
	c.history = append(c.history,
		Entry{Player, "first"},
		Entry{Npc, "second"},
		Entry{System, NoticeInterrupted},
	)
	typeText(c, "draft")

	o := c.Render()

	want := []string{"You: first", "NPC: second", "You: " + NoticeInterrupted}
	if fmt.Sprint(o.Lines) != fmt.Sprint(want) {
		t.Fatalf("lines = %q, want %q", o.Lines, want)
	}
	if o.Prompt != "> draft_" {
		t.Fatalf("prompt = %q", o.Prompt)
	}
	if o.Controls != Controls {
		t.Fatalf("controls = %q", o.Controls)
	}
	if fmt.Sprint(o.Indicators) != fmt.Sprint([]string{"Emotion: Friendly"}) {
		t.Fatalf("indicators = %q", o.Indicators)
	}
}

func TestRenderIndicators(t *testing.T) {
	c := newTestConversation(&fakeInference{}, newFakeSpeech(), Options{WrapWidth: 20})
	c.StartConversation(context.Background(), proximity.CEO, world.Vec3{})
	c.HandleInput(input.Event{Kind: input.KeyDown, Key: "t", Mods: input.ModShift})

	o := c.Render()

	if want := []string{"Speech Mode: ON", "Emotion: Authoritative"}; fmt.Sprint(o.Indicators) != fmt.Sprint(want) {
		t.Fatalf("indicators = %q", o.Indicators)
	}
	for _, l := range o.Lines {
		if len(l) > 20 {
			t.Fatalf("line %q exceeds wrap width", l)
		}
	}
	if !strings.HasPrefix(o.Lines[0], "NPC: Hello!") {
		t.Fatalf("lines = %q", o.Lines)
	}
}
