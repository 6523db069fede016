package conversation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	Controls       = "Press Shift+T to toggle speech mode | Press ESC to exit chat"
	visibleEntries = 3
)

// Overlay is the dialogue box drawn over the scene.
type Overlay struct {
	Controls   string   `json:"controls"`
	Lines      []string `json:"lines"`
	Prompt     string   `json:"prompt,omitempty"`
	Indicators []string `json:"indicators,omitempty"`
}

// Render returns the dialogue overlay, or nil when no session is active.
func (c *Conversation) Render() *Overlay {
	if !c.active {
		return nil
	}

	o := &Overlay{Controls: Controls}

	entries := c.history
	if len(entries) > visibleEntries {
		entries = entries[len(entries)-visibleEntries:]
	}
	for _, e := range entries {
		prefix := "You: "
		if e.Speaker == Npc {
			prefix = "NPC: "
		}
		o.Lines = append(o.Lines, wrap(prefix+e.Text, c.opts.WrapWidth)...)
	}

	if c.inputActive {
		o.Prompt = "> " + c.input + "_"
	}
	if c.speechMode {
		o.Indicators = append(o.Indicators, "Speech Mode: ON")
	}
	if c.emotion != "" {
		o.Indicators = append(o.Indicators, "Emotion: "+capitalize(c.emotion))
	}
	return o
}

// wrap breaks text into lines of at most width runes on word boundaries.
// Words longer than width get a line of their own.
func wrap(text string, width int) []string {
	var (
		lines []string
		line  strings.Builder
		n     int
	)
	for _, w := range strings.Fields(text) {
		wn := utf8.RuneCountInString(w)
		if n > 0 && n+1+wn > width {
			lines = append(lines, line.String())
			line.Reset()
			n = 0
		}
		if n > 0 {
			line.WriteByte(' ')
			n++
		}
		line.WriteString(w)
		n += wn
	}
	if n > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
