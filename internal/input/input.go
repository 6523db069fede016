// Package input defines the keyboard and mouse events shared by the renderer
// bridge, the control socket and the game loop.
package input

import (
	"strings"
	"unicode"
)

type Kind string

const (
	KeyDown     Kind = "keydown"
	KeyUp       Kind = "keyup"
	MouseDown   Kind = "mousedown"
	MouseMotion Kind = "motion"
	Quit        Kind = "quit"
)

type Key string

const (
	KeyEnter     Key = "enter"
	KeyBackspace Key = "backspace"
	KeyEscape    Key = "escape"
	KeyTab       Key = "tab"
	KeySpace     Key = "space"
)

// Mod is a bit set of held modifier keys.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModCtrl
)

const ButtonLeft = 1

// Event is one raw input event. Text carries the character a key press
// produced, if any.
type Event struct {
	Kind   Kind    `json:"kind"`
	Key    Key     `json:"key,omitempty"`
	Mods   Mod     `json:"mods,omitempty"`
	Text   string  `json:"text,omitempty"`
	Button int     `json:"button,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
}

// Is reports whether e is a key press of k, whatever modifiers are held.
func (e Event) Is(k Key) bool {
	return e.Kind == KeyDown && strings.EqualFold(string(e.Key), string(k))
}

// Pressed reports whether e is a key press of k with exactly mods held.
func (e Event) Pressed(k Key, mods Mod) bool {
	return e.Is(k) && e.Mods == mods
}

// With reports whether e is a key press of k with at least mods held.
func (e Event) With(k Key, mods Mod) bool {
	return e.Is(k) && e.Mods&mods == mods
}

// Printable returns the event's text if it is a printable key press.
func (e Event) Printable() (string, bool) {
	if e.Kind != KeyDown || e.Text == "" || e.Mods&ModCtrl != 0 {
		return "", false
	}
	for _, r := range e.Text {
		if !unicode.IsPrint(r) {
			return "", false
		}
	}
	return e.Text, true
}

// Press builds a key press event.
func Press(k Key, mods Mod) Event {
	return Event{Kind: KeyDown, Key: k, Mods: mods}
}

// Type builds one key press per rune of s.
func Type(s string) []Event {
	var out []Event
	for _, r := range s {
		k := Key(strings.ToLower(string(r)))
		var mods Mod
		if unicode.IsUpper(r) {
			mods = ModShift
		}
		if r == ' ' {
			k = KeySpace
		}
		out = append(out, Event{Kind: KeyDown, Key: k, Mods: mods, Text: string(r)})
	}
	return out
}
