package input

import "testing"

func TestPressed(t *testing.T) {
	tests := []struct {
		e    Event
		k    Key
		mods Mod
		want bool
	}{
		{Press(KeyEnter, 0), KeyEnter, 0, true},
		{Event{Kind: KeyDown, Key: "T", Mods: ModShift}, "t", ModShift, true},
		{Press("t", 0), "t", ModShift, false},
		{Event{Kind: KeyUp, Key: KeyEnter}, KeyEnter, 0, false},
	}
	for _, tt := range tests {
		if got := tt.e.Pressed(tt.k, tt.mods); got != tt.want {
			t.Errorf("%+v.Pressed(%q, %d) = %v, want %v", tt.e, tt.k, tt.mods, got, tt.want)
		}
	}
}

func TestWith(t *testing.T) {
	e := Event{Kind: KeyDown, Key: "V", Mods: ModCtrl | ModShift}
	if !e.With("v", ModCtrl) || e.Pressed("v", ModCtrl) || !e.With("v", 0) {
		t.Fatalf("modifier matching wrong for %+v", e)
	}
}

func TestPrintable(t *testing.T) {
	tests := []struct {
		e    Event
		want string
		ok   bool
	}{
		{Event{Kind: KeyDown, Key: "a", Text: "a"}, "a", true},
		{Event{Kind: KeyDown, Key: "v", Mods: ModCtrl, Text: "v"}, "", false},
		{Event{Kind: KeyDown, Key: KeyBackspace, Text: "\b"}, "", false},
		{Event{Kind: KeyDown, Key: "lshift"}, "", false},
	}
	for _, tt := range tests {
		got, ok := tt.e.Printable()
		if got != tt.want || ok != tt.ok {
			t.Errorf("%+v.Printable() = %q, %v", tt.e, got, ok)
		}
	}
}

func TestType(t *testing.T) {
	events := Type("Hi there")
	if len(events) != 8 {
		t.Fatalf("len = %d", len(events))
	}
	if events[0].Key != "h" || events[0].Mods != ModShift || events[0].Text != "H" {
		t.Fatalf("first = %+v", events[0])
	}
	if events[2].Key != KeySpace || events[2].Text != " " {
		t.Fatalf("space = %+v", events[2])
	}
}
