package proximity

import (
	"testing"

	"venture/internal/world"
)

func TestUpdate(t *testing.T) {
	tests := []struct {
		name string
		pos  world.Vec3
		want Role
	}{
		{"spawn", world.Vec3{X: 0, Y: 0.5, Z: 0}, ""},
		{"next to HR", world.Vec3{X: -2.5, Y: 0.5, Z: -1.5}, HR},
		{"next to CEO", world.Vec3{X: 2, Y: 0.5, Z: 1}, CEO},
		{"height ignored", world.Vec3{X: 3.3, Y: 40, Z: 1}, CEO},
		{"just out of range", world.Vec3{X: 1.2, Y: 0.5, Z: 1}, ""},
	}
	for _, tt := range tests {
		c := NewController(DefaultNPCs())
		c.Update(tt.pos)
		got, ok := c.Nearby()
		if got != tt.want || ok != (tt.want != "") {
			t.Errorf("%s: Nearby() = %q, %v; want %q", tt.name, got, ok, tt.want)
		}
	}
}

func TestHRCheckedFirst(t *testing.T) {
	c := NewController([]NPC{
		{Role: HR, Pos: world.Vec3{X: 1}},
		{Role: CEO, Pos: world.Vec3{X: -0.5}},
	})
	c.Update(world.Vec3{})
	if got, _ := c.Nearby(); got != HR {
		t.Fatalf("Nearby() = %q, want HR", got)
	}
}

func TestCanInteract(t *testing.T) {
	c := NewController(DefaultNPCs())
	c.Update(world.Vec3{})
	if c.CanInteract(false) {
		t.Fatal("no NPC nearby, interaction allowed")
	}

	c.Update(world.Vec3{X: -3, Z: -2})
	if !c.CanInteract(false) {
		t.Fatal("HR nearby, interaction refused")
	}
	if c.CanInteract(true) {
		t.Fatal("interaction allowed during a session")
	}
}
