// Package world holds the player's pose and the room it moves in.
package world

import "math"

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

const (
	Speed            = 0.3
	MouseSensitivity = 0.5
	RoomLimit        = 4.5
)

// Player is the first-person camera. Yaw is in degrees.
type Player struct {
	Pos Vec3    `json:"pos"`
	Yaw float64 `json:"yaw"`
}

func NewPlayer() *Player {
	return &Player{Pos: Vec3{0, 0.5, 0}}
}

// Move steps the player by (dx, dz) in view space. Each axis is rejected
// separately when it would leave the room.
func (p *Player) Move(dx, dz float64) {
	a := -p.Yaw * math.Pi / 180
	sin, cos := math.Sincos(a)

	x := p.Pos.X + (dx*cos+dz*sin)*Speed
	z := p.Pos.Z + (-dx*sin+dz*cos)*Speed

	if math.Abs(x) < RoomLimit {
		p.Pos.X = x
	}
	if math.Abs(z) < RoomLimit {
		p.Pos.Z = z
	}
}

// Rotate turns the view by a mouse delta. Pitch is fixed.
func (p *Player) Rotate(dx, _ float64) {
	p.Yaw += dx * MouseSensitivity
}
