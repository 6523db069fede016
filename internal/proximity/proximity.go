// Package proximity tracks which NPC the player is close enough to talk to.
package proximity

import (
	"math"

	"venture/internal/world"
)

// Role identifies an NPC.
type Role string

const (
	HR  Role = "HR"
	CEO Role = "CEO"
)

const InteractionDistance = 2.0

type NPC struct {
	Role Role       `json:"role"`
	Pos  world.Vec3 `json:"pos"`
}

// DefaultNPCs returns the office staff in priority order.
func DefaultNPCs() []NPC {
	return []NPC{
		{Role: HR, Pos: world.Vec3{X: -3.3, Y: 0.65, Z: -2}},
		{Role: CEO, Pos: world.Vec3{X: 3.3, Y: 0.65, Z: 1}},
	}
}

// Controller reports the first NPC, in list order, within interaction
// distance of the player on the floor plane.
type Controller struct {
	npcs     []NPC
	distance float64
	nearby   Role
}

func NewController(npcs []NPC) *Controller {
	return &Controller{npcs: npcs, distance: InteractionDistance}
}

func (c *Controller) NPCs() []NPC { return c.npcs }

// Update recomputes the nearby NPC for the player position.
func (c *Controller) Update(pos world.Vec3) {
	c.nearby = ""
	for _, n := range c.npcs {
		if math.Hypot(pos.X-n.Pos.X, pos.Z-n.Pos.Z) < c.distance {
			c.nearby = n.Role
			return
		}
	}
}

// Nearby returns the NPC in range, if any.
func (c *Controller) Nearby() (Role, bool) {
	return c.nearby, c.nearby != ""
}

// CanInteract reports whether a conversation may start.
func (c *Controller) CanInteract(sessionActive bool) bool {
	return c.nearby != "" && !sessionActive
}
