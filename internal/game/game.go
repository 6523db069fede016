// Package game runs the frame loop: it routes input to the menu, the player
// and the dialogue, and publishes one Frame per tick for the renderer.
package game

import (
	"context"
	"strings"
	"time"

	log "log/slog"

	"venture/internal/conversation"
	"venture/internal/input"
	"venture/internal/proximity"
	"venture/internal/world"
)

const (
	FrameRate = 60

	Title    = "Venture Builder AI"
	Subtitle = "Our Digital Employees"

	typeRate = 15 // title characters per second
)

// Dialogue is the conversation as seen by the frame loop.
type Dialogue interface {
	Active() bool
	StartConversation(ctx context.Context, npc proximity.Role, pos world.Vec3)
	HandleInput(e input.Event)
	Update()
	Render() *conversation.Overlay
	Close()
}

// Publisher receives every rendered frame.
type Publisher interface {
	Publish(f Frame)
}

type PublisherFunc func(Frame)

func (f PublisherFunc) Publish(fr Frame) { f(fr) }

type MenuFrame struct {
	Title         string  `json:"title"`
	Subtitle      string  `json:"subtitle"`
	SubtitleAlpha float64 `json:"subtitle_alpha"`
	ShowPrompt    bool    `json:"show_prompt"`
}

type Frame struct {
	Seq     uint64                `json:"seq"`
	Menu    *MenuFrame            `json:"menu,omitempty"`
	Player  world.Player          `json:"player"`
	NPCs    []proximity.NPC       `json:"npcs"`
	Nearby  proximity.Role        `json:"nearby,omitempty"`
	Prompt  string                `json:"prompt,omitempty"`
	Overlay *conversation.Overlay `json:"overlay,omitempty"`
}

type Game struct {
	dlg    Dialogue
	prox   *proximity.Controller
	player *world.Player

	now       func() time.Time
	menu      bool
	menuStart time.Time
	held      map[input.Key]bool
	seq       uint64
}

func New(dlg Dialogue, prox *proximity.Controller) *Game {
	g := &Game{
		dlg:    dlg,
		prox:   prox,
		player: world.NewPlayer(),
		now:    time.Now,
		menu:   true,
		held:   make(map[input.Key]bool),
	}
	g.menuStart = g.now()
	return g
}

// Run processes events and ticks frames until ctx is done, the event
// channel closes, or the player quits.
func (g *Game) Run(ctx context.Context, events <-chan input.Event, pub Publisher) error {
	tick := time.NewTicker(time.Second / FrameRate)
	defer tick.Stop()
	defer g.dlg.Close()

	log.Info("Game loop started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if g.Handle(ctx, e) {
				log.Info("Quit requested")
				return nil
			}
		case <-tick.C:
			g.Step()
			pub.Publish(g.Frame())
		}
	}
}

// revealed reports whether the title animation has finished and Enter
// may leave the menu.
func (g *Game) revealed() bool {
	reveal := time.Duration((float64(len(Title))/typeRate + 1) * float64(time.Second))
	return g.now().Sub(g.menuStart) > reveal
}

// Handle applies one event and reports whether the game should quit.
func (g *Game) Handle(ctx context.Context, e input.Event) bool {
	if e.Kind == input.Quit {
		return true
	}

	if g.menu {
		switch {
		case e.Is(input.KeyEnter) && g.revealed():
			g.menu = false
		case e.Is(input.KeyEscape), e.With("q", input.ModShift):
			return true
		}
		return false
	}

	switch e.Kind {
	case input.KeyUp:
		g.held[heldKey(e.Key)] = false
		return false
	case input.MouseMotion:
		g.player.Rotate(e.DX, e.DY)
		return false
	case input.MouseDown:
		g.dlg.HandleInput(e)
		return false
	case input.KeyDown:
		// Keys typed into a chat never walk the player.
		if !g.dlg.Active() {
			g.held[heldKey(e.Key)] = true
		}
	}

	switch {
	case e.Is(input.KeyEscape):
		if !g.dlg.Active() {
			return true
		}
		g.dlg.HandleInput(e)
		if !g.dlg.Active() {
			clear(g.held)
		}
		return false
	case e.With("q", input.ModShift):
		return true
	case e.Is(input.KeyTab):
		g.interact(ctx)
		return false
	}

	if g.dlg.Active() {
		g.dlg.HandleInput(e)
	}
	return false
}

func heldKey(k input.Key) input.Key {
	return input.Key(strings.ToLower(string(k)))
}

func (g *Game) interact(ctx context.Context) {
	npc, ok := g.prox.Nearby()
	if !ok || g.dlg.Active() {
		return
	}
	log.Info("Starting conversation", "npc", npc)
	clear(g.held)
	g.dlg.StartConversation(ctx, npc, g.player.Pos)
}

var moves = []struct {
	key    input.Key
	dx, dz float64
}{
	{"w", 0, -1},
	{"s", 0, 1},
	{"a", -1, 0},
	{"d", 1, 0},
}

// Step advances one frame: movement, proximity and dialogue results.
func (g *Game) Step() {
	g.seq++
	if g.menu {
		return
	}

	if !g.dlg.Active() {
		for _, m := range moves {
			if g.held[m.key] {
				g.player.Move(m.dx, m.dz)
			}
		}
	}
	g.prox.Update(g.player.Pos)
	g.dlg.Update()
}

// Frame snapshots the state the renderer draws.
func (g *Game) Frame() Frame {
	f := Frame{
		Seq:    g.seq,
		Player: *g.player,
		NPCs:   g.prox.NPCs(),
	}

	if g.menu {
		f.Menu = g.menuFrame()
		return f
	}

	if npc, ok := g.prox.Nearby(); ok {
		f.Nearby = npc
		if !g.dlg.Active() {
			f.Prompt = "Press TAB to talk to " + string(npc)
		}
	}
	f.Overlay = g.dlg.Render()
	return f
}

func (g *Game) menuFrame() *MenuFrame {
	elapsed := g.now().Sub(g.menuStart).Seconds()
	typed := float64(len(Title)) / typeRate

	m := &MenuFrame{
		Title:    Title[:min(len(Title), int(elapsed*typeRate))],
		Subtitle: Subtitle,
	}
	if elapsed > typed {
		m.SubtitleAlpha = min(1, elapsed-typed)
	}
	if elapsed > typed+1 {
		m.ShowPrompt = int(elapsed*2)%2 == 1
	}
	return m
}
