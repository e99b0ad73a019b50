package main

import (
	"context"
	"fmt"
	"image/color"
	"slices"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"focusgate/internal/ebitenhost"
	"focusgate/internal/host"
	"focusgate/internal/uitree"
)

const (
	screenW   = 480
	screenH   = 320
	itemH     = 24
	menuX     = 40
	menuY     = 60
	menuWidth = 200
)

var (
	highlight = color.RGBA{0x30, 0x50, 0x90, 0xff}
	blockedBg = color.RGBA{0x60, 0x20, 0x20, 0xff}
)

type game struct {
	ctx context.Context
	rt  *host.Runtime
	src *ebitenhost.Source

	root  *uitree.Element
	menu  *uitree.Element
	list  *ebitenhost.ListMenu
	items []*uitree.Element

	selected int
	last     string
	quit     bool
	tick     time.Time
}

func newGame(ctx context.Context, rt *host.Runtime, src *ebitenhost.Source, useList bool) *game {
	g := &game{ctx: ctx, rt: rt, src: src, last: "-"}
	if useList {
		g.buildList()
	} else {
		g.buildButtons()
	}
	return g
}

// buildButtons makes a title screen whose items are real controls the
// built-in scan can see.
func (g *game) buildButtons() {
	g.menu = uitree.NewElement("Menu",
		&uitree.Rect{X: menuX, Y: menuY, Axis: uitree.Vertical},
		&uitree.Stack{Axis: uitree.Vertical, Spacing: 4},
	)
	for _, it := range []struct{ id, label string }{
		{"Continue", "Continue"},
		{"NewGame", "New Game"},
		{"Options", "Options"},
		{"Quit", "Quit"},
	} {
		label := it.label
		e := uitree.NewElement(it.id,
			uitree.NewButton(func() { g.choose(label) }),
			&uitree.Rect{X: menuX, Width: menuWidth, Height: itemH, Axis: uitree.Vertical},
			&uitree.LayoutHints{Preferred: itemH},
		).Add(uitree.NewElement("Label", &uitree.Text{Value: label}))
		g.menu.Add(e)
		g.items = append(g.items, e)
	}
	g.root = uitree.NewElement("TitleScreen", &uitree.Canvas{}).Add(g.menu)
}

// buildList makes a title screen drawn by a ListMenu, which only the
// "ebiten-list" trimmer can trim.
func (g *game) buildList() {
	g.list = ebitenhost.NewListMenu("Continue", "New Game", "Options", "Quit")
	g.list.LineHeight = itemH
	for i := range g.list.Items {
		label := g.list.Items[i].Label
		g.list.Items[i].OnSelect = func() { g.choose(label) }
	}
	g.root = uitree.NewElement("TitleScreen", &uitree.Canvas{}).Add(
		uitree.NewElement("Menu", g.list),
	)
}

func (g *game) choose(label string) {
	g.last = label
	if label == "Quit" {
		g.quit = true
	}
}

func (g *game) roots() []uitree.Node { return uitree.Roots(g.root) }

// Load is the scene-loaded hook.
func (g *game) Load() {
	g.rt.TreeLoaded(g.roots())
	g.layout()
}

func (g *game) layout() {
	if g.menu == nil {
		return
	}
	if s, ok := uitree.ComponentOf[*uitree.Stack](g.menu); ok {
		s.Arrange(g.menu)
	}
}

// visible returns the button items still shown.
func (g *game) visible() []*uitree.Element {
	var out []*uitree.Element
	for _, e := range g.items {
		if uitree.ActiveInHierarchy(e) {
			out = append(out, e)
		}
	}
	return out
}

func (g *game) Update() error {
	if g.quit || g.ctx.Err() != nil {
		return ebiten.Termination
	}
	now := time.Now()
	dt := time.Second / 60
	if !g.tick.IsZero() {
		dt = now.Sub(g.tick)
	}
	g.tick = now

	g.src.Update(dt)
	g.rt.Tick(g.roots())
	g.layout()

	in := g.rt.Input()
	move := 0
	if in.KeyJustPressed("ArrowDown") || in.KeyJustPressed("S") {
		move++
	}
	if in.KeyJustPressed("ArrowUp") || in.KeyJustPressed("W") {
		move--
	}
	submit := in.ButtonJustPressed("Submit")

	if g.list != nil {
		g.list.Move(move)
		if submit {
			g.list.HandleSubmit()
		}
		return nil
	}

	vis := g.visible()
	if len(vis) == 0 {
		return nil
	}
	g.selected = ((g.selected+move)%len(vis) + len(vis)) % len(vis)
	if submit {
		uitree.Activate(vis[g.selected])
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	snap := g.rt.Focus()
	if !snap.Attentive() {
		vector.DrawFilledRect(screen, 0, 0, screenW, 16, blockedBg, false)
	}

	if g.list != nil {
		if i := slices.Index(g.list.Visible(), g.list.Selected); i >= 0 {
			vector.DrawFilledRect(screen, menuX-4, float32(menuY+i*itemH-2), menuWidth, itemH-4, highlight, false)
		}
		g.list.Draw(screen, menuX, menuY)
	} else {
		for i, e := range g.visible() {
			r, ok := uitree.ComponentOf[*uitree.Rect](e)
			if !ok {
				continue
			}
			if i == g.selected {
				vector.DrawFilledRect(screen, float32(r.X-4), float32(r.Y), float32(r.Width), float32(r.Height), highlight, false)
			}
			if t, ok := uitree.FirstInSubtree[uitree.Label](e); ok {
				ebitenutil.DebugPrintAt(screen, t.Text(), int(r.X), int(r.Y)+4)
			}
		}
	}

	stats := g.rt.Stats()
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("os=%t engine=%t trimmed=%t",
		snap.OSForeground, snap.EngineFocused, g.rt.Latch().Patched()), 4, 0)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("passed=%d blocked=%d suppressed=%d latched=%d",
		stats.Passed, stats.Blocked, stats.Suppressed, g.src.Latched()), 4, screenH-36)
	ebitenutil.DebugPrintAt(screen, "last: "+g.last, 4, screenH-20)
}

func (g *game) Layout(int, int) (int, int) { return screenW, screenH }
