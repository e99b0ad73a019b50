package input

import (
	"strconv"

	"focusgate/internal/gate"
)

// Decider is the gate consulted before every query.
type Decider interface {
	Decide(q gate.Query) gate.Verdict
}

// Gated wraps a Source so that every query first asks a Decider. A blocked
// query returns false (or 0 for axes) and never reaches the inner Source, so
// nothing is consumed or latched there.
type Gated struct {
	inner Source
	gate  Decider
}

var _ Source = (*Gated)(nil)

// NewGated returns inner gated by d.
func NewGated(inner Source, d Decider) *Gated {
	return &Gated{inner: inner, gate: d}
}

// Inner returns the wrapped source.
func (g *Gated) Inner() Source { return g.inner }

func (g *Gated) blocked(kind QueryKind, arg string) bool {
	return g.gate.Decide(gate.Query{
		Name: kind.String(),
		Arg:  arg,
		Edge: kind.Edge(),
	}).Block
}

func (g *Gated) KeyPressed(k Key) bool {
	if g.blocked(KindKeyPressed, string(k)) {
		return false
	}
	return g.inner.KeyPressed(k)
}

func (g *Gated) KeyJustPressed(k Key) bool {
	if g.blocked(KindKeyJustPressed, string(k)) {
		return false
	}
	return g.inner.KeyJustPressed(k)
}

func (g *Gated) KeyJustReleased(k Key) bool {
	if g.blocked(KindKeyJustReleased, string(k)) {
		return false
	}
	return g.inner.KeyJustReleased(k)
}

func (g *Gated) MouseButtonPressed(button int) bool {
	if g.blocked(KindMouseButtonPressed, strconv.Itoa(button)) {
		return false
	}
	return g.inner.MouseButtonPressed(button)
}

func (g *Gated) MouseButtonJustPressed(button int) bool {
	if g.blocked(KindMouseButtonJustPressed, strconv.Itoa(button)) {
		return false
	}
	return g.inner.MouseButtonJustPressed(button)
}

func (g *Gated) MouseButtonJustReleased(button int) bool {
	if g.blocked(KindMouseButtonJustReleased, strconv.Itoa(button)) {
		return false
	}
	return g.inner.MouseButtonJustReleased(button)
}

func (g *Gated) ButtonPressed(name string) bool {
	if g.blocked(KindButtonPressed, name) {
		return false
	}
	return g.inner.ButtonPressed(name)
}

func (g *Gated) ButtonJustPressed(name string) bool {
	if g.blocked(KindButtonJustPressed, name) {
		return false
	}
	return g.inner.ButtonJustPressed(name)
}

func (g *Gated) ButtonJustReleased(name string) bool {
	if g.blocked(KindButtonJustReleased, name) {
		return false
	}
	return g.inner.ButtonJustReleased(name)
}

func (g *Gated) Axis(name string) float64 {
	if g.blocked(KindAxis, name) {
		return 0
	}
	return g.inner.Axis(name)
}

func (g *Gated) AxisRaw(name string) float64 {
	if g.blocked(KindAxisRaw, name) {
		return 0
	}
	return g.inner.AxisRaw(name)
}

func (g *Gated) AnyKey() bool {
	if g.blocked(KindAnyKey, "") {
		return false
	}
	return g.inner.AnyKey()
}

func (g *Gated) AnyKeyJustPressed() bool {
	if g.blocked(KindAnyKeyJustPressed, "") {
		return false
	}
	return g.inner.AnyKeyJustPressed()
}

// Query calls the Source method identified by kind with arg and returns its
// result as a float (1 for true). arg is ignored by no-argument kinds and
// parsed as an integer by mouse kinds. Tooling and tests use it to sweep the
// whole surface.
func Query(src Source, kind QueryKind, arg string) float64 {
	b := func(v bool) float64 {
		if v {
			return 1
		}
		return 0
	}
	idx, _ := strconv.Atoi(arg)
	switch kind {
	case KindKeyPressed:
		return b(src.KeyPressed(Key(arg)))
	case KindKeyJustPressed:
		return b(src.KeyJustPressed(Key(arg)))
	case KindKeyJustReleased:
		return b(src.KeyJustReleased(Key(arg)))
	case KindMouseButtonPressed:
		return b(src.MouseButtonPressed(idx))
	case KindMouseButtonJustPressed:
		return b(src.MouseButtonJustPressed(idx))
	case KindMouseButtonJustReleased:
		return b(src.MouseButtonJustReleased(idx))
	case KindButtonPressed:
		return b(src.ButtonPressed(arg))
	case KindButtonJustPressed:
		return b(src.ButtonJustPressed(arg))
	case KindButtonJustReleased:
		return b(src.ButtonJustReleased(arg))
	case KindAxis:
		return src.Axis(arg)
	case KindAxisRaw:
		return src.AxisRaw(arg)
	case KindAnyKey:
		return b(src.AnyKey())
	case KindAnyKeyJustPressed:
		return b(src.AnyKeyJustPressed())
	}
	return 0
}
