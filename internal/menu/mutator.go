package menu

import (
	"fmt"
	"log/slog"

	"focusgate/internal/uitree"
)

// Mutator removes one menu item from a live tree: it strips every way to
// activate the item, collapses its layout footprint and deactivates it.
type Mutator struct {
	logger     *slog.Logger
	boundary   func(uitree.Node) bool
	capability func(uitree.Node) bool
}

// NewMutator returns a Mutator that stops ancestor walks at drawing surfaces
// and treats selectable or clickable nodes as interactive units.
func NewMutator(logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{
		logger:     logger.With("component", "menu_mutator"),
		boundary:   uitree.IsSurface,
		capability: uitree.IsInteractive,
	}
}

// Unit returns the interactive unit that owns n.
func (m *Mutator) Unit(n uitree.Node) uitree.Node {
	return uitree.EnclosingUnit(n, m.boundary, m.capability)
}

// unitOf is Unit for a single scan candidate: a node whose ancestor walk
// panics is reported and skipped.
func (m *Mutator) unitOf(n uitree.Node) (unit uitree.Node, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("menu item unit lookup failed",
				"node", safePath(n),
				"error", fmt.Sprint(r),
			)
			unit, ok = nil, false
		}
	}()
	return m.Unit(n), true
}

// Disable removes the unit enclosing n and returns 1, or 0 when n is nil or
// the unit could not be processed. Steps already applied are not rolled back.
func (m *Mutator) Disable(n uitree.Node) int {
	if n == nil {
		return 0
	}
	return m.disable(n, nil)
}

func (m *Mutator) disable(n, unit uitree.Node) (count int) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("menu item disable failed",
				"node", safePath(n),
				"error", fmt.Sprint(r),
			)
			count = 0
		}
	}()

	if unit == nil {
		unit = m.Unit(n)
	}

	// The matched control goes dead first, even if the sweep below trips
	// over something else in the unit.
	for _, c := range n.Components() {
		if sel, ok := c.(uitree.Selectable); ok {
			m.guard(n, c, func() {
				sel.SetInteractable(false)
				sel.ClearListeners()
			})
		}
	}

	stripped := 0
	uitree.Walk(unit, func(cur uitree.Node) bool {
		for _, c := range cur.Components() {
			if m.guard(cur, c, func() { strip(c) }) {
				stripped++
			}
		}
		return true
	})

	collapsed := 0
	uitree.Walk(unit, func(cur uitree.Node) bool {
		for _, c := range cur.Components() {
			le, ok := c.(uitree.LayoutElement)
			if !ok {
				continue
			}
			if m.guard(cur, c, func() {
				le.SetIgnoreLayout(true)
				le.SetPreferredExtent(0)
				le.SetMinExtent(0)
				le.SetFlexibleExtent(0)
			}) {
				collapsed++
			}
		}
		return true
	})
	if box, ok := uitree.ComponentOf[uitree.SizeBox](unit); ok {
		m.guard(unit, box, func() { box.SetExtent(box.GrowthAxis(), 0) })
	}

	unit.SetActive(false)

	m.logger.Info("menu item disabled",
		"node", safePath(n),
		"unit", safePath(unit),
		"components", stripped,
		"layout_elements", collapsed,
	)
	return 1
}

// strip disables every activation capability c carries.
func strip(c any) {
	tg, toggle := c.(uitree.Toggleable)
	if _, ok := c.(uitree.HitTestable); ok && toggle {
		tg.SetEnabled(false)
	}
	if sel, ok := c.(uitree.Selectable); ok {
		sel.SetInteractable(false)
		sel.ClearListeners()
	}
	_, click := c.(uitree.ClickHandler)
	_, submit := c.(uitree.SubmitHandler)
	if (click || submit) && toggle {
		tg.SetEnabled(false)
	}
}

// guard runs fn for component c of n, recovering a panic. It reports whether
// fn completed.
func (m *Mutator) guard(n uitree.Node, c any, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Debug("component step failed",
				"node", safePath(n),
				"component", fmt.Sprintf("%T", c),
				"error", fmt.Sprint(r),
			)
			ok = false
		}
	}()
	fn()
	return true
}

func safePath(n uitree.Node) (p string) {
	defer func() {
		if recover() != nil {
			p = "(invalid)"
		}
	}()
	return uitree.Path(n)
}
