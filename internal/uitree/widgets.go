package uitree

// Canvas is a top-level drawing surface.
type Canvas struct {
	Order int
}

func (c *Canvas) SortOrder() int { return c.Order }

// Text is a text label component.
type Text struct {
	Value string
}

func (t *Text) Text() string { return t.Value }

// Button is a clickable, selectable control. Listeners run on click or submit
// while the button is enabled and interactable.
type Button struct {
	interactable bool
	enabled      bool
	listeners    []func()
}

// NewButton returns an enabled, interactable button with the given listeners.
func NewButton(listeners ...func()) *Button {
	return &Button{
		interactable: true,
		enabled:      true,
		listeners:    listeners,
	}
}

// OnClick registers an activation listener.
func (b *Button) OnClick(fn func()) { b.listeners = append(b.listeners, fn) }

// Listeners returns the number of registered listeners.
func (b *Button) Listeners() int { return len(b.listeners) }

func (b *Button) Interactable() bool     { return b.interactable }
func (b *Button) SetInteractable(v bool) { b.interactable = v }
func (b *Button) ClearListeners()        { b.listeners = nil }
func (b *Button) Enabled() bool          { return b.enabled }
func (b *Button) SetEnabled(v bool)      { b.enabled = v }
func (b *Button) HandleSubmit() bool     { return b.fire() }
func (b *Button) HandleClick() bool      { return b.fire() }

func (b *Button) fire() bool {
	if !b.enabled || !b.interactable {
		return false
	}
	for _, fn := range b.listeners {
		fn()
	}
	return len(b.listeners) > 0
}

// Collider is a rectangular hit-test area.
type Collider struct {
	X, Y, W, H float64
	enabled    bool
}

// NewCollider returns an enabled collider.
func NewCollider(x, y, w, h float64) *Collider {
	return &Collider{X: x, Y: y, W: w, H: h, enabled: true}
}

func (c *Collider) Enabled() bool     { return c.enabled }
func (c *Collider) SetEnabled(v bool) { c.enabled = v }

func (c *Collider) HitTest(x, y float64) bool {
	if !c.enabled {
		return false
	}
	return x >= c.X && x < c.X+c.W && y >= c.Y && y < c.Y+c.H
}

// LayoutHints holds the sizing hints a layout group reads.
type LayoutHints struct {
	Ignore    bool
	Preferred float64
	Min       float64
	Flexible  float64
}

func (l *LayoutHints) SetIgnoreLayout(v bool)       { l.Ignore = v }
func (l *LayoutHints) SetPreferredExtent(v float64) { l.Preferred = v }
func (l *LayoutHints) SetMinExtent(v float64)       { l.Min = v }
func (l *LayoutHints) SetFlexibleExtent(v float64)  { l.Flexible = v }

// Rect is an element's layout box.
type Rect struct {
	X, Y          float64
	Width, Height float64
	Axis          Axis
}

func (r *Rect) GrowthAxis() Axis { return r.Axis }

func (r *Rect) SetExtent(axis Axis, v float64) {
	if axis == Horizontal {
		r.Width = v
		return
	}
	r.Height = v
}

// Extent returns the box size along axis.
func (r *Rect) Extent(axis Axis) float64 {
	if axis == Horizontal {
		return r.Width
	}
	return r.Height
}

// Stack lays its children out one after another along Axis.
type Stack struct {
	Axis    Axis
	Spacing float64
}

// Arrange positions the active children of e that carry a Rect. Children
// marked ignore-layout keep their position but take no space.
func (s *Stack) Arrange(e *Element) {
	origin, _ := ComponentOf[*Rect](e)
	var cursor float64
	if origin != nil {
		if s.Axis == Horizontal {
			cursor = origin.X
		} else {
			cursor = origin.Y
		}
	}
	placed := 0
	for _, c := range e.children {
		if !c.active {
			continue
		}
		if hints, ok := ComponentOf[*LayoutHints](c); ok && hints.Ignore {
			continue
		}
		r, ok := ComponentOf[*Rect](c)
		if !ok {
			continue
		}
		if placed > 0 {
			cursor += s.Spacing
		}
		size := r.Extent(s.Axis)
		if hints, ok := ComponentOf[*LayoutHints](c); ok && hints.Preferred > size {
			size = hints.Preferred
		}
		if s.Axis == Horizontal {
			r.X = cursor
		} else {
			r.Y = cursor
		}
		cursor += size
		placed++
	}
}

// Activate runs the click path of n: every ClickHandler on the node fires
// when the node is active in the hierarchy. It reports whether any handler
// did something.
func Activate(n Node) bool {
	if !ActiveInHierarchy(n) {
		return false
	}
	handled := false
	for _, c := range n.Components() {
		if h, ok := c.(ClickHandler); ok && h.HandleClick() {
			handled = true
		}
	}
	return handled
}
