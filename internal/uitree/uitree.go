// Package uitree defines the UI tree surface that the menu trimmer reads and
// writes.
//
// A host exposes its retained UI as a tree of Nodes. Each node carries a list
// of components, and behaviour is discovered by capability: a component that
// implements Selectable is treated as a selectable control, one that
// implements HitTestable as a hit-test target, and so on. Nothing in this
// package or its callers switches on concrete component types, so host
// component kinds that did not exist when this code was written are still
// picked up as long as they implement the relevant capability.
//
// Element and the widgets in widgets.go are a small in-memory implementation
// used by the ebiten host adapter and by tests.
package uitree

// Node is a node of the host UI tree.
type Node interface {
	// Name is the node identifier (the game-object name in most engines).
	Name() string

	// Parent returns nil at a root.
	Parent() Node

	// Children returns the direct children, active or not.
	Children() []Node

	// Components returns the components attached to this node.
	Components() []any

	// Active reports whether the node itself is in the active set.
	Active() bool

	// SetActive adds or removes the node from the render/update set.
	SetActive(active bool)
}

// Toggleable is a component that can be enabled and disabled.
type Toggleable interface {
	Enabled() bool
	SetEnabled(enabled bool)
}

// Selectable is a control the user can select or click.
type Selectable interface {
	Interactable() bool
	SetInteractable(interactable bool)

	// ClearListeners drops every registered activation callback.
	ClearListeners()
}

// ClickHandler handles pointer clicks.
type ClickHandler interface {
	HandleClick() bool
}

// SubmitHandler handles submit (confirm) actions from keyboard or gamepad.
type SubmitHandler interface {
	HandleSubmit() bool
}

// HitTestable participates in pointer hit testing.
type HitTestable interface {
	HitTest(x, y float64) bool
}

// Label is a text label.
type Label interface {
	Text() string
}

// Surface marks a top-level drawing surface. Ancestor walks never cross one.
type Surface interface {
	SortOrder() int
}

// Axis is a layout axis.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// LayoutElement carries sizing hints read by a parent layout group.
type LayoutElement interface {
	SetIgnoreLayout(ignore bool)
	SetPreferredExtent(v float64)
	SetMinExtent(v float64)
	SetFlexibleExtent(v float64)
}

// SizeBox is the node's own layout box.
type SizeBox interface {
	// GrowthAxis is the axis along which the parent stacks this box.
	GrowthAxis() Axis
	SetExtent(axis Axis, v float64)
}
