// Package input is the HID query surface a host calls every frame, and the
// gated wrapper that routes each query through the focus gate.
package input

// Key names a keyboard key, e.g. "Space", "Enter", "A".
type Key string

// Source is the real query surface of the host's input system.
type Source interface {
	KeyPressed(k Key) bool
	KeyJustPressed(k Key) bool
	KeyJustReleased(k Key) bool

	MouseButtonPressed(button int) bool
	MouseButtonJustPressed(button int) bool
	MouseButtonJustReleased(button int) bool

	// Named logical buttons ("Submit", "Cancel", "Jump") resolved through
	// the host's bindings.
	ButtonPressed(name string) bool
	ButtonJustPressed(name string) bool
	ButtonJustReleased(name string) bool

	// Axis returns a smoothed value in [-1, 1]; AxisRaw is unsmoothed.
	Axis(name string) float64
	AxisRaw(name string) float64

	AnyKey() bool
	AnyKeyJustPressed() bool
}

// QueryKind identifies one Source method.
type QueryKind int

const (
	KindKeyPressed QueryKind = iota
	KindKeyJustPressed
	KindKeyJustReleased
	KindMouseButtonPressed
	KindMouseButtonJustPressed
	KindMouseButtonJustReleased
	KindButtonPressed
	KindButtonJustPressed
	KindButtonJustReleased
	KindAxis
	KindAxisRaw
	KindAnyKey
	KindAnyKeyJustPressed
)

var kindNames = [...]string{
	KindKeyPressed:              "KeyPressed",
	KindKeyJustPressed:          "KeyJustPressed",
	KindKeyJustReleased:         "KeyJustReleased",
	KindMouseButtonPressed:      "MouseButtonPressed",
	KindMouseButtonJustPressed:  "MouseButtonJustPressed",
	KindMouseButtonJustReleased: "MouseButtonJustReleased",
	KindButtonPressed:           "ButtonPressed",
	KindButtonJustPressed:       "ButtonJustPressed",
	KindButtonJustReleased:      "ButtonJustReleased",
	KindAxis:                    "Axis",
	KindAxisRaw:                 "AxisRaw",
	KindAnyKey:                  "AnyKey",
	KindAnyKeyJustPressed:       "AnyKeyJustPressed",
}

func (k QueryKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Edge reports whether the query has rising-edge semantics. Releases, held
// state and axes are not edges.
func (k QueryKind) Edge() bool {
	switch k {
	case KindKeyJustPressed, KindMouseButtonJustPressed, KindButtonJustPressed, KindAnyKeyJustPressed:
		return true
	default:
		return false
	}
}

// Float reports whether the query returns an axis value.
func (k QueryKind) Float() bool {
	return k == KindAxis || k == KindAxisRaw
}

// Kinds returns every query kind in declaration order.
func Kinds() []QueryKind {
	out := make([]QueryKind, len(kindNames))
	for i := range out {
		out[i] = QueryKind(i)
	}
	return out
}
