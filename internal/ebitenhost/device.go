// Package ebitenhost adapts the focus gate to an ebiten game.
//
// Source is the real input.Source of an ebiten host: it answers key, mouse,
// named-button and axis queries from ebiten's per-frame input state and
// doubles as the gate's Flusher. ListMenu is a retained menu widget that
// draws its items itself; its trimmer is registered as "ebiten-list".
package ebitenhost

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Device is the raw per-frame input state. Live reads ebiten; tests supply
// their own.
type Device interface {
	KeyPressed(k ebiten.Key) bool
	KeyJustPressed(k ebiten.Key) bool
	KeyJustReleased(k ebiten.Key) bool

	MouseButtonPressed(b ebiten.MouseButton) bool
	MouseButtonJustPressed(b ebiten.MouseButton) bool
	MouseButtonJustReleased(b ebiten.MouseButton) bool

	// AppendPressedKeys appends every held key to dst.
	AppendPressedKeys(dst []ebiten.Key) []ebiten.Key

	// AppendJustPressedKeys appends every key pressed this frame to dst.
	AppendJustPressedKeys(dst []ebiten.Key) []ebiten.Key

	// Focused reports the engine's own window focus flag.
	Focused() bool
}

// mouseButtons are the buttons ebiten reports.
var mouseButtons = []ebiten.MouseButton{
	ebiten.MouseButtonLeft,
	ebiten.MouseButtonRight,
	ebiten.MouseButtonMiddle,
	ebiten.MouseButton3,
	ebiten.MouseButton4,
}

type liveDevice struct{}

// Live returns the Device backed by ebiten and inpututil. It is only
// meaningful inside a running game loop.
func Live() Device { return liveDevice{} }

func (liveDevice) KeyPressed(k ebiten.Key) bool      { return ebiten.IsKeyPressed(k) }
func (liveDevice) KeyJustPressed(k ebiten.Key) bool  { return inpututil.IsKeyJustPressed(k) }
func (liveDevice) KeyJustReleased(k ebiten.Key) bool { return inpututil.IsKeyJustReleased(k) }

func (liveDevice) MouseButtonPressed(b ebiten.MouseButton) bool {
	return ebiten.IsMouseButtonPressed(b)
}

func (liveDevice) MouseButtonJustPressed(b ebiten.MouseButton) bool {
	return inpututil.IsMouseButtonJustPressed(b)
}

func (liveDevice) MouseButtonJustReleased(b ebiten.MouseButton) bool {
	return inpututil.IsMouseButtonJustReleased(b)
}

func (liveDevice) AppendPressedKeys(dst []ebiten.Key) []ebiten.Key {
	return inpututil.AppendPressedKeys(dst)
}

func (liveDevice) AppendJustPressedKeys(dst []ebiten.Key) []ebiten.Key {
	return inpututil.AppendJustPressedKeys(dst)
}

func (liveDevice) Focused() bool { return ebiten.IsFocused() }
