package ebitenhost

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"focusgate/internal/gate"
	"focusgate/internal/input"
)

// Source answers input.Source queries from a Device.
//
// ebiten has no way to clear its own input state, so Flush latches whatever
// is held at that moment instead: a latched key or mouse button reads as up
// until it is physically released. A key held while the window was in the
// background therefore cannot register as held, or as a fresh press, when
// focus returns.
type Source struct {
	dev      Device
	bindings *Bindings
	logger   *slog.Logger

	mu       sync.Mutex
	keys     map[input.Key]ebiten.Key
	unknown  map[input.Key]bool
	latched  map[ebiten.Key]bool
	latchedM map[ebiten.MouseButton]bool
	axes     map[string]float64
}

var (
	_ input.Source = (*Source)(nil)
	_ gate.Flusher = (*Source)(nil)
)

// NewSource creates a Source reading dev through bindings.
func NewSource(dev Device, bindings *Bindings, logger *slog.Logger) *Source {
	if bindings == nil {
		bindings = &Bindings{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		dev:      dev,
		bindings: bindings,
		logger:   logger.With("component", "ebiten_input"),
		keys:     make(map[input.Key]ebiten.Key),
		unknown:  make(map[input.Key]bool),
		latched:  make(map[ebiten.Key]bool),
		latchedM: make(map[ebiten.MouseButton]bool),
		axes:     make(map[string]float64),
	}
}

// EngineFocused reports the engine's focus flag.
func (s *Source) EngineFocused() bool { return s.dev.Focused() }

// Flush latches every held key and mouse button.
func (s *Source) Flush() error {
	held := s.dev.AppendPressedKeys(nil)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range held {
		s.latched[k] = true
	}
	for _, b := range mouseButtons {
		if s.dev.MouseButtonPressed(b) {
			s.latchedM[b] = true
		}
	}
	for name := range s.axes {
		s.axes[name] = 0
	}
	return nil
}

// Latched returns how many keys and buttons are waiting for release.
func (s *Source) Latched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.latched) + len(s.latchedM)
}

// Update runs once per frame, before any query. It drops latches whose input
// has been released and moves smoothed axes toward their raw value.
func (s *Source) Update(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.latched {
		if !s.dev.KeyPressed(k) && !s.dev.KeyJustReleased(k) {
			delete(s.latched, k)
		}
	}
	for b := range s.latchedM {
		if !s.dev.MouseButtonPressed(b) && !s.dev.MouseButtonJustReleased(b) {
			delete(s.latchedM, b)
		}
	}

	for name, ax := range s.bindings.Axes {
		raw := s.rawAxisLocked(ax)
		cur := s.axes[name]
		if ax.Sensitivity <= 0 {
			s.axes[name] = raw
			continue
		}
		step := ax.Sensitivity * dt.Seconds()
		if math.Abs(raw-cur) <= step {
			s.axes[name] = raw
		} else if raw > cur {
			s.axes[name] = cur + step
		} else {
			s.axes[name] = cur - step
		}
	}
}

func (s *Source) key(k input.Key) (ebiten.Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ek, ok := s.keys[k]; ok {
		return ek, true
	}
	if s.unknown[k] {
		return 0, false
	}
	ek, err := ParseKey(string(k))
	if err != nil {
		s.unknown[k] = true
		s.logger.Warn("unknown key queried", "key", string(k))
		return 0, false
	}
	s.keys[k] = ek
	return ek, true
}

func (s *Source) isLatched(k ebiten.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latched[k]
}

func (s *Source) isLatchedMouse(b ebiten.MouseButton) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latchedM[b]
}

func (s *Source) keyPressed(k ebiten.Key) bool {
	return !s.isLatched(k) && s.dev.KeyPressed(k)
}

func (s *Source) keyJustPressed(k ebiten.Key) bool {
	return !s.isLatched(k) && s.dev.KeyJustPressed(k)
}

func (s *Source) keyJustReleased(k ebiten.Key) bool {
	return !s.isLatched(k) && s.dev.KeyJustReleased(k)
}

func (s *Source) KeyPressed(k input.Key) bool {
	ek, ok := s.key(k)
	return ok && s.keyPressed(ek)
}

func (s *Source) KeyJustPressed(k input.Key) bool {
	ek, ok := s.key(k)
	return ok && s.keyJustPressed(ek)
}

func (s *Source) KeyJustReleased(k input.Key) bool {
	ek, ok := s.key(k)
	return ok && s.keyJustReleased(ek)
}

func mouseButton(i int) (ebiten.MouseButton, bool) {
	if i < 0 || i >= len(mouseButtons) {
		return 0, false
	}
	return mouseButtons[i], true
}

func (s *Source) mousePressed(b ebiten.MouseButton) bool {
	return !s.isLatchedMouse(b) && s.dev.MouseButtonPressed(b)
}

func (s *Source) mouseJustPressed(b ebiten.MouseButton) bool {
	return !s.isLatchedMouse(b) && s.dev.MouseButtonJustPressed(b)
}

func (s *Source) mouseJustReleased(b ebiten.MouseButton) bool {
	return !s.isLatchedMouse(b) && s.dev.MouseButtonJustReleased(b)
}

func (s *Source) MouseButtonPressed(button int) bool {
	b, ok := mouseButton(button)
	return ok && s.mousePressed(b)
}

func (s *Source) MouseButtonJustPressed(button int) bool {
	b, ok := mouseButton(button)
	return ok && s.mouseJustPressed(b)
}

func (s *Source) MouseButtonJustReleased(button int) bool {
	b, ok := mouseButton(button)
	return ok && s.mouseJustReleased(b)
}

// button reports whether any input bound to name satisfies the key or mouse
// predicate.
func (s *Source) button(name string, key func(ebiten.Key) bool, mouse func(ebiten.MouseButton) bool) bool {
	bb, ok := s.bindings.Buttons[name]
	if !ok {
		return false
	}
	for _, k := range bb.Keys {
		if key(k) {
			return true
		}
	}
	for _, b := range bb.MouseButtons {
		if mouse(b) {
			return true
		}
	}
	return false
}

func (s *Source) ButtonPressed(name string) bool {
	return s.button(name, s.keyPressed, s.mousePressed)
}

func (s *Source) ButtonJustPressed(name string) bool {
	return s.button(name, s.keyJustPressed, s.mouseJustPressed)
}

func (s *Source) ButtonJustReleased(name string) bool {
	return s.button(name, s.keyJustReleased, s.mouseJustReleased)
}

func (s *Source) Axis(name string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.axes[name]
}

func (s *Source) AxisRaw(name string) float64 {
	ax, ok := s.bindings.Axes[name]
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rawAxisLocked(ax)
}

func (s *Source) rawAxisLocked(ax AxisBinding) float64 {
	held := func(keys []ebiten.Key) bool {
		for _, k := range keys {
			if !s.latched[k] && s.dev.KeyPressed(k) {
				return true
			}
		}
		return false
	}
	v := 0.0
	if held(ax.Positive) {
		v++
	}
	if held(ax.Negative) {
		v--
	}
	return v
}

func (s *Source) AnyKey() bool {
	for _, k := range s.dev.AppendPressedKeys(nil) {
		if !s.isLatched(k) {
			return true
		}
	}
	for _, b := range mouseButtons {
		if s.mousePressed(b) {
			return true
		}
	}
	return false
}

func (s *Source) AnyKeyJustPressed() bool {
	for _, k := range s.dev.AppendJustPressedKeys(nil) {
		if !s.isLatched(k) {
			return true
		}
	}
	for _, b := range mouseButtons {
		if s.mouseJustPressed(b) {
			return true
		}
	}
	return false
}
