package ebitenhost

import (
	"fmt"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"

	"focusgate/internal/config"
)

// ParseKey resolves an ebiten key name such as "Space", "Enter" or
// "ArrowLeft". Matching is case-insensitive.
func ParseKey(name string) (ebiten.Key, error) {
	var k ebiten.Key
	if err := k.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown key %q: %w", name, err)
	}
	return k, nil
}

// ButtonBinding is a resolved logical button.
type ButtonBinding struct {
	Keys         []ebiten.Key
	MouseButtons []ebiten.MouseButton
}

// AxisBinding is a resolved logical axis.
type AxisBinding struct {
	Negative    []ebiten.Key
	Positive    []ebiten.Key
	Sensitivity float64
}

// Bindings maps logical button and axis names to physical inputs.
type Bindings struct {
	Buttons map[string]ButtonBinding
	Axes    map[string]AxisBinding
}

// NewBindings resolves the key names in cfg.
func NewBindings(cfg config.BindingsConfig) (*Bindings, error) {
	b := &Bindings{
		Buttons: make(map[string]ButtonBinding, len(cfg.Buttons)),
		Axes:    make(map[string]AxisBinding, len(cfg.Axes)),
	}
	for _, name := range sortedNames(cfg.Buttons) {
		raw := cfg.Buttons[name]
		keys, err := parseKeys(raw.Keys)
		if err != nil {
			return nil, fmt.Errorf("button %s: %w", name, err)
		}
		bb := ButtonBinding{Keys: keys}
		for _, m := range raw.MouseButtons {
			if m < 0 || m >= len(mouseButtons) {
				return nil, fmt.Errorf("button %s: mouse button %d out of range", name, m)
			}
			bb.MouseButtons = append(bb.MouseButtons, mouseButtons[m])
		}
		b.Buttons[name] = bb
	}
	for _, name := range sortedNames(cfg.Axes) {
		raw := cfg.Axes[name]
		neg, err := parseKeys(raw.Negative)
		if err != nil {
			return nil, fmt.Errorf("axis %s: %w", name, err)
		}
		pos, err := parseKeys(raw.Positive)
		if err != nil {
			return nil, fmt.Errorf("axis %s: %w", name, err)
		}
		b.Axes[name] = AxisBinding{Negative: neg, Positive: pos, Sensitivity: raw.Sensitivity}
	}
	return b, nil
}

func parseKeys(names []string) ([]ebiten.Key, error) {
	keys := make([]ebiten.Key, 0, len(names))
	for _, n := range names {
		k, err := ParseKey(n)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// sortedNames keeps error messages stable across runs.
func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
