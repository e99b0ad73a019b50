package ebitenhost

import (
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusgate/internal/config"
	"focusgate/internal/gate"
	"focusgate/internal/input"
	"focusgate/internal/menu"
	"focusgate/internal/uitree"
)

type fakeDevice struct {
	held      map[ebiten.Key]bool
	pressed   map[ebiten.Key]bool
	released  map[ebiten.Key]bool
	mouseHeld map[ebiten.MouseButton]bool
	mouseDown map[ebiten.MouseButton]bool
	focused   bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		held:      map[ebiten.Key]bool{},
		pressed:   map[ebiten.Key]bool{},
		released:  map[ebiten.Key]bool{},
		mouseHeld: map[ebiten.MouseButton]bool{},
		mouseDown: map[ebiten.MouseButton]bool{},
		focused:   true,
	}
}

// press holds k and marks it pressed this frame.
func (d *fakeDevice) press(k ebiten.Key) { d.held[k] = true; d.pressed[k] = true }

// release lets go of k this frame.
func (d *fakeDevice) release(k ebiten.Key) { delete(d.held, k); d.released[k] = true }

// frame ends the current frame's edges.
func (d *fakeDevice) frame() {
	d.pressed = map[ebiten.Key]bool{}
	d.released = map[ebiten.Key]bool{}
	d.mouseDown = map[ebiten.MouseButton]bool{}
}

func (d *fakeDevice) KeyPressed(k ebiten.Key) bool      { return d.held[k] }
func (d *fakeDevice) KeyJustPressed(k ebiten.Key) bool  { return d.pressed[k] }
func (d *fakeDevice) KeyJustReleased(k ebiten.Key) bool { return d.released[k] }

func (d *fakeDevice) MouseButtonPressed(b ebiten.MouseButton) bool     { return d.mouseHeld[b] }
func (d *fakeDevice) MouseButtonJustPressed(b ebiten.MouseButton) bool { return d.mouseDown[b] }
func (d *fakeDevice) MouseButtonJustReleased(ebiten.MouseButton) bool  { return false }

func (d *fakeDevice) AppendPressedKeys(dst []ebiten.Key) []ebiten.Key {
	for k := range d.held {
		dst = append(dst, k)
	}
	return dst
}

func (d *fakeDevice) AppendJustPressedKeys(dst []ebiten.Key) []ebiten.Key {
	for k := range d.pressed {
		dst = append(dst, k)
	}
	return dst
}

func (d *fakeDevice) Focused() bool { return d.focused }

func newTestSource(t *testing.T) (*Source, *fakeDevice) {
	t.Helper()
	b, err := NewBindings(config.DefaultConfig().Bindings)
	require.NoError(t, err)
	dev := newFakeDevice()
	return NewSource(dev, b, nil), dev
}

func TestParseKey(t *testing.T) {
	for name, want := range map[string]ebiten.Key{
		"Space":     ebiten.KeySpace,
		"enter":     ebiten.KeyEnter,
		"ArrowLeft": ebiten.KeyArrowLeft,
		"A":         ebiten.KeyA,
	} {
		got, err := ParseKey(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseKey("Hyper")
	assert.Error(t, err)
}

func TestNewBindingsRejectsBadInput(t *testing.T) {
	_, err := NewBindings(config.BindingsConfig{
		Buttons: map[string]config.ButtonBinding{"Fire": {Keys: []string{"NotAKey"}}},
	})
	assert.ErrorContains(t, err, "button Fire")

	_, err = NewBindings(config.BindingsConfig{
		Buttons: map[string]config.ButtonBinding{"Fire": {MouseButtons: []int{9}}},
	})
	assert.ErrorContains(t, err, "out of range")
}

func TestSourceKeysAndButtons(t *testing.T) {
	s, dev := newTestSource(t)

	dev.press(ebiten.KeyEnter)
	assert.True(t, s.KeyPressed("Enter"))
	assert.True(t, s.KeyJustPressed("enter"))
	assert.True(t, s.ButtonPressed("Submit"))
	assert.True(t, s.ButtonJustPressed("Submit"))
	assert.False(t, s.ButtonPressed("Cancel"))
	assert.False(t, s.ButtonPressed("Unbound"))
	assert.False(t, s.KeyPressed("NoSuchKey"))
	assert.True(t, s.AnyKey())
	assert.True(t, s.AnyKeyJustPressed())

	dev.frame()
	assert.True(t, s.KeyPressed("Enter"))
	assert.False(t, s.KeyJustPressed("Enter"))

	dev.release(ebiten.KeyEnter)
	assert.True(t, s.KeyJustReleased("Enter"))
	assert.True(t, s.ButtonJustReleased("Submit"))

	dev.mouseHeld[ebiten.MouseButtonLeft] = true
	dev.mouseDown[ebiten.MouseButtonLeft] = true
	assert.True(t, s.MouseButtonPressed(0))
	assert.True(t, s.MouseButtonJustPressed(0))
	assert.True(t, s.ButtonJustPressed("Submit"), "Submit is bound to the left button")
	assert.False(t, s.MouseButtonPressed(7))
}

func TestSourceAxes(t *testing.T) {
	s, dev := newTestSource(t)

	dev.held[ebiten.KeyD] = true
	assert.Equal(t, 1.0, s.AxisRaw("Horizontal"))
	assert.Zero(t, s.Axis("Horizontal"))

	s.Update(100 * time.Millisecond)
	assert.InDelta(t, 0.3, s.Axis("Horizontal"), 1e-9)
	s.Update(time.Second)
	assert.Equal(t, 1.0, s.Axis("Horizontal"))

	dev.held[ebiten.KeyArrowLeft] = true
	assert.Zero(t, s.AxisRaw("Horizontal"), "opposite keys cancel")

	delete(dev.held, ebiten.KeyD)
	assert.Equal(t, -1.0, s.AxisRaw("Horizontal"))
	assert.Zero(t, s.AxisRaw("Missing"))
}

func TestFlushLatchesHeldInput(t *testing.T) {
	s, dev := newTestSource(t)
	var _ gate.Flusher = s

	dev.held[ebiten.KeyW] = true
	dev.mouseHeld[ebiten.MouseButtonRight] = true
	s.Update(time.Second)
	require.Equal(t, 1.0, s.Axis("Vertical"))

	require.NoError(t, s.Flush())
	require.NoError(t, s.Flush())
	assert.Equal(t, 2, s.Latched())
	assert.Zero(t, s.Axis("Vertical"))

	// Still held when focus returns: reads as up.
	s.Update(16 * time.Millisecond)
	assert.False(t, s.KeyPressed("W"))
	assert.Zero(t, s.AxisRaw("Vertical"))
	assert.False(t, s.MouseButtonPressed(1))
	assert.False(t, s.AnyKey())

	// Released and pressed again: a real press.
	dev.release(ebiten.KeyW)
	s.Update(16 * time.Millisecond)
	assert.False(t, s.KeyJustReleased("W"), "the release of a latched key is swallowed too")
	dev.frame()
	s.Update(16 * time.Millisecond)
	assert.Equal(t, 1, s.Latched())

	dev.press(ebiten.KeyW)
	assert.True(t, s.KeyJustPressed("W"))
	assert.True(t, s.KeyPressed("W"))
}

func TestSourceBehindGate(t *testing.T) {
	s, dev := newTestSource(t)
	dev.press(ebiten.KeySpace)

	verdict := gate.Verdict{Block: true, Reason: gate.ReasonUnfocused}
	g := input.NewGated(s, deciderFunc(func(gate.Query) gate.Verdict {
		if verdict.Block {
			_ = s.Flush()
		}
		return verdict
	}))
	assert.False(t, g.ButtonPressed("Jump"))

	verdict = gate.Verdict{}
	assert.False(t, g.ButtonPressed("Jump"), "held through the blocked stretch")
	dev.release(ebiten.KeySpace)
	dev.frame()
	s.Update(16 * time.Millisecond)
	dev.press(ebiten.KeySpace)
	assert.True(t, g.ButtonJustPressed("Jump"))
}

type deciderFunc func(gate.Query) gate.Verdict

func (f deciderFunc) Decide(q gate.Query) gate.Verdict { return f(q) }

func TestEngineFocused(t *testing.T) {
	s, dev := newTestSource(t)
	assert.True(t, s.EngineFocused())
	dev.focused = false
	assert.False(t, s.EngineFocused())
}

func TestListMenuNavigation(t *testing.T) {
	ran := ""
	m := NewListMenu("Continue", "New Game", "Options")
	for i := range m.Items {
		label := m.Items[i].Label
		m.Items[i].OnSelect = func() { ran = label }
	}

	m.Move(1)
	assert.Equal(t, "New Game", m.SelectedLabel())
	m.Move(-2)
	assert.Equal(t, "Options", m.SelectedLabel())
	assert.True(t, m.HandleSubmit())
	assert.Equal(t, "Options", ran)
}

func TestTrimListsRegistered(t *testing.T) {
	resolved := menu.ResolveTrimmers([]string{"missing", ListTrimmerName}, nil)
	require.Len(t, resolved, 1)
	assert.Equal(t, ListTrimmerName, resolved[0].Name)
}

func TestScannerFallsBackToListTrimmer(t *testing.T) {
	ran := false
	list := NewListMenu("Continue", "New Game", "Quit")
	list.Items[1].OnSelect = func() { ran = true }
	list.Selected = 1

	other := NewListMenu("New Game", "Quit")
	root := uitree.NewElement("Screen", &uitree.Canvas{}).Add(
		uitree.NewElement("Title", list),
		uitree.NewElement("Sandbox", other),
	)

	latch := &gate.Latch{}
	s := menu.NewScanner(latch, menu.WithTrimmers(menu.ResolveTrimmers([]string{ListTrimmerName}, nil)...))
	res := s.MaybeScan(uitree.Roots(root), menu.ReasonLoad)

	assert.Equal(t, menu.OutcomePatched, res.Outcome)
	assert.Equal(t, ListTrimmerName, res.Trimmer)
	assert.Equal(t, 1, res.Disabled)
	assert.True(t, latch.Armed())

	assert.Equal(t, []int{0, 2}, list.Visible())
	assert.Equal(t, "Quit", list.SelectedLabel())
	list.Selected = 1
	assert.False(t, list.HandleSubmit())
	assert.False(t, ran)

	assert.Equal(t, []int{0, 1}, other.Visible(), "menus without a continue item are left alone")
}
