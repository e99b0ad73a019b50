package menu

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusgate/internal/gate"
	"focusgate/internal/uitree"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

type titleMenu struct {
	canvas   *uitree.Element
	menu     *uitree.Element
	cont     *uitree.Element
	newGame  *uitree.Element
	options  *uitree.Element
	layout   *uitree.Stack
	newGameB *uitree.Button
	clicks   int
}

func item(name, text string, b *uitree.Button) *uitree.Element {
	return uitree.NewElement(name,
		b,
		uitree.NewCollider(0, 0, 200, 40),
		&uitree.Rect{Width: 200, Height: 40, Axis: uitree.Vertical},
		&uitree.LayoutHints{Preferred: 40, Min: 30, Flexible: 1},
	).Add(uitree.NewElement("Text", &uitree.Text{Value: text}))
}

func newTitleMenu(withNewGame bool) *titleMenu {
	m := &titleMenu{layout: &uitree.Stack{Axis: uitree.Vertical, Spacing: 10}}
	m.newGameB = uitree.NewButton(func() { m.clicks++ })
	m.cont = item("ContinueButton", "Continue", uitree.NewButton())
	m.newGame = item("NewGameButton", "New Game", m.newGameB)
	m.options = item("OptionsButton", "Options", uitree.NewButton())

	m.menu = uitree.NewElement("Menu", &uitree.Rect{Axis: uitree.Vertical}, m.layout)
	m.menu.Add(m.cont)
	if withNewGame {
		m.menu.Add(m.newGame)
	}
	m.menu.Add(m.options)
	m.canvas = uitree.NewElement("Canvas", &uitree.Canvas{}).Add(m.menu)
	m.layout.Arrange(m.menu)
	return m
}

func (m *titleMenu) roots() []uitree.Node { return uitree.Roots(m.canvas) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestVocabularyClassify(t *testing.T) {
	v := NewVocabulary(DefaultTerms())

	tests := []struct {
		id, text string
		want     Class
	}{
		{"ContinueButton", "", Class{Continue: true}},
		{"Item", "cOnTiNuE", Class{Continue: true}},
		{"Item", "続きから始める", Class{Continue: true}},
		{"new_game", "", Class{Discard: true}},
		{"Item", "Start a new game", Class{Discard: true}},
		{"Item", "ニューゲーム", Class{Discard: true}},
		{"Options", "Options", Class{}},
		{"", "", Class{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, v.Classify(tt.id, tt.text), "%q/%q", tt.id, tt.text)
	}
}

func TestVocabularyDropsEmptyTerms(t *testing.T) {
	v := NewVocabulary(Terms{DiscardText: []string{"", "  "}})
	assert.Equal(t, Class{}, v.Classify("anything", "at all"))
	assert.False(t, v.IsDiscardText("New Game"))
}

func TestScannerTrimsNewGame(t *testing.T) {
	m := newTitleMenu(true)
	latch := &gate.Latch{}
	var hooked []Result
	s := NewScanner(latch, WithScanLogger(quietLogger()), WithPatchHook(func(r Result) {
		hooked = append(hooked, r)
	}))

	res := s.MaybeScan(m.roots(), ReasonLoad)
	assert.Equal(t, OutcomePatched, res.Outcome)
	assert.Equal(t, 3, res.Controls)
	assert.Equal(t, 3, res.Labels)
	assert.Equal(t, 2, res.Continue)
	assert.Equal(t, 2, res.Discard)
	assert.Equal(t, 1, res.Disabled, "control and its label share one unit")

	assert.True(t, latch.Patched())
	assert.True(t, latch.Armed())
	require.Len(t, hooked, 1)

	assert.False(t, m.newGame.Active())
	assert.True(t, m.cont.Active())
	assert.True(t, m.options.Active())

	m.layout.Arrange(m.menu)
	r, _ := uitree.ComponentOf[*uitree.Rect](m.options)
	assert.Equal(t, 50.0, r.Y, "options takes the freed slot")
}

func TestScannerNoMutationWithoutPair(t *testing.T) {
	m := newTitleMenu(false)
	latch := &gate.Latch{}
	s := NewScanner(latch, WithScanLogger(quietLogger()))

	for i := 0; i < 3; i++ {
		res := s.MaybeScan(m.roots(), ReasonLoad)
		assert.Equal(t, OutcomeNoMatch, res.Outcome)
		assert.Equal(t, 2, res.Continue)
		assert.Zero(t, res.Discard)
		assert.Zero(t, res.Disabled)
	}
	assert.False(t, latch.Patched())
	assert.False(t, latch.Armed())
	assert.True(t, m.cont.Active())

	// Discard without continue is also a no-op.
	lone := uitree.NewElement("Canvas", &uitree.Canvas{}).Add(item("NewGameButton", "New Game", uitree.NewButton()))
	res := s.MaybeScan(uitree.Roots(lone), ReasonLoad)
	assert.Equal(t, OutcomeNoMatch, res.Outcome)
	assert.False(t, latch.Patched())

	// Once the pair shows up the next scan acts.
	m.menu.Add(m.newGame)
	res = s.MaybeScan(m.roots(), ReasonLoad)
	assert.Equal(t, OutcomePatched, res.Outcome)
}

func TestScannerNoOpAfterPatch(t *testing.T) {
	latch := &gate.Latch{}
	s := NewScanner(latch, WithScanLogger(quietLogger()))
	first := newTitleMenu(true)
	require.Equal(t, OutcomePatched, s.MaybeScan(first.roots(), ReasonLoad).Outcome)

	second := newTitleMenu(true)
	for _, reason := range []Reason{ReasonLoad, ReasonPeriodic, ReasonManual} {
		res := s.MaybeScan(second.roots(), reason)
		assert.Equal(t, OutcomeAlreadyPatched, res.Outcome)
		assert.Zero(t, res.Controls)
	}
	assert.True(t, second.newGame.Active())
	assert.False(t, latch.CompletePatch())
}

func TestScannerPeriodicRateLimit(t *testing.T) {
	clock := newClock()
	m := newTitleMenu(false)
	s := NewScanner(&gate.Latch{}, WithClock(clock.Now), WithScanLogger(quietLogger()))

	assert.Equal(t, OutcomeNoMatch, s.MaybeScan(m.roots(), ReasonPeriodic).Outcome)

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, OutcomeRateLimited, s.MaybeScan(m.roots(), ReasonPeriodic).Outcome)
	assert.Equal(t, OutcomeNoMatch, s.MaybeScan(m.roots(), ReasonLoad).Outcome, "load scans are not rate limited")

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, OutcomeNoMatch, s.MaybeScan(m.roots(), ReasonPeriodic).Outcome)

	s.SetInterval(5 * time.Second)
	clock.Advance(time.Second)
	assert.Equal(t, OutcomeRateLimited, s.MaybeScan(m.roots(), ReasonPeriodic).Outcome)
}

func TestScannerEmptyRoots(t *testing.T) {
	s := NewScanner(&gate.Latch{}, WithScanLogger(quietLogger()))
	assert.Equal(t, OutcomeNoTree, s.MaybeScan(nil, ReasonPeriodic).Outcome)
}

// brokenNode panics when enumerated.
type brokenNode struct{}

func (brokenNode) Name() string        { return "Broken" }
func (brokenNode) Parent() uitree.Node { return nil }
func (brokenNode) Children() []uitree.Node {
	panic("tree torn down mid-scan")
}
func (brokenNode) Components() []any { return nil }
func (brokenNode) Active() bool      { return true }
func (brokenNode) SetActive(bool) {}

func TestScannerRecoversEnumerationPanic(t *testing.T) {
	latch := &gate.Latch{}
	s := NewScanner(latch, WithScanLogger(quietLogger()))

	res := s.MaybeScan([]uitree.Node{brokenNode{}}, ReasonLoad)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
	assert.False(t, latch.Patched())

	m := newTitleMenu(true)
	assert.Equal(t, OutcomePatched, s.MaybeScan(m.roots(), ReasonLoad).Outcome)
}

// orphanedNode lost its ancestry: every parent lookup panics.
type orphanedNode struct{ *uitree.Element }

func (orphanedNode) Parent() uitree.Node { panic("parent destroyed") }

func TestScannerIsolatesUnitLookupFailure(t *testing.T) {
	for _, orphanFirst := range []bool{false, true} {
		m := newTitleMenu(true)
		alt := orphanedNode{uitree.NewElement("NewGameAlt", uitree.NewButton())}
		roots := append(m.roots(), alt)
		if orphanFirst {
			roots = append([]uitree.Node{alt}, m.roots()...)
		}
		latch := &gate.Latch{}
		s := NewScanner(latch, WithScanLogger(quietLogger()))

		res := s.MaybeScan(roots, ReasonLoad)
		assert.Equal(t, OutcomePatched, res.Outcome, "orphan first: %v", orphanFirst)
		assert.NoError(t, res.Err)
		assert.Equal(t, 3, res.Discard)
		assert.Equal(t, 1, res.Disabled)
		assert.True(t, latch.Patched())
		assert.True(t, latch.Armed())
		assert.False(t, m.newGame.Active())
		assert.True(t, alt.Active())

		assert.Equal(t, OutcomeAlreadyPatched, s.MaybeScan(roots, ReasonLoad).Outcome)
	}
}

// nameless panics when asked for its identifier.
type nameless struct{ *uitree.Element }

func (nameless) Name() string { panic("name unavailable") }

func TestScannerSkipsNodeThatFailsClassification(t *testing.T) {
	m := newTitleMenu(true)
	broken := nameless{uitree.NewElement("Ignored", uitree.NewButton())}
	latch := &gate.Latch{}
	s := NewScanner(latch, WithScanLogger(quietLogger()))

	res := s.MaybeScan(append([]uitree.Node{broken}, m.roots()...), ReasonLoad)
	assert.Equal(t, OutcomePatched, res.Outcome)
	assert.Equal(t, 1, res.Disabled)
	assert.False(t, m.newGame.Active())
}

func TestScannerConcurrentPassesPatchOnce(t *testing.T) {
	latch := &gate.Latch{}
	var mu sync.Mutex
	patches := 0
	s := NewScanner(latch, WithScanLogger(quietLogger()), WithPatchHook(func(Result) {
		mu.Lock()
		patches++
		mu.Unlock()
	}))
	m := newTitleMenu(true)
	roots := m.roots()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reason := ReasonLoad
			if i%2 == 0 {
				reason = ReasonPeriodic
			}
			s.MaybeScan(roots, reason)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, patches)
	assert.True(t, latch.Patched())
}

func TestScannerFallsBackToTrimmers(t *testing.T) {
	latch := &gate.Latch{}
	var calls []string
	failing := NamedTrimmer{Name: "failing", Trimmer: TrimmerFunc(func([]uitree.Node, *Vocabulary) (int, error) {
		calls = append(calls, "failing")
		return 0, errors.New("component missing")
	})}
	panicking := NamedTrimmer{Name: "panicking", Trimmer: TrimmerFunc(func([]uitree.Node, *Vocabulary) (int, error) {
		calls = append(calls, "panicking")
		panic("bad cast")
	})}
	working := NamedTrimmer{Name: "list", Trimmer: TrimmerFunc(func(_ []uitree.Node, v *Vocabulary) (int, error) {
		calls = append(calls, "list")
		if v.IsDiscardText("New Game") {
			return 1, nil
		}
		return 0, nil
	})}
	s := NewScanner(latch, WithScanLogger(quietLogger()), WithTrimmers(failing, panicking, working))

	res := s.MaybeScan(uitree.Roots(uitree.NewElement("Empty")), ReasonLoad)
	assert.Equal(t, OutcomePatched, res.Outcome)
	assert.Equal(t, "list", res.Trimmer)
	assert.Equal(t, []string{"failing", "panicking", "list"}, calls)
	assert.True(t, latch.Armed())
}

func TestRegisterTrimmer(t *testing.T) {
	name := "test-registry-trimmer"
	RegisterTrimmer(name, TrimmerFunc(func([]uitree.Node, *Vocabulary) (int, error) { return 0, nil }))
	assert.Contains(t, Trimmers(), name)
	assert.Panics(t, func() { RegisterTrimmer(name, TrimmerFunc(nil)) })
	assert.Panics(t, func() { RegisterTrimmer("nil-trimmer", nil) })

	got := ResolveTrimmers([]string{"missing", name}, quietLogger())
	require.Len(t, got, 1)
	assert.Equal(t, name, got[0].Name)
}
