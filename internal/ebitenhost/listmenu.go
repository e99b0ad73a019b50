package ebitenhost

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"focusgate/internal/menu"
	"focusgate/internal/uitree"
)

// ListTrimmerName is the name the ListMenu trimmer is registered under.
const ListTrimmerName = "ebiten-list"

func init() {
	menu.RegisterTrimmer(ListTrimmerName, menu.TrimmerFunc(TrimLists))
}

// ListItem is one entry of a ListMenu.
type ListItem struct {
	Label    string
	Hidden   bool
	OnSelect func()
}

// ListMenu is a vertical menu that draws its own items, so its labels never
// show up as nodes of the UI tree. Attach it to an Element; the built-in menu
// scan cannot see inside it, the "ebiten-list" trimmer can.
type ListMenu struct {
	Items    []ListItem
	Selected int

	// LineHeight is the pixel spacing of items when drawn.
	LineHeight int
}

// NewListMenu creates a menu with one item per label.
func NewListMenu(labels ...string) *ListMenu {
	m := &ListMenu{LineHeight: 16}
	for _, l := range labels {
		m.Items = append(m.Items, ListItem{Label: l})
	}
	return m
}

// Visible returns the indexes of items that are not hidden.
func (m *ListMenu) Visible() []int {
	var out []int
	for i, it := range m.Items {
		if !it.Hidden {
			out = append(out, i)
		}
	}
	return out
}

// Move shifts the selection by delta visible items, wrapping around.
func (m *ListMenu) Move(delta int) {
	vis := m.Visible()
	if len(vis) == 0 {
		return
	}
	pos := 0
	for i, idx := range vis {
		if idx == m.Selected {
			pos = i
			break
		}
	}
	pos = ((pos+delta)%len(vis) + len(vis)) % len(vis)
	m.Selected = vis[pos]
}

// SelectedLabel returns the label of the selected item, or "" when the
// selection is hidden.
func (m *ListMenu) SelectedLabel() string {
	if m.Selected < 0 || m.Selected >= len(m.Items) || m.Items[m.Selected].Hidden {
		return ""
	}
	return m.Items[m.Selected].Label
}

// HandleSubmit runs the selected item. Hidden items never run.
func (m *ListMenu) HandleSubmit() bool {
	if m.SelectedLabel() == "" {
		return false
	}
	if fn := m.Items[m.Selected].OnSelect; fn != nil {
		fn()
	}
	return true
}

// Draw prints the visible items at x, y with a marker on the selection.
func (m *ListMenu) Draw(screen *ebiten.Image, x, y int) {
	line := m.LineHeight
	if line <= 0 {
		line = 16
	}
	for _, idx := range m.Visible() {
		prefix := "  "
		if idx == m.Selected {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, prefix+m.Items[idx].Label, x, y)
		y += line
	}
}

// TrimLists hides the discard items of every ListMenu under roots that also
// offers a continue item, and moves the selection off a hidden item. It
// returns the number of items hidden.
func TrimLists(roots []uitree.Node, vocab *menu.Vocabulary) (int, error) {
	hits := uitree.Collect[*ListMenu](roots...)
	hidden := 0
	for _, h := range hits {
		m := h.Component
		cont, discard := false, false
		for _, it := range m.Items {
			c := vocab.Classify("", it.Label)
			cont = cont || c.Continue
			discard = discard || c.Discard
		}
		if !cont || !discard {
			continue
		}
		for i := range m.Items {
			if m.Items[i].Hidden || !vocab.IsDiscardText(m.Items[i].Label) {
				continue
			}
			m.Items[i].Hidden = true
			m.Items[i].OnSelect = nil
			hidden++
		}
		if m.SelectedLabel() == "" {
			m.Move(1)
		}
	}
	return hidden, nil
}

var _ uitree.SubmitHandler = (*ListMenu)(nil)
