package uitree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMenu returns Canvas/Menu/{ContinueRow, NewGameRow} where each row is a
// clickable button wrapping a label.
func buildMenu() (*Element, *Element) {
	canvas := NewElement("Canvas", &Canvas{})
	menu := NewElement("Menu", &Rect{Axis: Vertical, Height: 100}, &Stack{Axis: Vertical})
	cont := NewElement("ContinueRow", NewButton(), &Rect{Height: 40}).
		Add(NewElement("Label", &Text{Value: "Continue"}))
	newGame := NewElement("NewGameRow", NewButton(), &Rect{Height: 40}).
		Add(NewElement("Label", &Text{Value: "New Game"}))
	root := NewElement("Root").Add(canvas.Add(menu.Add(cont, newGame)))
	return root, canvas
}

func TestPath(t *testing.T) {
	root, _ := buildMenu()
	label := root.Find("NewGameRow").Elements()[0]
	assert.Equal(t, "Root/Canvas/Menu/NewGameRow/Label", Path(label))
	assert.Equal(t, "(nil)", Path(nil))
}

func TestCollect(t *testing.T) {
	root, _ := buildMenu()
	root.Find("ContinueRow").SetActive(false)

	labels := Collect[Label](root)
	require.Len(t, labels, 2, "inactive subtrees are still enumerated")
	assert.Equal(t, "Continue", labels[0].Component.Text())
	assert.Equal(t, "New Game", labels[1].Component.Text())

	selectables := Collect[Selectable](root)
	assert.Len(t, selectables, 2)
}

func TestEnclosingUnit(t *testing.T) {
	t.Run("nearest clickable below surface", func(t *testing.T) {
		root, _ := buildMenu()
		label := root.Find("NewGameRow").Elements()[0]
		unit := EnclosingUnit(label, IsSurface, IsInteractive)
		assert.Equal(t, "NewGameRow", unit.Name())
	})

	t.Run("last capability ancestor before boundary wins", func(t *testing.T) {
		canvas := NewElement("Canvas", &Canvas{})
		outer := NewElement("Outer", NewButton())
		inner := NewElement("Inner", NewButton())
		leaf := NewElement("Leaf", &Text{Value: "New Game"})
		canvas.Add(outer.Add(inner.Add(leaf)))

		unit := EnclosingUnit(leaf, IsSurface, IsInteractive)
		assert.Same(t, outer, unit)
	})

	t.Run("never crosses the surface", func(t *testing.T) {
		top := NewElement("Top", NewButton())
		canvas := NewElement("Canvas", &Canvas{})
		leaf := NewElement("Leaf", &Text{Value: "x"})
		top.Add(canvas.Add(leaf))

		unit := EnclosingUnit(leaf, IsSurface, IsInteractive)
		assert.Same(t, leaf, unit)
	})

	t.Run("falls back to node", func(t *testing.T) {
		leaf := NewElement("Leaf")
		NewElement("Parent").Add(leaf)
		assert.Same(t, leaf, EnclosingUnit(leaf, IsSurface, IsInteractive))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, EnclosingUnit(nil, IsSurface, IsInteractive))
	})
}

func TestFirstInSubtree(t *testing.T) {
	root, _ := buildMenu()
	lbl, ok := FirstInSubtree[Label](root.Find("ContinueRow"))
	require.True(t, ok)
	assert.Equal(t, "Continue", lbl.Text())

	_, ok = FirstInSubtree[Surface](root.Find("Menu"))
	assert.False(t, ok)
}

func TestStackArrange(t *testing.T) {
	root, _ := buildMenu()
	menu := root.Find("Menu")
	stack, _ := ComponentOf[*Stack](menu)
	stack.Arrange(menu)

	cont, _ := ComponentOf[*Rect](root.Find("ContinueRow"))
	ng, _ := ComponentOf[*Rect](root.Find("NewGameRow"))
	assert.Equal(t, 0.0, cont.Y)
	assert.Equal(t, 40.0, ng.Y)

	// A deactivated row takes no space.
	root.Find("ContinueRow").SetActive(false)
	stack.Arrange(menu)
	assert.Equal(t, 0.0, ng.Y)
}

func TestActivate(t *testing.T) {
	clicks := 0
	btn := NewButton(func() { clicks++ })
	row := NewElement("Row", btn)
	NewElement("Parent").Add(row)

	assert.True(t, Activate(row))
	assert.Equal(t, 1, clicks)

	btn.SetInteractable(false)
	assert.False(t, Activate(row))

	btn.SetInteractable(true)
	row.SetActive(false)
	assert.False(t, Activate(row))
	assert.Equal(t, 1, clicks)
}

func TestColliderHitTest(t *testing.T) {
	c := NewCollider(0, 0, 10, 10)
	assert.True(t, c.HitTest(5, 5))
	assert.False(t, c.HitTest(15, 5))
	c.SetEnabled(false)
	assert.False(t, c.HitTest(5, 5))
}
