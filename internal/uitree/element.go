package uitree

// Element is an in-memory Node. It is not safe for concurrent mutation; hosts
// mutate their tree from the frame loop only.
type Element struct {
	name       string
	parent     *Element
	children   []*Element
	components []any
	active     bool
}

// NewElement creates an active element with the given components.
func NewElement(name string, components ...any) *Element {
	return &Element{
		name:       name,
		components: components,
		active:     true,
	}
}

// Add appends children and returns e for chaining.
func (e *Element) Add(children ...*Element) *Element {
	for _, c := range children {
		if c.parent != nil {
			c.parent.remove(c)
		}
		c.parent = e
		e.children = append(e.children, c)
	}
	return e
}

func (e *Element) remove(c *Element) {
	for i, cur := range e.children {
		if cur == c {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

// Attach adds components to the element.
func (e *Element) Attach(components ...any) *Element {
	e.components = append(e.components, components...)
	return e
}

func (e *Element) Name() string { return e.name }

func (e *Element) Parent() Node {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *Element) Children() []Node {
	out := make([]Node, len(e.children))
	for i, c := range e.children {
		out[i] = c
	}
	return out
}

// Elements returns the concrete children.
func (e *Element) Elements() []*Element { return e.children }

func (e *Element) Components() []any { return e.components }

func (e *Element) Active() bool { return e.active }

func (e *Element) SetActive(active bool) { e.active = active }

// Find returns the first descendant (or e itself) with the given name.
func (e *Element) Find(name string) *Element {
	if e.name == name {
		return e
	}
	for _, c := range e.children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Roots converts elements to a node slice.
func Roots(elems ...*Element) []Node {
	out := make([]Node, len(elems))
	for i, e := range elems {
		out[i] = e
	}
	return out
}

var _ Node = (*Element)(nil)
