package menu

import (
	"log/slog"
	"sort"
	"sync"

	"focusgate/internal/uitree"
)

// Trimmer removes the discard item from a menu kind the built-in scan does
// not understand, such as a list widget that draws its items without child
// nodes. It returns how many items it removed.
type Trimmer interface {
	Trim(roots []uitree.Node, vocab *Vocabulary) (int, error)
}

// TrimmerFunc adapts a function to Trimmer.
type TrimmerFunc func(roots []uitree.Node, vocab *Vocabulary) (int, error)

func (f TrimmerFunc) Trim(roots []uitree.Node, vocab *Vocabulary) (int, error) {
	return f(roots, vocab)
}

var (
	trimmersMu sync.RWMutex
	trimmers   = make(map[string]Trimmer)
)

// RegisterTrimmer makes a trimmer available by name. It panics if t is nil or
// name is already registered.
func RegisterTrimmer(name string, t Trimmer) {
	trimmersMu.Lock()
	defer trimmersMu.Unlock()
	if t == nil {
		panic("menu: RegisterTrimmer trimmer is nil")
	}
	if _, dup := trimmers[name]; dup {
		panic("menu: RegisterTrimmer called twice for " + name)
	}
	trimmers[name] = t
}

// Trimmers returns the registered names, sorted.
func Trimmers() []string {
	trimmersMu.RLock()
	defer trimmersMu.RUnlock()
	names := make([]string, 0, len(trimmers))
	for name := range trimmers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamedTrimmer pairs a trimmer with its registered name.
type NamedTrimmer struct {
	Name    string
	Trimmer Trimmer
}

// ResolveTrimmers looks up names in order. Names with no registered trimmer
// are skipped; that is a normal configuration, not an error.
func ResolveTrimmers(names []string, logger *slog.Logger) []NamedTrimmer {
	if logger == nil {
		logger = slog.Default()
	}
	trimmersMu.RLock()
	defer trimmersMu.RUnlock()
	var out []NamedTrimmer
	for _, name := range names {
		t, ok := trimmers[name]
		if !ok {
			logger.Debug("menu trimmer not available", "trimmer", name)
			continue
		}
		out = append(out, NamedTrimmer{Name: name, Trimmer: t})
	}
	return out
}
