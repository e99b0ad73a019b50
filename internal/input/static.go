package input

import (
	"strconv"
	"sync"
)

// StaticSource is a Source whose answers are set by hand. It counts calls per
// query kind so callers can check whether a query reached it.
type StaticSource struct {
	mu     sync.Mutex
	values map[string]float64
	calls  map[QueryKind]int
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource returns a StaticSource that answers false/0 everywhere.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		values: make(map[string]float64),
		calls:  make(map[QueryKind]int),
	}
}

func staticKey(kind QueryKind, arg string) string { return kind.String() + ":" + arg }

// Set fixes the answer for kind with arg. Booleans are true for non-zero v.
func (s *StaticSource) Set(kind QueryKind, arg string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[staticKey(kind, arg)] = v
}

// SetAll answers v for every kind, with any argument in args.
func (s *StaticSource) SetAll(v float64, args ...string) {
	for _, k := range Kinds() {
		for _, a := range args {
			s.Set(k, a, v)
		}
	}
}

// Calls returns how often kind reached the source.
func (s *StaticSource) Calls(kind QueryKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

// TotalCalls returns the number of queries that reached the source.
func (s *StaticSource) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *StaticSource) get(kind QueryKind, arg string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[kind]++
	return s.values[staticKey(kind, arg)]
}

func (s *StaticSource) flag(kind QueryKind, arg string) bool { return s.get(kind, arg) != 0 }

func (s *StaticSource) KeyPressed(k Key) bool      { return s.flag(KindKeyPressed, string(k)) }
func (s *StaticSource) KeyJustPressed(k Key) bool  { return s.flag(KindKeyJustPressed, string(k)) }
func (s *StaticSource) KeyJustReleased(k Key) bool { return s.flag(KindKeyJustReleased, string(k)) }

func (s *StaticSource) MouseButtonPressed(b int) bool {
	return s.flag(KindMouseButtonPressed, strconv.Itoa(b))
}

func (s *StaticSource) MouseButtonJustPressed(b int) bool {
	return s.flag(KindMouseButtonJustPressed, strconv.Itoa(b))
}

func (s *StaticSource) MouseButtonJustReleased(b int) bool {
	return s.flag(KindMouseButtonJustReleased, strconv.Itoa(b))
}

func (s *StaticSource) ButtonPressed(name string) bool { return s.flag(KindButtonPressed, name) }
func (s *StaticSource) ButtonJustPressed(name string) bool {
	return s.flag(KindButtonJustPressed, name)
}
func (s *StaticSource) ButtonJustReleased(name string) bool {
	return s.flag(KindButtonJustReleased, name)
}

func (s *StaticSource) Axis(name string) float64    { return s.get(KindAxis, name) }
func (s *StaticSource) AxisRaw(name string) float64 { return s.get(KindAxisRaw, name) }

func (s *StaticSource) AnyKey() bool            { return s.flag(KindAnyKey, "") }
func (s *StaticSource) AnyKeyJustPressed() bool { return s.flag(KindAnyKeyJustPressed, "") }
