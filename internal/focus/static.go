package focus

import (
	"context"
	"sync"
)

// StaticSource is a ForegroundSource whose answer is set by the caller. It
// backs tests and headless runs where no window system exists.
type StaticSource struct {
	mu     sync.Mutex
	window Window
	title  string
	err    error
	calls  int
}

// NewStaticSource returns a source reporting pid as the foreground owner.
func NewStaticSource(pid int) *StaticSource {
	return &StaticSource{window: Window{Handle: "static", PID: pid}}
}

// Set changes the reported foreground window.
func (s *StaticSource) Set(w Window, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = w
	s.title = title
	s.err = nil
}

// SetPID reports pid as the foreground owner.
func (s *StaticSource) SetPID(pid int) {
	s.Set(Window{Handle: "static", PID: pid}, "")
}

// Fail makes subsequent queries return err.
func (s *StaticSource) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns how many Foreground queries were made.
func (s *StaticSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StaticSource) Foreground(ctx context.Context) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return Window{}, s.err
	}
	return s.window, nil
}

func (s *StaticSource) Title(ctx context.Context, w Window) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *StaticSource) Available() (bool, string) {
	return true, "static foreground source"
}

var _ ForegroundSource = (*StaticSource)(nil)
