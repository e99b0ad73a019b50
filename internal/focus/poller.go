package focus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is how often a Poller queries its source.
const DefaultPollInterval = 100 * time.Millisecond

// ErrPollerRunning is returned by Start on a running Poller.
var ErrPollerRunning = errors.New("focus: poller already running")

var errNotPolled = fmt.Errorf("%w: poller is not running", ErrNoForeground)

// Poller queries a slow ForegroundSource on its own goroutine and answers
// Foreground from the last result. The X11 and macOS sources start helper
// processes and the Wayland source makes a D-Bus call, none of which belong
// on a frame loop.
//
// A Poller that is not running reports no foreground window.
type Poller struct {
	source   ForegroundSource
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	polled bool
	window Window
	title  string
	err    error

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller wraps source. Non-positive interval and timeout take the
// defaults.
func NewPoller(source ForegroundSource, interval, timeout time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:   source,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("component", "foreground_poller"),
	}
}

// Start queries the source once, so Foreground has an answer as soon as
// Start returns, then keeps polling until ctx ends or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.cancel != nil {
		return ErrPollerRunning
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.poll(ctx)
	go p.loop(ctx)

	p.logger.Info("foreground poller started", "interval", p.interval)
	return nil
}

// Stop ends polling and waits for the poll goroutine. Foreground reports no
// window afterwards.
func (p *Poller) Stop() {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel, p.done = nil, nil

	p.mu.Lock()
	p.polled = false
	p.mu.Unlock()
	p.logger.Info("foreground poller stopped")
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one query and caches it. The title is only fetched when the
// foreground window changes.
func (p *Poller) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.RLock()
	prev, prevTitle, known := p.window, p.title, p.polled && p.err == nil
	p.mu.RUnlock()

	w, title, err := p.query(ctx, prev, prevTitle, known)

	p.mu.Lock()
	p.polled, p.window, p.title, p.err = true, w, title, err
	p.mu.Unlock()
}

func (p *Poller) query(ctx context.Context, prev Window, prevTitle string, known bool) (w Window, title string, err error) {
	defer func() {
		if r := recover(); r != nil {
			w, title, err = Window{}, "", fmt.Errorf("foreground query panicked: %v", r)
			p.logger.Warn("foreground query panicked", "error", err)
		}
	}()

	w, err = p.source.Foreground(ctx)
	if err != nil {
		return Window{}, "", err
	}
	if known && w == prev {
		return w, prevTitle, nil
	}
	return w, p.source.Title(ctx, w), nil
}

// Foreground returns the cached result of the last poll without blocking.
func (p *Poller) Foreground(context.Context) (Window, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.polled {
		return Window{}, errNotPolled
	}
	return p.window, p.err
}

// Title returns the cached title when w is the last polled window.
func (p *Poller) Title(_ context.Context, w Window) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.polled && w == p.window {
		return p.title
	}
	return ""
}

func (p *Poller) Available() (bool, string) {
	ok, desc := p.source.Available()
	return ok, fmt.Sprintf("%s, polled every %s", desc, p.interval)
}

var _ ForegroundSource = (*Poller)(nil)
