package menu

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"focusgate/internal/gate"
	"focusgate/internal/uitree"
)

// DefaultScanInterval is the minimum spacing of periodic scans.
const DefaultScanInterval = time.Second

// Reason says what triggered a scan.
type Reason string

const (
	ReasonLoad     Reason = "load"
	ReasonPeriodic Reason = "periodic"
	ReasonManual   Reason = "manual"
)

// Outcome is what a MaybeScan call did.
type Outcome int

const (
	OutcomeNoMatch Outcome = iota
	OutcomePatched
	OutcomeAlreadyPatched
	OutcomeRateLimited
	OutcomeNoTree
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoMatch:
		return "no_match"
	case OutcomePatched:
		return "patched"
	case OutcomeAlreadyPatched:
		return "already_patched"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeNoTree:
		return "no_tree"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes one MaybeScan call.
type Result struct {
	Reason   Reason
	Outcome  Outcome
	Controls int
	Labels   int
	Continue int
	Discard  int
	Disabled int

	// Trimmer names the registered trimmer that did the work, if any.
	Trimmer string

	// Err is set when the pass aborted.
	Err error
}

// Scanner looks for the continue / new game pair and disables the new game
// item. After the first successful pass every call is a no-op.
type Scanner struct {
	mu       sync.Mutex
	latch    *gate.Latch
	mutator  *Mutator
	vocab    *Vocabulary
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	trimmers []NamedTrimmer
	onPatch  func(Result)

	lastPeriodic time.Time
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithInterval sets the periodic scan spacing.
func WithInterval(d time.Duration) ScannerOption {
	return func(s *Scanner) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) { s.now = now }
}

func WithVocabulary(v *Vocabulary) ScannerOption {
	return func(s *Scanner) { s.vocab = v }
}

func WithScanLogger(l *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTrimmers adds fallback trimmers, tried in order when the built-in pass
// disables nothing.
func WithTrimmers(t ...NamedTrimmer) ScannerOption {
	return func(s *Scanner) { s.trimmers = append(s.trimmers, t...) }
}

// WithPatchHook registers a callback run once, after the patch is recorded.
func WithPatchHook(fn func(Result)) ScannerOption {
	return func(s *Scanner) { s.onPatch = fn }
}

// NewScanner creates a Scanner that records its patch in latch.
func NewScanner(latch *gate.Latch, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		latch:    latch,
		vocab:    NewVocabulary(DefaultTerms()),
		interval: DefaultScanInterval,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mutator = NewMutator(s.logger)
	s.logger = s.logger.With("component", "menu_scanner")
	return s
}

// SetVocabulary swaps the vocabulary used by later passes.
func (s *Scanner) SetVocabulary(v *Vocabulary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocab = v
}

// SetInterval changes the periodic scan spacing.
func (s *Scanner) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
}

// Patched reports whether the trim has happened.
func (s *Scanner) Patched() bool { return s.latch.Patched() }

// MaybeScan runs one pass over roots unless the trim already happened or, for
// periodic calls, the last periodic pass was less than the interval ago.
func (s *Scanner) MaybeScan(roots []uitree.Node, reason Reason) Result {
	res := Result{Reason: reason}
	if s.latch.Patched() {
		res.Outcome = OutcomeAlreadyPatched
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latch.Patched() {
		res.Outcome = OutcomeAlreadyPatched
		return res
	}
	if reason == ReasonPeriodic {
		now := s.now()
		if !s.lastPeriodic.IsZero() && now.Sub(s.lastPeriodic) < s.interval {
			res.Outcome = OutcomeRateLimited
			return res
		}
		s.lastPeriodic = now
	}
	if len(roots) == 0 {
		res.Outcome = OutcomeNoTree
		return res
	}

	s.pass(roots, &res)

	if res.Outcome == OutcomePatched && s.onPatch != nil {
		s.onPatch(res)
	}
	return res
}

type candidates struct {
	cont    []uitree.Node
	discard []uitree.Node
}

func (s *Scanner) pass(roots []uitree.Node, res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("menu scan: %v", r)
			s.logger.Warn("menu scan aborted", "reason", res.Reason, "error", res.Err)
		}
	}()

	found := s.classify(roots, res)
	res.Continue, res.Discard = len(found.cont), len(found.discard)

	s.logger.Debug("menu scan",
		"reason", res.Reason,
		"controls", res.Controls,
		"labels", res.Labels,
		"continue", res.Continue,
		"discard", res.Discard,
	)

	if res.Continue > 0 && res.Discard > 0 {
		seen := make(map[uitree.Node]bool)
		for _, n := range found.discard {
			unit, ok := s.mutator.unitOf(n)
			if !ok || seen[unit] {
				continue
			}
			seen[unit] = true
			res.Disabled += s.mutator.disable(n, unit)
		}
	}

	if res.Disabled == 0 {
		s.runTrimmers(roots, res)
	}

	if res.Disabled == 0 {
		res.Outcome = OutcomeNoMatch
		return
	}
	if !s.latch.CompletePatch() {
		res.Outcome = OutcomeAlreadyPatched
		return
	}
	res.Outcome = OutcomePatched
	s.logger.Info("menu trimmed",
		"reason", res.Reason,
		"disabled", res.Disabled,
		"trimmer", res.Trimmer,
	)
}

func (s *Scanner) classify(roots []uitree.Node, res *Result) candidates {
	var found candidates
	add := func(n uitree.Node, c Class) {
		if c.Continue {
			found.cont = append(found.cont, n)
		}
		if c.Discard {
			found.discard = append(found.discard, n)
		}
	}

	for _, root := range roots {
		uitree.Walk(root, func(n uitree.Node) bool {
			s.visit(n, res, add)
			return true
		})
	}
	return found
}

// visit classifies one node. A node that panics is skipped; its siblings and
// descendants are still visited.
func (s *Scanner) visit(n uitree.Node, res *Result, add func(uitree.Node, Class)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("menu node skipped", "node", safePath(n), "error", fmt.Sprint(r))
		}
	}()

	if uitree.IsInteractive(n) {
		res.Controls++
		text := ""
		if l, ok := uitree.FirstInSubtree[uitree.Label](n); ok {
			text = l.Text()
		}
		c := s.vocab.Classify(n.Name(), text)
		if c.Continue || c.Discard {
			s.logger.Debug("control candidate",
				"node", safePath(n), "label", text,
				"continue", c.Continue, "discard", c.Discard)
		}
		add(n, c)
	}
	if l, ok := uitree.ComponentOf[uitree.Label](n); ok {
		res.Labels++
		c := s.vocab.Classify(n.Name(), l.Text())
		if c.Continue || c.Discard {
			s.logger.Debug("label candidate",
				"node", safePath(n), "text", l.Text(),
				"continue", c.Continue, "discard", c.Discard)
		}
		add(n, c)
	}
}

func (s *Scanner) runTrimmers(roots []uitree.Node, res *Result) {
	for _, nt := range s.trimmers {
		n, err := s.safeTrim(nt, roots)
		if err != nil {
			s.logger.Warn("menu trimmer failed", "trimmer", nt.Name, "error", err)
			continue
		}
		if n > 0 {
			res.Disabled = n
			res.Trimmer = nt.Name
			return
		}
	}
}

func (s *Scanner) safeTrim(nt NamedTrimmer, roots []uitree.Node) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("trimmer %s panicked: %v", nt.Name, r)
		}
	}()
	return nt.Trimmer.Trim(roots, s.vocab)
}
