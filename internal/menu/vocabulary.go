// Package menu finds the two-item title menu (continue / new game) in a UI
// tree and removes the discard item, once per process.
package menu

import (
	"strings"

	"golang.org/x/text/cases"
)

// Terms are the raw match vocabularies. Identifier terms are matched against
// node names, text terms against label text.
type Terms struct {
	ContinueText []string
	ContinueIDs  []string
	DiscardText  []string
	DiscardIDs   []string
}

// DefaultTerms returns the built-in English and Japanese vocabularies.
func DefaultTerms() Terms {
	return Terms{
		ContinueText: []string{"Continue", "CONTINUE", "ゲームを続ける", "続きから", "コンティニュー"},
		ContinueIDs:  []string{"Continue", "ContinueGame", "ContinueButton"},
		DiscardText:  []string{"New Game", "NEW GAME", "新規ゲーム", "新しいゲーム", "ニューゲーム"},
		DiscardIDs:   []string{"NewGame", "New_Game", "NewGameButton"},
	}
}

// Class is the classification of one node. A node may be both.
type Class struct {
	Continue bool
	Discard  bool
}

// Vocabulary matches identifiers and text with case-insensitive substring
// search under Unicode case folding. It is immutable once built.
type Vocabulary struct {
	continueText []string
	continueIDs  []string
	discardText  []string
	discardIDs   []string
}

// NewVocabulary folds t. Empty terms are dropped; they would match anything.
func NewVocabulary(t Terms) *Vocabulary {
	return &Vocabulary{
		continueText: foldAll(t.ContinueText),
		continueIDs:  foldAll(t.ContinueIDs),
		discardText:  foldAll(t.DiscardText),
		discardIDs:   foldAll(t.DiscardIDs),
	}
}

// fold is not shared: a cases.Caser keeps state between calls.
func fold(s string) string {
	return cases.Fold().String(s)
}

func foldAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		f := fold(strings.TrimSpace(t))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func containsAny(folded string, terms []string) bool {
	if folded == "" {
		return false
	}
	for _, t := range terms {
		if strings.Contains(folded, t) {
			return true
		}
	}
	return false
}

// Classify matches id against the identifier terms and text against the text
// terms. Each kind is decided independently.
func (v *Vocabulary) Classify(id, text string) Class {
	fid, ftext := fold(id), fold(text)
	return Class{
		Continue: containsAny(fid, v.continueIDs) || containsAny(ftext, v.continueText),
		Discard:  containsAny(fid, v.discardIDs) || containsAny(ftext, v.discardText),
	}
}

// IsDiscardText reports whether text matches a discard text term.
func (v *Vocabulary) IsDiscardText(text string) bool {
	return containsAny(fold(text), v.discardText)
}
