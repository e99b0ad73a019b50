package host

import (
	"fmt"
	"slices"

	"focusgate/internal/config"
	"focusgate/internal/focus"
	"focusgate/internal/logging"
	"focusgate/internal/menu"
)

// LoggingConfig converts the logging section of cfg.
func LoggingConfig(c config.LoggingConfig) (*logging.Config, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	format, err := logging.ParseFormat(c.Format)
	if err != nil {
		return nil, fmt.Errorf("logging.format: %w", err)
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = format
	lc.Output = c.Output
	if c.FilePath != "" {
		lc.FilePath = c.FilePath
	}
	lc.MaxSize = int64(c.MaxSizeMB)
	lc.MaxBackups = c.MaxBackups
	lc.MaxAge = c.MaxAgeDays
	lc.Compress = c.Compress
	lc.RedactTitles = c.RedactTitles
	return lc, nil
}

// SourceConfig converts the focus section of cfg.
func SourceConfig(c *config.Config) focus.SourceConfig {
	sc := focus.DefaultSourceConfig()
	if c.Focus.Backend != "" {
		sc.Backend = c.Focus.Backend
	}
	if d := c.QueryTimeout(); d > 0 {
		sc.Timeout = d
	}
	return sc
}

// Vocabulary builds the match vocabulary from the menu section of cfg.
func Vocabulary(c config.MenuConfig) *menu.Vocabulary {
	return menu.NewVocabulary(menu.Terms{
		ContinueText: c.ContinueText,
		ContinueIDs:  c.ContinueIDs,
		DiscardText:  c.DiscardText,
		DiscardIDs:   c.DiscardIDs,
	})
}

func sameTerms(a, b config.MenuConfig) bool {
	return slices.Equal(a.ContinueText, b.ContinueText) &&
		slices.Equal(a.ContinueIDs, b.ContinueIDs) &&
		slices.Equal(a.DiscardText, b.DiscardText) &&
		slices.Equal(a.DiscardIDs, b.DiscardIDs)
}
