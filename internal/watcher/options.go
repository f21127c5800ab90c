package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Options configures the file watcher behavior.
type Options struct {
	// Match limits events to file names matching one of these globs.
	// Empty means every file.
	Match          []string
	IgnorePatterns []string
	SettleDelay    time.Duration
	IgnoreHidden   bool
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 100 * time.Millisecond
	}

	// Default patterns apply only when none were given (nil, not just empty).
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			".DS_Store",
			"*.tmp",
			"*.temp",
			"*.swp",
			"*~",
		}
		o.IgnoreHidden = true
	}
}

// shouldIgnore checks if a path is filtered out.
func (o *Options) shouldIgnore(path string) bool {
	base := filepath.Base(path)

	if o.IgnoreHidden && strings.HasPrefix(base, ".") {
		return true
	}

	for _, pattern := range o.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}

	if len(o.Match) == 0 {
		return false
	}
	for _, pattern := range o.Match {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return false
		}
	}
	return true
}
