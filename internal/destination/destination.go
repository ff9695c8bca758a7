// Package destination implements the outputs a sink dispatches records to:
// the console, plain files, time-rotated files and a SQLite table.
package destination

import (
	"sync"

	"loghelper/internal/format"
	"loghelper/internal/severity"
)

// base holds the threshold and formatter every destination carries. The
// mutex also serialises writes of the embedding destination.
type base struct {
	mu        sync.Mutex
	threshold severity.Level
	formatter *format.Formatter
}

func newBase(threshold severity.Level, formatter *format.Formatter) base {
	if formatter == nil {
		formatter = format.Standard()
	}
	return base{threshold: threshold, formatter: formatter}
}

func (b *base) Threshold() severity.Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.threshold
}

func (b *base) SetThreshold(level severity.Level) {
	b.mu.Lock()
	b.threshold = level
	b.mu.Unlock()
}

func (b *base) Formatter() *format.Formatter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.formatter
}

// SetFormatter replaces the formatter; nil restores the standard one.
func (b *base) SetFormatter(formatter *format.Formatter) {
	if formatter == nil {
		formatter = format.Standard()
	}
	b.mu.Lock()
	b.formatter = formatter
	b.mu.Unlock()
}
