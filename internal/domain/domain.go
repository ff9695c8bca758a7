package domain

import (
	"time"

	"loghelper/internal/severity"
)

// DestinationKind names the kind of an output destination.
type DestinationKind string

const (
	KindConsole   DestinationKind = "console"
	KindFile      DestinationKind = "file"
	KindTimedFile DestinationKind = "timed_file"
	KindDatabase  DestinationKind = "database"
)

// Kinds returns every destination kind in display order.
func Kinds() []DestinationKind {
	return []DestinationKind{KindConsole, KindFile, KindTimedFile, KindDatabase}
}

// Record is a single log call as it travels from a sink to its destinations.
type Record struct {
	Name    string
	Level   severity.Level
	Message string
	Time    time.Time
}
