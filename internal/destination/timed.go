package destination

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"loghelper/internal/domain"
	"loghelper/internal/format"
	"loghelper/internal/severity"
)

// TimedRotatingFile appends formatted lines to a file that is rotated at
// fixed time boundaries. Renaming and pruning of rotated files is done by
// lumberjack; this type only decides when to rotate.
type TimedRotatingFile struct {
	base
	path       string
	rotation   Rotation
	writer     *lumberjack.Logger
	rolloverAt time.Time
	now        func() time.Time
	closed     bool
}

// TimedOption customises a TimedRotatingFile.
type TimedOption func(*TimedRotatingFile)

// WithRotationClock replaces time.Now when deciding whether to rotate.
func WithRotationClock(now func() time.Time) TimedOption {
	return func(t *TimedRotatingFile) {
		if now != nil {
			t.now = now
		}
	}
}

// OpenTimedRotatingFile validates rotation and makes sure path can be
// appended to. The parent directory must already exist.
func OpenTimedRotatingFile(path string, rotation Rotation, threshold severity.Level, formatter *format.Formatter, opts ...TimedOption) (*TimedRotatingFile, error) {
	rotation, err := rotation.normalize()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: path, Err: errors.New("parent is not a directory")}
	}

	existing, statErr := os.Stat(path)
	probe, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if err := probe.Close(); err != nil {
		return nil, err
	}

	t := &TimedRotatingFile{
		base:     newBase(threshold, formatter),
		path:     path,
		rotation: rotation,
		now:      time.Now,
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    math.MaxInt32,
			MaxBackups: rotation.Backups,
			LocalTime:  true,
		},
	}
	for _, opt := range opts {
		opt(t)
	}

	start := t.now()
	if statErr == nil {
		start = existing.ModTime()
	}
	t.rolloverAt = rotation.nextRollover(start)
	return t, nil
}

func (t *TimedRotatingFile) Kind() domain.DestinationKind {
	return domain.KindTimedFile
}

func (t *TimedRotatingFile) Path() string {
	return t.path
}

func (t *TimedRotatingFile) Rotation() Rotation {
	return t.rotation
}

// NextRollover reports when the file will next be rotated.
func (t *TimedRotatingFile) NextRollover() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rolloverAt
}

func (t *TimedRotatingFile) Handle(rec domain.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("write %s: %w", t.path, os.ErrClosed)
	}

	if now := t.now(); !now.Before(t.rolloverAt) {
		if err := t.writer.Rotate(); err != nil {
			return fmt.Errorf("rotate %s: %w", t.path, err)
		}
		t.rolloverAt = t.rotation.nextRollover(now)
	}

	_, err := t.writer.Write([]byte(t.formatter.Format(rec) + "\n"))
	return err
}

func (t *TimedRotatingFile) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.writer.Close()
}
