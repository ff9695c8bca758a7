package destination

import (
	"fmt"
	"os"

	"loghelper/internal/domain"
	"loghelper/internal/format"
	"loghelper/internal/severity"
)

// File appends formatted lines to a file held open for the destination's
// lifetime.
type File struct {
	base
	path string
	file *os.File
}

// OpenFile opens path for appending, creating it if needed.
func OpenFile(path string, threshold severity.Level, formatter *format.Formatter) (*File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{base: newBase(threshold, formatter), path: path, file: file}, nil
}

func (f *File) Kind() domain.DestinationKind {
	return domain.KindFile
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Handle(rec domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return fmt.Errorf("write %s: %w", f.path, os.ErrClosed)
	}
	_, err := f.file.WriteString(f.formatter.Format(rec) + "\n")
	return err
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
