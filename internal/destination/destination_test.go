package destination

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"loghelper/internal/domain"
	"loghelper/internal/format"
	"loghelper/internal/severity"
	"loghelper/internal/theme"
)

func record(level severity.Level, msg string) domain.Record {
	return domain.Record{
		Name:    "app",
		Level:   level,
		Message: msg,
		Time:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestConsoleWritesFormattedLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, severity.Info, format.MustNew("%(levelname)-8s %(message)s"))

	if err := c.Handle(record(severity.Warning, "careful")); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := buf.String(); got != "WARNING  careful\n" {
		t.Fatalf("console output = %q", got)
	}
	if c.Kind() != domain.KindConsole || c.Threshold() != severity.Info {
		t.Fatalf("unexpected kind/threshold: %v %v", c.Kind(), c.Threshold())
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestConsoleColorKeepsText(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, severity.Debug, format.MustNew("%(message)s"), WithColor(theme.ForName(theme.Default)))
	if !c.Colored() {
		t.Fatal("expected colored console")
	}
	if err := c.Handle(record(severity.Error, "boom")); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("colored output lost the message: %q", buf.String())
	}
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestConsoleColorKeepsLayout(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, severity.Debug, format.MustNew("%(message)s"), WithColor(theme.ForName(theme.Default)))

	msg := "col1\tcol2\na much longer second line"
	if err := c.Handle(record(severity.Warning, msg)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := ansiEscape.ReplaceAllString(buf.String(), ""); got != msg+"\n" {
		t.Fatalf("colored output = %q, want %q", got, msg+"\n")
	}
}

func TestFileAppendsExactFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("existing\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	f, err := OpenFile(path, severity.Info, nil)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if err := f.Handle(record(severity.Info, "hello")); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 || lines[0] != "existing" {
		t.Fatalf("file lines = %q", lines)
	}
	if want := "2024-03-01 12:00:00,000 app          INFO     hello"; lines[1] != want {
		t.Fatalf("line = %q, want %q", lines[1], want)
	}

	if err := f.Handle(record(severity.Info, "late")); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("Handle() after Close error = %v, want os.ErrClosed", err)
	}
}

func TestFileUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "app.log")
	if _, err := OpenFile(path, severity.Info, nil); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("OpenFile() error = %v, want fs.ErrNotExist", err)
	}
}

func TestParseRotationUnit(t *testing.T) {
	tests := map[string]RotationUnit{
		"s":        Seconds,
		"seconds":  Seconds,
		"M":        Minutes,
		"hour":     Hours,
		"d":        Days,
		"midnight": Midnight,
		"w0":       "W0",
		"Sunday":   "W6",
	}
	for input, want := range tests {
		got, err := ParseRotationUnit(input)
		if err != nil {
			t.Fatalf("ParseRotationUnit(%q) error = %v", input, err)
		}
		if got != want {
			t.Errorf("ParseRotationUnit(%q) = %q, want %q", input, got, want)
		}
	}

	for _, bad := range []string{"fortnight", "W7", ""} {
		if _, err := ParseRotationUnit(bad); !errors.Is(err, ErrUnknownRotationUnit) {
			t.Errorf("ParseRotationUnit(%q) error = %v, want ErrUnknownRotationUnit", bad, err)
		}
	}

	if Weekday(time.Monday) != "W0" || Weekday(time.Sunday) != "W6" {
		t.Fatalf("Weekday() mapping is off: %q %q", Weekday(time.Monday), Weekday(time.Sunday))
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("03:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay() error = %v", err)
	}
	if got != (TimeOfDay{Hour: 3, Minute: 30}) || got.String() != "03:30:00" {
		t.Fatalf("ParseTimeOfDay(03:30) = %+v", got)
	}

	for _, bad := range []string{"24:00", "3", "12:61", "aa:bb", "1:2:3:4"} {
		if _, err := ParseTimeOfDay(bad); !errors.Is(err, ErrInvalidTimeOfDay) {
			t.Errorf("ParseTimeOfDay(%q) error = %v", bad, err)
		}
	}
}

func TestNextRollover(t *testing.T) {
	// 2024-03-06 is a Wednesday.
	from := time.Date(2024, 3, 6, 10, 15, 0, 0, time.UTC)
	at := TimeOfDay{Hour: 3}
	late := TimeOfDay{Hour: 23}

	tests := []struct {
		name     string
		rotation Rotation
		want     time.Time
	}{
		{"seconds", Rotation{Unit: Seconds, Interval: 30}, from.Add(30 * time.Second)},
		{"hours", Rotation{Unit: Hours, Interval: 2}, from.Add(2 * time.Hour)},
		{"days", Rotation{Unit: Days, Interval: 1}, from.Add(24 * time.Hour)},
		{"midnight", Rotation{Unit: Midnight, Interval: 1}, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)},
		{"midnight at 03:00", Rotation{Unit: Midnight, Interval: 1, AtTime: &at}, time.Date(2024, 3, 7, 3, 0, 0, 0, time.UTC)},
		{"midnight at 23:00 today", Rotation{Unit: Midnight, Interval: 1, AtTime: &late}, time.Date(2024, 3, 6, 23, 0, 0, 0, time.UTC)},
		{"midnight every 2 days", Rotation{Unit: Midnight, Interval: 2}, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)},
		{"friday", Rotation{Unit: "W4", Interval: 1}, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)},
		{"wednesday already passed", Rotation{Unit: "W2", Interval: 1}, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)},
		{"wednesday later today", Rotation{Unit: "W2", Interval: 1, AtTime: &late}, time.Date(2024, 3, 6, 23, 0, 0, 0, time.UTC)},
		{"seconds ignore at time", Rotation{Unit: Seconds, Interval: 1, AtTime: &late}, from.Add(time.Second)},
	}

	for _, tt := range tests {
		if got := tt.rotation.nextRollover(from); !got.Equal(tt.want) {
			t.Errorf("%s: nextRollover() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTimedRotatingFileRejectsBadSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	if _, err := OpenTimedRotatingFile(path, Rotation{Unit: "fortnight", Interval: 1}, severity.Info, nil); !errors.Is(err, ErrUnknownRotationUnit) {
		t.Fatalf("unknown unit error = %v", err)
	}
	if _, err := OpenTimedRotatingFile(path, Rotation{Unit: Days, Interval: 0}, severity.Info, nil); !errors.Is(err, ErrInvalidRotation) {
		t.Fatalf("zero interval error = %v", err)
	}
	if _, err := OpenTimedRotatingFile(path, Rotation{Unit: Days, Interval: 1, Backups: -1}, severity.Info, nil); !errors.Is(err, ErrInvalidRotation) {
		t.Fatalf("negative backups error = %v", err)
	}
	missing := filepath.Join(dir, "nope", "app.log")
	if _, err := OpenTimedRotatingFile(missing, Rotation{Unit: Days, Interval: 1}, severity.Info, nil); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing directory error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "nope")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("a failed open must not create the directory")
	}
}

func TestTimedRotatingFileRetention(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	d, err := OpenTimedRotatingFile(path, Rotation{Unit: Seconds, Interval: 1, Backups: 2}, severity.Debug,
		format.MustNew("%(message)s"), WithRotationClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("OpenTimedRotatingFile() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := d.Handle(record(severity.Info, "first")); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	backups := func() []string {
		matches, err := filepath.Glob(filepath.Join(dir, "app-*.log"))
		if err != nil {
			t.Fatalf("glob: %v", err)
		}
		return matches
	}

	for i := 1; i <= 4; i++ {
		now = now.Add(time.Second)
		if err := d.Handle(record(severity.Info, "after-rotation")); err != nil {
			t.Fatalf("Handle() rotation %d error = %v", i, err)
		}
		// lumberjack names backups with millisecond resolution.
		time.Sleep(5 * time.Millisecond)
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(backups()) > 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := backups(); len(got) != 2 {
		t.Fatalf("retained backups = %v, want 2", got)
	}

	lines := readLines(t, path)
	if len(lines) != 1 || lines[0] != "after-rotation" {
		t.Fatalf("active file lines = %q", lines)
	}
	if next := d.NextRollover(); !next.Equal(now.Add(time.Second)) {
		t.Fatalf("NextRollover() = %v, want %v", next, now.Add(time.Second))
	}
}

func TestTimedRotatingFileNoRotationBeforeBoundary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	d, err := OpenTimedRotatingFile(path, Rotation{Unit: Minutes, Interval: 1, Backups: 3}, severity.Debug,
		format.MustNew("%(message)s"), WithRotationClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("OpenTimedRotatingFile() error = %v", err)
	}
	defer d.Close()

	for i := 0; i < 3; i++ {
		now = now.Add(10 * time.Second)
		if err := d.Handle(record(severity.Info, "line")); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "app-*.log"))
	if len(matches) != 0 {
		t.Fatalf("unexpected rotation: %v", matches)
	}
	if lines := readLines(t, path); len(lines) != 3 {
		t.Fatalf("active file lines = %q", lines)
	}
}

func TestDatabaseStoresRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	d, err := OpenDatabase(path, severity.Info, format.MustNew("%(levelname)s %(message)s"))
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	defer d.Close()

	for _, msg := range []string{"one", "two", "three"} {
		if err := d.Handle(record(severity.Error, msg)); err != nil {
			t.Fatalf("Handle(%s) error = %v", msg, err)
		}
	}

	recent, err := d.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(Recent()) = %d, want 2", len(recent))
	}
	if recent[0].Record.Message != "two" || recent[1].Line != "ERROR three" {
		t.Fatalf("unexpected records: %+v", recent)
	}
	if recent[1].Record.Level != severity.Error || recent[1].ID == "" {
		t.Fatalf("unexpected stored record: %+v", recent[1])
	}
}
