package destination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownRotationUnit is returned for rotation units outside the
	// supported set.
	ErrUnknownRotationUnit = errors.New("unknown rotation unit")
	// ErrInvalidRotation is returned for a non-positive interval or a
	// negative backup count.
	ErrInvalidRotation = errors.New("invalid rotation settings")
	// ErrInvalidTimeOfDay is returned by ParseTimeOfDay.
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
)

// RotationUnit is the unit a rotation interval counts in.
type RotationUnit string

const (
	Seconds  RotationUnit = "S"
	Minutes  RotationUnit = "M"
	Hours    RotationUnit = "H"
	Days     RotationUnit = "D"
	Midnight RotationUnit = "MIDNIGHT"
)

// Weekday returns the unit rotating on the given day, W0 (Monday) to W6 (Sunday).
func Weekday(day time.Weekday) RotationUnit {
	return RotationUnit(fmt.Sprintf("W%d", (int(day)+6)%7))
}

var unitAliases = map[string]RotationUnit{
	"S": Seconds, "SECOND": Seconds, "SECONDS": Seconds,
	"M": Minutes, "MINUTE": Minutes, "MINUTES": Minutes,
	"H": Hours, "HOUR": Hours, "HOURS": Hours,
	"D": Days, "DAY": Days, "DAYS": Days,
	"MIDNIGHT":  Midnight,
	"MONDAY":    "W0",
	"TUESDAY":   "W1",
	"WEDNESDAY": "W2",
	"THURSDAY":  "W3",
	"FRIDAY":    "W4",
	"SATURDAY":  "W5",
	"SUNDAY":    "W6",
}

// ParseRotationUnit normalises a unit name to its canonical form.
func ParseRotationUnit(value string) (RotationUnit, error) {
	key := strings.ToUpper(strings.TrimSpace(value))
	if unit, ok := unitAliases[key]; ok {
		return unit, nil
	}
	if len(key) == 2 && key[0] == 'W' && key[1] >= '0' && key[1] <= '6' {
		return RotationUnit(key), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRotationUnit, value)
}

func (u RotationUnit) weekday() (time.Weekday, bool) {
	if len(u) != 2 || u[0] != 'W' {
		return 0, false
	}
	n := int(u[1] - '0')
	return time.Weekday((n + 1) % 7), true
}

func (u RotationUnit) step() time.Duration {
	switch u {
	case Seconds:
		return time.Second
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	case Days:
		return 24 * time.Hour
	default:
		return 0
	}
}

// TimeOfDay is a wall-clock time used by midnight and weekday rotation.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	limits := []int{23, 59, 59}
	fields := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
		}
		fields[i] = n
	}
	return TimeOfDay{Hour: fields[0], Minute: fields[1], Second: fields[2]}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Rotation describes when a timed rotating file rolls over and how many
// rotated files are retained.
type Rotation struct {
	Unit     RotationUnit
	Interval int
	Backups  int
	// AtTime applies to Midnight and weekday units only.
	AtTime *TimeOfDay
}

func (r Rotation) normalize() (Rotation, error) {
	unit, err := ParseRotationUnit(string(r.Unit))
	if err != nil {
		return Rotation{}, err
	}
	if r.Interval < 1 {
		return Rotation{}, fmt.Errorf("%w: interval must be at least 1, got %d", ErrInvalidRotation, r.Interval)
	}
	if r.Backups < 0 {
		return Rotation{}, fmt.Errorf("%w: backups must not be negative, got %d", ErrInvalidRotation, r.Backups)
	}
	r.Unit = unit
	return r, nil
}

// nextRollover returns the first rollover instant strictly after from.
func (r Rotation) nextRollover(from time.Time) time.Time {
	if step := r.Unit.step(); step > 0 {
		return from.Add(time.Duration(r.Interval) * step)
	}

	at := TimeOfDay{}
	if r.AtTime != nil {
		at = *r.AtTime
	}
	y, m, d := from.Date()
	next := time.Date(y, m, d, at.Hour, at.Minute, at.Second, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}

	if day, ok := r.Unit.weekday(); ok {
		for next.Weekday() != day {
			next = next.AddDate(0, 0, 1)
		}
		return next.AddDate(0, 0, 7*(r.Interval-1))
	}
	return next.AddDate(0, 0, r.Interval-1)
}
