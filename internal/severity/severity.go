package severity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Level is an ordered severity. Higher values are more severe.
type Level int

const (
	NotSet   Level = 0
	Debug    Level = 10
	Info     Level = 20
	Warning  Level = 30
	Error    Level = 40
	Critical Level = 50
)

// ErrUnknownLevel is returned by Parse for names it does not recognise.
var ErrUnknownLevel = errors.New("unknown severity level")

var names = map[Level]string{
	NotSet:   "NOTSET",
	Debug:    "DEBUG",
	Info:     "INFO",
	Warning:  "WARNING",
	Error:    "ERROR",
	Critical: "CRITICAL",
}

var aliases = map[string]Level{
	"NOTSET":   NotSet,
	"DEBUG":    Debug,
	"INFO":     Info,
	"WARNING":  Warning,
	"WARN":     Warning,
	"ERROR":    Error,
	"CRITICAL": Critical,
	"FATAL":    Critical,
}

func (l Level) String() string {
	if name, ok := names[l]; ok {
		return name
	}
	return fmt.Sprintf("Level %d", int(l))
}

// Names returns the named thresholds in ascending order, NOTSET excluded.
func Names() []string {
	return []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}
}

// Parse resolves a level name, alias or decimal number.
func Parse(value string) (Level, error) {
	key := strings.ToUpper(strings.TrimSpace(value))
	if level, ok := aliases[key]; ok {
		return level, nil
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 0 {
		return Level(n), nil
	}
	return NotSet, fmt.Errorf("%w: %q", ErrUnknownLevel, value)
}

// MarshalYAML renders named levels by name and custom levels as numbers.
func (l Level) MarshalYAML() (interface{}, error) {
	if name, ok := names[l]; ok {
		return name, nil
	}
	return int(l), nil
}

func (l *Level) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := Parse(node.Value)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
