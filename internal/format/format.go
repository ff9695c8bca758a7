package format

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"loghelper/internal/domain"
)

// Default renders "<timestamp> <name padded to 12> <level padded to 8> <message>".
const Default = "%(asctime)s %(name)-12s %(levelname)-8s %(message)s"

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid format pattern")

type valueKind int

const (
	textValue valueKind = iota
	intValue
	floatValue
)

var keys = map[string]valueKind{
	"asctime":   textValue,
	"name":      textValue,
	"levelname": textValue,
	"message":   textValue,
	"levelno":   intValue,
	"process":   intValue,
	"created":   floatValue,
	"msecs":     floatValue,
}

type segment struct {
	literal string
	key     string
	verb    byte
	layout  string
}

// Formatter turns a record into a single line of text. It is immutable and
// safe to share between destinations.
type Formatter struct {
	pattern    string
	segments   []segment
	timeLayout string
}

// Option customises a Formatter.
type Option func(*Formatter)

// WithTimeLayout renders asctime with a Go time layout instead of the
// default "2006-01-02 15:04:05,000".
func WithTimeLayout(layout string) Option {
	return func(f *Formatter) {
		f.timeLayout = layout
	}
}

// New compiles pattern.
func New(pattern string, opts ...Option) (*Formatter, error) {
	segments, err := parse(pattern)
	if err != nil {
		return nil, err
	}
	f := &Formatter{pattern: pattern, segments: segments}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(pattern string, opts ...Option) *Formatter {
	f, err := New(pattern, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Standard returns a formatter for the Default pattern.
func Standard() *Formatter {
	return standard
}

var standard = MustNew(Default)

// Pattern returns the source pattern.
func (f *Formatter) Pattern() string {
	return f.pattern
}

// Format renders rec without a trailing newline.
func (f *Formatter) Format(rec domain.Record) string {
	var b strings.Builder
	for _, seg := range f.segments {
		if seg.key == "" {
			b.WriteString(seg.literal)
			continue
		}
		b.WriteString(f.render(seg, rec))
	}
	return b.String()
}

func (f *Formatter) render(seg segment, rec domain.Record) string {
	switch seg.verb {
	case 'd':
		return fmt.Sprintf(seg.layout, int64(f.number(seg.key, rec)))
	case 'f':
		return fmt.Sprintf(seg.layout, f.number(seg.key, rec))
	default:
		return fmt.Sprintf(seg.layout, f.text(seg.key, rec))
	}
}

func (f *Formatter) text(key string, rec domain.Record) string {
	switch key {
	case "asctime":
		if f.timeLayout != "" {
			return rec.Time.Format(f.timeLayout)
		}
		return rec.Time.Format("2006-01-02 15:04:05") + fmt.Sprintf(",%03d", rec.Time.Nanosecond()/1e6)
	case "name":
		return rec.Name
	case "levelname":
		return rec.Level.String()
	case "message":
		return rec.Message
	case "levelno", "process":
		return strconv.FormatInt(int64(f.number(key, rec)), 10)
	default:
		return strconv.FormatFloat(f.number(key, rec), 'f', -1, 64)
	}
}

func (f *Formatter) number(key string, rec domain.Record) float64 {
	switch key {
	case "levelno":
		return float64(rec.Level)
	case "process":
		return float64(os.Getpid())
	case "created":
		return float64(rec.Time.UnixNano()) / 1e9
	case "msecs":
		return float64(rec.Time.Nanosecond() / 1e6)
	default:
		return 0
	}
}

func parse(pattern string) ([]segment, error) {
	var segments []segment
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			literal.WriteByte(c)
			continue
		}
		if i+1 >= len(pattern) {
			return nil, fmt.Errorf("%w: trailing %% in %q", ErrInvalidPattern, pattern)
		}
		if pattern[i+1] == '%' {
			literal.WriteByte('%')
			i++
			continue
		}
		if pattern[i+1] != '(' {
			return nil, fmt.Errorf("%w: expected %%(key) at offset %d", ErrInvalidPattern, i)
		}

		end := strings.IndexByte(pattern[i+2:], ')')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated placeholder at offset %d", ErrInvalidPattern, i)
		}
		key := pattern[i+2 : i+2+end]
		kind, ok := keys[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidPattern, key)
		}

		j := i + 3 + end
		start := j
		for j < len(pattern) && strings.IndexByte("-0+ ", pattern[j]) >= 0 {
			j++
		}
		for j < len(pattern) && pattern[j] >= '0' && pattern[j] <= '9' {
			j++
		}
		if j < len(pattern) && pattern[j] == '.' {
			j++
			for j < len(pattern) && pattern[j] >= '0' && pattern[j] <= '9' {
				j++
			}
		}
		if j >= len(pattern) {
			return nil, fmt.Errorf("%w: missing conversion type for %q", ErrInvalidPattern, key)
		}

		verb := pattern[j]
		if verb == 'i' {
			verb = 'd'
		}
		switch verb {
		case 's':
		case 'd', 'f':
			if kind == textValue {
				return nil, fmt.Errorf("%w: %q is not numeric", ErrInvalidPattern, key)
			}
		default:
			return nil, fmt.Errorf("%w: unsupported conversion %q for %q", ErrInvalidPattern, pattern[j], key)
		}

		flush()
		segments = append(segments, segment{
			key:    key,
			verb:   verb,
			layout: "%" + pattern[start:j] + string(verb),
		})
		i = j
	}
	flush()
	return segments, nil
}
