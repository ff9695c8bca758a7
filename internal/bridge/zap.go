// Package bridge routes other loggers into a sink so that third-party code
// shares the destinations configured for it.
package bridge

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"

	"loghelper/internal/severity"
	"loghelper/internal/sink"
)

// Core is a zapcore.Core dispatching entries into a sink.
type Core struct {
	sink   *sink.Sink
	fields []zapcore.Field
}

// NewZapCore returns a core whose entries are emitted into s. Use it with
// zap.New(bridge.NewZapCore(s)).
func NewZapCore(s *sink.Sink) *Core {
	return &Core{sink: s}
}

// Level maps a zap level onto the severity scale.
func Level(level zapcore.Level) severity.Level {
	switch {
	case level < zapcore.InfoLevel:
		return severity.Debug
	case level == zapcore.InfoLevel:
		return severity.Info
	case level == zapcore.WarnLevel:
		return severity.Warning
	case level == zapcore.ErrorLevel:
		return severity.Error
	default:
		return severity.Critical
	}
}

func (c *Core) Enabled(level zapcore.Level) bool {
	return c.sink.IsEnabledFor(Level(level))
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &Core{sink: c.sink, fields: merged}
}

func (c *Core) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

// Write renders the message followed by the fields as sorted key=value pairs.
func (c *Core) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	msg := entry.Message
	if entry.LoggerName != "" {
		msg = entry.LoggerName + ": " + msg
	}
	if len(enc.Fields) > 0 {
		keys := make([]string, 0, len(enc.Fields))
		for k := range enc.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString(msg)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, enc.Fields[k])
		}
		msg = b.String()
	}
	return c.sink.Emit(Level(entry.Level), msg)
}

// Sync is a no-op; destinations write through.
func (c *Core) Sync() error {
	return nil
}
