package config

import (
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"

	"loghelper/internal/destination"
	"loghelper/internal/domain"
	"loghelper/internal/format"
	"loghelper/internal/logging"
	"loghelper/internal/severity"
	"loghelper/internal/sink"
)

// BuildOptions carries the runtime collaborators a configuration cannot
// describe.
type BuildOptions struct {
	Registry    *sink.Registry
	Stdout      io.Writer
	Clock       func() time.Time
	Diagnostics hclog.Logger
}

// Build creates a helper from cfg, attaches its destinations in order and
// replays them onto every sink named in CopyTo. When an attachment fails
// everything attached so far is closed.
func Build(cfg Config, opts BuildOptions) (*logging.Helper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	helperOpts := logging.Options{
		Name:         cfg.Name,
		Level:        optionalLevel(cfg.Level),
		KeepExisting: cfg.KeepExisting,
		Registry:     opts.Registry,
		Stdout:       opts.Stdout,
		Theme:        cfg.Theme,
		Diagnostics:  opts.Diagnostics,
		Clock:        opts.Clock,
	}
	helperOpts.DestinationLevel = optionalLevel(cfg.DestinationLevel)
	if cfg.Format != "" {
		f, err := format.New(cfg.Format)
		if err != nil {
			return nil, err
		}
		helperOpts.Format = f
	}

	h := logging.New(helperOpts)
	for i, d := range cfg.Destinations {
		if err := attach(h, d); err != nil {
			h.Close()
			return nil, fmt.Errorf("destinations[%d]: %w", i, err)
		}
	}
	if len(cfg.CopyTo) > 0 {
		if _, err := h.ReplayAll(cfg.CopyTo...); err != nil {
			h.Close()
			return nil, err
		}
	}
	return h, nil
}

func attach(h *logging.Helper, d Destination) error {
	level := optionalLevel(d.Level)
	var formatter logging.Optional[*format.Formatter]
	if d.Format != nil {
		f, err := format.New(*d.Format)
		if err != nil {
			return err
		}
		formatter = logging.Some(f)
	}

	switch d.Kind {
	case domain.KindConsole:
		h.AddConsole(logging.ConsoleArgs{Level: level, Format: formatter, Color: d.Color})
		return nil
	case domain.KindFile:
		_, err := h.AddFile(logging.FileArgs{Path: d.Path, Level: level, Format: formatter})
		return err
	case domain.KindTimedFile:
		args := logging.TimedFileArgs{
			Path:     d.Path,
			When:     d.When,
			Interval: optionalInt(d.Interval),
			Backups:  optionalInt(d.Backups),
			Level:    level,
			Format:   formatter,
		}
		if d.AtTime != "" {
			at, err := destination.ParseTimeOfDay(d.AtTime)
			if err != nil {
				return err
			}
			args.AtTime = logging.Some(at)
		}
		_, err := h.AddTimedFile(args)
		return err
	case domain.KindDatabase:
		_, err := h.AddDatabase(logging.DatabaseArgs{Path: d.Path, Level: level, Format: formatter})
		return err
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, d.Kind)
	}
}

func optionalLevel(level *severity.Level) logging.Optional[severity.Level] {
	if level == nil {
		return logging.None[severity.Level]()
	}
	return logging.Some(*level)
}

func optionalInt(n *int) logging.Optional[int] {
	if n == nil {
		return logging.None[int]()
	}
	return logging.Some(*n)
}
