// Package logging removes the boilerplate of configuring a sink: it sets the
// sink threshold, attaches console, file, time-rotated file and database
// destinations sharing a default threshold and format, and remembers what it
// attached so the same setup can be replayed onto other sinks.
//
//	h := logging.New(logging.Options{Name: "myapp.someclass", DestinationLevel: logging.Some(severity.Debug)})
//	if _, err := h.AddFile(logging.FileArgs{Path: "myapp.log"}); err != nil {
//		return err
//	}
//	h.Sink().Info("hello world")
//
// A Helper is not safe for concurrent use, and neither is configuring the
// same sink name from several helpers at once: every operation is a
// sequence of independent updates on shared sinks and the last write wins.
package logging

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"

	"loghelper/internal/destination"
	"loghelper/internal/domain"
	"loghelper/internal/format"
	"loghelper/internal/severity"
	"loghelper/internal/sink"
	"loghelper/internal/theme"
)

// Defaults applied when New or AddTimedFile leave a value omitted.
const (
	DefaultLevel            = severity.Debug
	DefaultDestinationLevel = severity.Info
	DefaultWhen             = destination.Days
	DefaultInterval         = 1
	DefaultBackups          = 14
)

// Options configures New. The zero value targets the root sink of the
// process-wide registry and clears its existing destinations.
type Options struct {
	// Name selects the sink; empty selects the root sink.
	Name string
	// Level is the sink threshold. Defaults to DEBUG.
	Level Optional[severity.Level]
	// DestinationLevel is the threshold of destinations attached without
	// one. Defaults to INFO.
	DestinationLevel Optional[severity.Level]
	// Format is the formatter of destinations attached without one.
	// Defaults to format.Default.
	Format *format.Formatter
	// KeepExisting leaves destinations already on the sink in place.
	// Otherwise they are removed without being closed; Close the previous
	// helper of the same sink to release its files.
	KeepExisting bool

	Registry    *sink.Registry
	Stdout      io.Writer
	Theme       string
	Diagnostics hclog.Logger
	// Clock drives rotation decisions of timed rotating files.
	Clock func() time.Time
}

// ConsoleArgs are the arguments of AddConsole.
type ConsoleArgs struct {
	Level  Optional[severity.Level]
	Format Optional[*format.Formatter]
	Color  bool
}

// FileArgs are the arguments of AddFile.
type FileArgs struct {
	Path   string
	Level  Optional[severity.Level]
	Format Optional[*format.Formatter]
}

// TimedFileArgs are the arguments of AddTimedFile.
type TimedFileArgs struct {
	Path string
	// When is the rotation unit, DefaultWhen if empty.
	When     string
	Interval Optional[int]
	Backups  Optional[int]
	AtTime   Optional[destination.TimeOfDay]
	Level    Optional[severity.Level]
	Format   Optional[*format.Formatter]
}

// DatabaseArgs are the arguments of AddDatabase.
type DatabaseArgs struct {
	Path   string
	Level  Optional[severity.Level]
	Format Optional[*format.Formatter]
}

// Attachment records a destination added through a Helper and the raw
// arguments it was added with. Args holds one of ConsoleArgs, FileArgs,
// TimedFileArgs or DatabaseArgs.
type Attachment struct {
	Kind domain.DestinationKind
	Args interface{}
}

// Helper owns the configuration of one sink.
type Helper struct {
	registry  *sink.Registry
	sink      *sink.Sink
	level     severity.Level
	destLevel severity.Level
	formatter *format.Formatter
	stdout    io.Writer
	theme     theme.Theme
	clock     func() time.Time
	diag      hclog.Logger

	attachments []Attachment
	owned       map[sink.Destination]*sink.Sink
}

// New resolves the sink named in opts and prepares it for new destinations.
func New(opts Options) *Helper {
	registry := opts.Registry
	if registry == nil {
		registry = sink.Default()
	}
	formatter := opts.Format
	if formatter == nil {
		formatter = format.Standard()
	}
	diag := opts.Diagnostics
	if diag == nil {
		diag = registry.Diagnostics().Named("helper")
	}

	h := &Helper{
		registry:  registry,
		sink:      registry.Get(opts.Name),
		level:     opts.Level.Or(DefaultLevel),
		destLevel: opts.DestinationLevel.Or(DefaultDestinationLevel),
		formatter: formatter,
		stdout:    opts.Stdout,
		theme:     theme.ForName(opts.Theme),
		clock:     opts.Clock,
		diag:      diag,
		owned:     make(map[sink.Destination]*sink.Sink),
	}

	if !opts.KeepExisting {
		h.reset(h.sink)
	}
	h.sink.SetThreshold(h.level)
	return h
}

// Sink returns the configured sink, ready for logging.
func (h *Helper) Sink() *sink.Sink {
	return h.sink
}

func (h *Helper) Registry() *sink.Registry {
	return h.registry
}

func (h *Helper) Level() severity.Level {
	return h.level
}

// SetLevel changes the threshold applied by replay and re-applies it to the
// helper's own sink.
func (h *Helper) SetLevel(level severity.Level) {
	h.level = level
	h.sink.SetThreshold(level)
}

func (h *Helper) DestinationLevel() severity.Level {
	return h.destLevel
}

// SetDestinationLevel changes the default threshold. Destinations already
// attached keep theirs; replay resolves omitted thresholds against the new
// value.
func (h *Helper) SetDestinationLevel(level severity.Level) {
	h.destLevel = level
}

func (h *Helper) Format() *format.Formatter {
	return h.formatter
}

// SetFormat changes the default formatter; nil restores format.Default.
// Like SetDestinationLevel it only affects later attachments and replays.
func (h *Helper) SetFormat(formatter *format.Formatter) {
	if formatter == nil {
		formatter = format.Standard()
	}
	h.formatter = formatter
}

// Attachments returns a copy of the replay record in attachment order.
func (h *Helper) Attachments() []Attachment {
	out := make([]Attachment, len(h.attachments))
	copy(out, h.attachments)
	return out
}

// AddConsole attaches a destination writing to standard output.
func (h *Helper) AddConsole(args ConsoleArgs) *destination.Console {
	c := h.buildConsole(args)
	h.attach(h.sink, c)
	h.attachments = append(h.attachments, Attachment{Kind: domain.KindConsole, Args: args})
	return c
}

// AddFile attaches a destination appending to args.Path.
func (h *Helper) AddFile(args FileArgs) (*destination.File, error) {
	f, err := h.buildFile(args)
	if err != nil {
		return nil, err
	}
	h.attach(h.sink, f)
	h.attachments = append(h.attachments, Attachment{Kind: domain.KindFile, Args: args})
	return f, nil
}

// AddTimedFile attaches a destination appending to args.Path and rotating it
// every Interval units of When, keeping at most Backups rotated files.
func (h *Helper) AddTimedFile(args TimedFileArgs) (*destination.TimedRotatingFile, error) {
	t, err := h.buildTimedFile(args)
	if err != nil {
		return nil, err
	}
	h.attach(h.sink, t)
	h.attachments = append(h.attachments, Attachment{Kind: domain.KindTimedFile, Args: args})
	return t, nil
}

// AddDatabase attaches a destination storing records in a SQLite file.
func (h *Helper) AddDatabase(args DatabaseArgs) (*destination.Database, error) {
	d, err := h.buildDatabase(args)
	if err != nil {
		return nil, err
	}
	h.attach(h.sink, d)
	h.attachments = append(h.attachments, Attachment{Kind: domain.KindDatabase, Args: args})
	return d, nil
}

// Replay applies the recorded configuration to each named sink (the root
// sink when no name is given) and returns the last one.
func (h *Helper) Replay(names ...string) (*sink.Sink, error) {
	targets, err := h.ReplayAll(names...)
	if err != nil {
		return nil, err
	}
	return targets[len(targets)-1], nil
}

// ReplayAll is Replay returning every target in order. On error the targets
// already processed are returned along with it; the failing target is left
// untouched.
func (h *Helper) ReplayAll(names ...string) ([]*sink.Sink, error) {
	if len(names) == 0 {
		names = []string{""}
	}
	targets := make([]*sink.Sink, 0, len(names))
	for _, name := range names {
		target, err := h.replayOnto(name)
		if err != nil {
			return targets, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// Close detaches and closes every destination this helper created,
// including the ones created by replay.
func (h *Helper) Close() error {
	var errs []error
	for d, s := range h.owned {
		s.RemoveDestination(d)
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	h.owned = make(map[sink.Destination]*sink.Sink)
	return errors.Join(errs...)
}

func (h *Helper) replayOnto(name string) (*sink.Sink, error) {
	built := make([]sink.Destination, 0, len(h.attachments))
	for _, att := range h.attachments {
		d, err := h.build(att)
		if err != nil {
			for _, b := range built {
				b.Close()
			}
			return nil, fmt.Errorf("replay onto %q: %w", name, err)
		}
		built = append(built, d)
	}

	target := h.registry.Get(name)
	target.SetThreshold(h.level)
	h.reset(target)
	for _, d := range built {
		h.attach(target, d)
	}
	h.diag.Debug("replayed configuration", "source", h.sink.Name(), "target", target.Name(), "destinations", len(built))
	return target, nil
}

// reset removes every destination from s, closing the ones this helper
// created, and makes sure s is enabled and propagating.
func (h *Helper) reset(s *sink.Sink) {
	for _, d := range s.ClearDestinations() {
		if _, ok := h.owned[d]; !ok {
			continue
		}
		delete(h.owned, d)
		if err := d.Close(); err != nil {
			h.diag.Warn("failed to close detached destination", "sink", s.Name(), "kind", d.Kind(), "error", err)
		}
	}
	s.SetEnabled(true)
	s.SetPropagate(true)
}

func (h *Helper) attach(s *sink.Sink, d sink.Destination) {
	s.AddDestination(d)
	h.owned[d] = s
	h.diag.Trace("attached destination", "sink", s.Name(), "kind", d.Kind(), "threshold", d.Threshold().String())
}

func (h *Helper) build(att Attachment) (sink.Destination, error) {
	switch args := att.Args.(type) {
	case ConsoleArgs:
		return h.buildConsole(args), nil
	case FileArgs:
		return h.buildFile(args)
	case TimedFileArgs:
		return h.buildTimedFile(args)
	case DatabaseArgs:
		return h.buildDatabase(args)
	default:
		return nil, fmt.Errorf("unsupported attachment %s (%T)", att.Kind, att.Args)
	}
}

func (h *Helper) buildConsole(args ConsoleArgs) *destination.Console {
	var opts []destination.ConsoleOption
	if args.Color {
		opts = append(opts, destination.WithColor(h.theme))
	}
	return destination.NewConsole(h.stdout, args.Level.Or(h.destLevel), args.Format.Or(h.formatter), opts...)
}

func (h *Helper) buildFile(args FileArgs) (*destination.File, error) {
	f, err := destination.OpenFile(args.Path, args.Level.Or(h.destLevel), args.Format.Or(h.formatter))
	if err != nil {
		return nil, fmt.Errorf("add file destination: %w", err)
	}
	return f, nil
}

func (h *Helper) buildTimedFile(args TimedFileArgs) (*destination.TimedRotatingFile, error) {
	when := destination.RotationUnit(args.When)
	if args.When == "" {
		when = DefaultWhen
	}
	rotation := destination.Rotation{
		Unit:     when,
		Interval: args.Interval.Or(DefaultInterval),
		Backups:  args.Backups.Or(DefaultBackups),
	}
	if at, ok := args.AtTime.Get(); ok {
		rotation.AtTime = &at
	}

	var opts []destination.TimedOption
	if h.clock != nil {
		opts = append(opts, destination.WithRotationClock(h.clock))
	}
	t, err := destination.OpenTimedRotatingFile(args.Path, rotation, args.Level.Or(h.destLevel), args.Format.Or(h.formatter), opts...)
	if err != nil {
		return nil, fmt.Errorf("add timed file destination: %w", err)
	}
	return t, nil
}

func (h *Helper) buildDatabase(args DatabaseArgs) (*destination.Database, error) {
	d, err := destination.OpenDatabase(args.Path, args.Level.Or(h.destLevel), args.Format.Or(h.formatter))
	if err != nil {
		return nil, fmt.Errorf("add database destination: %w", err)
	}
	return d, nil
}
