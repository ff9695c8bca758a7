package sink

import (
	"errors"
	"fmt"
	"sync"

	"loghelper/internal/domain"
	"loghelper/internal/severity"
)

const defaultRootThreshold = severity.Warning

// Destination is an output attached to a sink. Implementations must be safe
// for concurrent use.
type Destination interface {
	Kind() domain.DestinationKind
	Threshold() severity.Level
	Handle(rec domain.Record) error
	Close() error
}

// Observer receives dispatch outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	RecordAccepted(rec domain.Record)
	RecordDropped(rec domain.Record)
	Delivered(sinkName string, kind domain.DestinationKind)
	DeliveryFailed(sinkName string, kind domain.DestinationKind)
}

// Sink is a named dispatcher holding a threshold and an ordered list of
// destinations.
type Sink struct {
	registry *Registry
	name     string

	mu           sync.RWMutex
	threshold    severity.Level
	disabled     bool
	propagate    bool
	destinations []Destination
}

func newSink(r *Registry, name string) *Sink {
	return &Sink{
		registry:  r,
		name:      name,
		threshold: severity.NotSet,
		propagate: true,
	}
}

func (s *Sink) Name() string {
	return s.name
}

// Parent returns the sink records propagate to, or nil for the root sink.
func (s *Sink) Parent() *Sink {
	return s.registry.parentOf(s.name)
}

func (s *Sink) SetThreshold(level severity.Level) {
	s.mu.Lock()
	s.threshold = level
	s.mu.Unlock()
}

func (s *Sink) Threshold() severity.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// EffectiveThreshold walks up the hierarchy until it finds a sink whose
// threshold is set.
func (s *Sink) EffectiveThreshold() severity.Level {
	for current := s; current != nil; current = current.Parent() {
		if level := current.Threshold(); level != severity.NotSet {
			return level
		}
	}
	return severity.NotSet
}

// IsEnabledFor reports whether a record at level passes the sink gate.
func (s *Sink) IsEnabledFor(level severity.Level) bool {
	return s.Enabled() && level >= s.EffectiveThreshold()
}

func (s *Sink) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.disabled = !enabled
	s.mu.Unlock()
}

func (s *Sink) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.disabled
}

func (s *Sink) SetPropagate(propagate bool) {
	s.mu.Lock()
	s.propagate = propagate
	s.mu.Unlock()
}

func (s *Sink) Propagates() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.propagate
}

// AddDestination appends d. Adding the same destination twice is a no-op.
func (s *Sink) AddDestination(d Destination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.destinations {
		if existing == d {
			return
		}
	}
	s.destinations = append(s.destinations, d)
}

// RemoveDestination detaches d and reports whether it was attached.
func (s *Sink) RemoveDestination(d Destination) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.destinations {
		if existing == d {
			s.destinations = append(s.destinations[:i:i], s.destinations[i+1:]...)
			return true
		}
	}
	return false
}

// ClearDestinations detaches every destination and returns them. They are
// not closed.
func (s *Sink) ClearDestinations() []Destination {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.destinations
	s.destinations = nil
	return removed
}

// Destinations returns a copy of the attached destinations in attachment order.
func (s *Sink) Destinations() []Destination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Destination, len(s.destinations))
	copy(out, s.destinations)
	return out
}

// Emit dispatches a record and returns the joined errors of every
// destination that failed to handle it.
func (s *Sink) Emit(level severity.Level, msg string) error {
	rec := domain.Record{
		Name:    s.name,
		Level:   level,
		Message: msg,
		Time:    s.registry.now(),
	}

	observer := s.registry.observer
	if !s.IsEnabledFor(level) {
		if observer != nil {
			observer.RecordDropped(rec)
		}
		return nil
	}
	if observer != nil {
		observer.RecordAccepted(rec)
	}

	var errs []error
	for current := s; current != nil; current = current.Parent() {
		for _, d := range current.Destinations() {
			if level < d.Threshold() {
				continue
			}
			if err := d.Handle(rec); err != nil {
				errs = append(errs, fmt.Errorf("%s %s destination: %w", current.name, d.Kind(), err))
				if observer != nil {
					observer.DeliveryFailed(current.name, d.Kind())
				}
				continue
			}
			if observer != nil {
				observer.Delivered(current.name, d.Kind())
			}
		}
		if !current.Propagates() {
			break
		}
	}
	return errors.Join(errs...)
}

// Log emits msg and reports any destination failure to the registry
// diagnostics logger.
func (s *Sink) Log(level severity.Level, msg string) {
	if err := s.Emit(level, msg); err != nil {
		s.registry.diag.Error("failed to deliver record", "sink", s.name, "level", level.String(), "error", err)
	}
}

// Logf formats its arguments with fmt.Sprintf before logging.
func (s *Sink) Logf(level severity.Level, format string, args ...interface{}) {
	s.Log(level, fmt.Sprintf(format, args...))
}

func (s *Sink) Debug(msg string)    { s.Log(severity.Debug, msg) }
func (s *Sink) Info(msg string)     { s.Log(severity.Info, msg) }
func (s *Sink) Warning(msg string)  { s.Log(severity.Warning, msg) }
func (s *Sink) Error(msg string)    { s.Log(severity.Error, msg) }
func (s *Sink) Critical(msg string) { s.Log(severity.Critical, msg) }

func (s *Sink) Debugf(format string, args ...interface{}) {
	s.Logf(severity.Debug, format, args...)
}

func (s *Sink) Infof(format string, args ...interface{}) {
	s.Logf(severity.Info, format, args...)
}

func (s *Sink) Warningf(format string, args ...interface{}) {
	s.Logf(severity.Warning, format, args...)
}

func (s *Sink) Errorf(format string, args ...interface{}) {
	s.Logf(severity.Error, format, args...)
}

func (s *Sink) Criticalf(format string, args ...interface{}) {
	s.Logf(severity.Critical, format, args...)
}
