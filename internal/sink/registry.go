package sink

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// RootName is the name reported by the root sink.
const RootName = "root"

// Registry maps names to sinks. Sinks are created on first lookup and live as
// long as the registry.
type Registry struct {
	mu       sync.RWMutex
	root     *Sink
	sinks    map[string]*Sink
	diag     hclog.Logger
	observer Observer
	now      func() time.Time
}

// Option customises a Registry.
type Option func(*Registry)

// WithDiagnostics routes destination failures reported by the convenience
// logging methods to logger.
func WithDiagnostics(logger hclog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.diag = logger
		}
	}
}

// WithObserver registers an observer notified of every dispatch outcome.
func WithObserver(observer Observer) Option {
	return func(r *Registry) {
		r.observer = observer
	}
}

// WithClock replaces time.Now as the source of record timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates an isolated registry holding only a root sink.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sinks: make(map[string]*Sink),
		diag: hclog.New(&hclog.LoggerOptions{
			Name:  "loghelper",
			Level: hclog.Warn,
		}),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.root = newSink(r, RootName)
	r.root.threshold = defaultRootThreshold
	return r
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Root returns the root sink.
func (r *Registry) Root() *Sink {
	return r.root
}

// Get returns the sink registered under name, creating it if needed. An
// empty name or "root" selects the root sink.
func (r *Registry) Get(name string) *Sink {
	if isRoot(name) {
		return r.root
	}

	r.mu.RLock()
	s, ok := r.sinks[name]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sinks[name]; ok {
		return s
	}
	s = newSink(r, name)
	r.sinks[name] = s
	return s
}

// Lookup returns the sink registered under name without creating it.
func (r *Registry) Lookup(name string) (*Sink, bool) {
	if isRoot(name) {
		return r.root, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sinks[name]
	return s, ok
}

// Names returns the names of every non-root sink, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Diagnostics returns the logger used for internal failures.
func (r *Registry) Diagnostics() hclog.Logger {
	return r.diag
}

// parentOf resolves the nearest existing ancestor of name along its dotted
// path, falling back to the root sink.
func (r *Registry) parentOf(name string) *Sink {
	if name == RootName {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := strings.LastIndexByte(name, '.'); i > 0; i = strings.LastIndexByte(name[:i], '.') {
		if s, ok := r.sinks[name[:i]]; ok {
			return s
		}
	}
	return r.root
}

func isRoot(name string) bool {
	return name == "" || name == RootName
}
