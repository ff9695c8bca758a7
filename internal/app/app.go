package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/kballard/go-shellquote"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"loghelper/internal/config"
	"loghelper/internal/destination"
	"loghelper/internal/fuzzy"
	"loghelper/internal/logging"
	"loghelper/internal/metrics"
	"loghelper/internal/severity"
	"loghelper/internal/sink"
)

type commandHandler func(context.Context, []string) (CommandResult, error)

type command struct {
	usage   string
	summary string
	handler commandHandler
}

type CommandResult struct {
	Message string
	Quit    bool
}

// ErrNoDatabase is returned by tail when the current sink has no database
// destination.
var ErrNoDatabase = errors.New("no database destination attached")

// maxTail caps the number of records tail prints.
const maxTail = 1000

// App executes shell commands against the helper built from a configuration.
type App struct {
	config     config.Config
	configPath string
	registry   *sink.Registry
	helper     *logging.Helper
	metrics    *metrics.Metrics
	current    *sink.Sink
	commands   map[string]*command
	diag       hclog.Logger

	// console collects console destination output when no writer is given,
	// so the shell can print it with the command result.
	console *bytes.Buffer
}

// Dependencies overrides the collaborators New creates by default.
type Dependencies struct {
	Registry    *sink.Registry
	Metrics     *metrics.Metrics
	Stdout      io.Writer
	Clock       func() time.Time
	Diagnostics hclog.Logger
}

func New(cfg config.Config, configPath string) (*App, error) {
	return NewWithDependencies(cfg, configPath, Dependencies{})
}

func NewWithDependencies(cfg config.Config, configPath string, deps Dependencies) (*App, error) {
	diag := deps.Diagnostics
	if diag == nil {
		diag = hclog.NewNullLogger()
	}

	m := deps.Metrics
	if m == nil {
		m = metrics.NewWithRegistry(prometheus.NewRegistry())
	}

	registry := deps.Registry
	if registry == nil {
		registry = sink.NewRegistry(sink.WithDiagnostics(diag), sink.WithObserver(m))
	}

	application := &App{
		config:     cfg,
		configPath: configPath,
		registry:   registry,
		metrics:    m,
		commands:   make(map[string]*command),
		diag:       diag,
	}

	stdout := deps.Stdout
	if stdout == nil {
		application.console = &bytes.Buffer{}
		stdout = application.console
	}

	helper, err := config.Build(cfg, config.BuildOptions{
		Registry:    registry,
		Stdout:      stdout,
		Clock:       deps.Clock,
		Diagnostics: diag.Named("helper"),
	})
	if err != nil {
		return nil, err
	}
	application.helper = helper
	application.current = helper.Sink()
	application.registerCommands()

	return application, nil
}

func (a *App) Config() config.Config {
	return a.config
}

// Current returns the sink log commands write to.
func (a *App) Current() *sink.Sink {
	return a.current
}

func (a *App) CommandNames() []string {
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *App) Close() error {
	return a.helper.Close()
}

func (a *App) Execute(ctx context.Context, input string) (CommandResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return CommandResult{}, nil
	}

	args, err := shellquote.Split(input)
	if err != nil {
		return CommandResult{}, err
	}
	if len(args) == 0 {
		return CommandResult{}, nil
	}

	cmdName := strings.ToLower(args[0])
	cmd, ok := a.commands[cmdName]
	if !ok {
		if suggestion, found := fuzzy.Closest(cmdName, a.CommandNames()); found {
			return CommandResult{Message: fmt.Sprintf("unknown command: %s (did you mean %q?)", args[0], suggestion)}, nil
		}
		return CommandResult{Message: fmt.Sprintf("unknown command: %s", args[0])}, nil
	}

	return cmd.handler(ctx, args[1:])
}

func (a *App) registerCommands() {
	a.registerCommand("help", "help", "List available commands", a.helpCommand, "?")
	a.registerCommand("log", "log <level> <message>", "Log a message on the current sink", a.logCommand)
	for _, level := range []severity.Level{severity.Debug, severity.Info, severity.Warning, severity.Error, severity.Critical} {
		name := strings.ToLower(level.String())
		a.registerCommand(name, name+" <message>", "Log a "+level.String()+" message on the current sink", a.levelCommand(level))
	}
	a.commands["warn"] = a.commands["warning"]
	a.registerCommand("use", "use <sink>", "Switch the current sink (empty or root selects the root sink)", a.useCommand)
	a.registerCommand("level", "level [<level>]", "Show or set the threshold of the current sink", a.thresholdCommand)
	a.registerCommand("replay", "replay <sink>...", "Copy the configured destinations onto other sinks", a.replayCommand)
	a.registerCommand("sinks", "sinks [filter]", "List known sinks and their destinations", a.sinksCommand, "ls")
	a.registerCommand("stats", "stats", "Show record and delivery counters per sink", a.statsCommand)
	a.registerCommand("tail", "tail [n]", "Show the last records stored by a database destination", a.tailCommand)
	a.registerCommand("config", "config show", "View the active configuration", a.configCommand)
	a.registerCommand("exit", "exit", "Exit the application", a.exitCommand, "quit")
}

func (a *App) registerCommand(name, usage, summary string, handler commandHandler, aliases ...string) {
	cmd := &command{usage: usage, summary: summary, handler: handler}
	names := append([]string{name}, aliases...)
	for _, alias := range names {
		a.commands[alias] = cmd
	}
}

func (a *App) helpCommand(_ context.Context, _ []string) (CommandResult, error) {
	seen := make(map[*command]bool)
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, name := range a.CommandNames() {
		cmd := a.commands[name]
		if seen[cmd] {
			continue
		}
		seen[cmd] = true
		fmt.Fprintf(w, "%s\t%s\n", cmd.usage, cmd.summary)
	}
	w.Flush()
	return CommandResult{Message: strings.TrimRight(b.String(), "\n")}, nil
}

func (a *App) logCommand(ctx context.Context, args []string) (CommandResult, error) {
	if len(args) < 2 {
		return CommandResult{Message: "Usage: log <level> <message>"}, nil
	}
	level, err := severity.Parse(args[0])
	if err != nil {
		return CommandResult{}, err
	}
	return a.emit(level, strings.Join(args[1:], " "))
}

func (a *App) levelCommand(level severity.Level) commandHandler {
	return func(_ context.Context, args []string) (CommandResult, error) {
		if len(args) == 0 {
			return CommandResult{Message: fmt.Sprintf("Usage: %s <message>", strings.ToLower(level.String()))}, nil
		}
		return a.emit(level, strings.Join(args, " "))
	}
}

// emit logs on the current sink and returns what the console destinations
// printed.
func (a *App) emit(level severity.Level, msg string) (CommandResult, error) {
	err := a.current.Emit(level, msg)
	result := CommandResult{Message: a.drainConsole()}
	if err != nil {
		return result, err
	}
	if result.Message == "" && !a.current.IsEnabledFor(level) {
		result.Message = fmt.Sprintf("%s is below the threshold of %s (%s).", level, a.current.Name(), a.current.EffectiveThreshold())
	}
	return result, nil
}

func (a *App) drainConsole() string {
	if a.console == nil {
		return ""
	}
	out := strings.TrimRight(a.console.String(), "\n")
	a.console.Reset()
	return out
}

func (a *App) useCommand(_ context.Context, args []string) (CommandResult, error) {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	a.current = a.registry.Get(name)
	return CommandResult{Message: fmt.Sprintf("Using sink %s.", a.current.Name())}, nil
}

func (a *App) thresholdCommand(_ context.Context, args []string) (CommandResult, error) {
	if len(args) == 0 {
		return CommandResult{Message: fmt.Sprintf("%s: threshold %s, effective %s", a.current.Name(), a.current.Threshold(), a.current.EffectiveThreshold())}, nil
	}
	level, err := severity.Parse(args[0])
	if err != nil {
		return CommandResult{}, err
	}
	if a.current == a.helper.Sink() {
		a.helper.SetLevel(level)
	} else {
		a.current.SetThreshold(level)
	}
	return CommandResult{Message: fmt.Sprintf("Threshold of %s set to %s.", a.current.Name(), level)}, nil
}

func (a *App) replayCommand(_ context.Context, args []string) (CommandResult, error) {
	if len(args) == 0 {
		return CommandResult{Message: "Usage: replay <sink>..."}, nil
	}
	targets, err := a.helper.ReplayAll(args...)
	if err != nil {
		return CommandResult{}, err
	}
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name()
	}
	return CommandResult{Message: fmt.Sprintf("Replayed %d destinations onto %s.", len(a.helper.Attachments()), strings.Join(names, ", "))}, nil
}

func (a *App) sinksCommand(_ context.Context, args []string) (CommandResult, error) {
	filter := strings.Join(args, " ")

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SINK\tTHRESHOLD\tDESTINATIONS")
	count := 0
	for _, name := range append([]string{sink.RootName}, a.registry.Names()...) {
		if filter != "" && !fuzzy.ContainsFuzzy(name, filter) {
			continue
		}
		s := a.registry.Get(name)
		kinds := make([]string, 0)
		for _, d := range s.Destinations() {
			kinds = append(kinds, fmt.Sprintf("%s(%s)", d.Kind(), d.Threshold()))
		}
		marker := ""
		if s == a.current {
			marker = " *"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\n", s.Name(), marker, s.Threshold(), strings.Join(kinds, " "))
		count++
	}
	w.Flush()
	if count == 0 {
		return CommandResult{Message: "No sinks found."}, nil
	}
	return CommandResult{Message: strings.TrimRight(b.String(), "\n")}, nil
}

func (a *App) statsCommand(_ context.Context, _ []string) (CommandResult, error) {
	snapshot := a.metrics.Snapshot()
	if len(snapshot) == 0 {
		return CommandResult{Message: "No records yet."}, nil
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SINK\tACCEPTED\tDROPPED\tDELIVERED\tERRORS")
	for _, s := range snapshot {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", s.Sink, s.Accepted, s.Dropped, s.Delivered, s.DeliveryErrors)
	}
	w.Flush()
	return CommandResult{Message: strings.TrimRight(b.String(), "\n")}, nil
}

func (a *App) tailCommand(ctx context.Context, args []string) (CommandResult, error) {
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return CommandResult{Message: "Usage: tail [n]"}, nil
		}
		limit = min(n, maxTail)
	}

	var db *destination.Database
	for current := a.current; current != nil && db == nil; current = current.Parent() {
		for _, d := range current.Destinations() {
			if candidate, ok := d.(*destination.Database); ok {
				db = candidate
				break
			}
		}
	}
	if db == nil {
		return CommandResult{}, fmt.Errorf("%s: %w", a.current.Name(), ErrNoDatabase)
	}

	records, err := db.Recent(ctx, limit)
	if err != nil {
		return CommandResult{}, err
	}
	if len(records) == 0 {
		return CommandResult{Message: "No records stored."}, nil
	}
	total, err := db.Count(ctx, "")
	if err != nil {
		return CommandResult{}, err
	}
	lines := make([]string, 0, len(records)+1)
	for _, r := range records {
		lines = append(lines, r.Line)
	}
	lines = append(lines, fmt.Sprintf("(%d of %d stored records in %s)", len(records), total, db.Path()))
	return CommandResult{Message: strings.Join(lines, "\n")}, nil
}

func (a *App) configCommand(_ context.Context, args []string) (CommandResult, error) {
	if len(args) == 0 || strings.ToLower(args[0]) != "show" {
		return CommandResult{Message: "Usage: config show"}, nil
	}
	data, err := yaml.Marshal(a.config)
	if err != nil {
		return CommandResult{}, err
	}
	message := strings.TrimRight(string(data), "\n")
	if a.configPath != "" {
		message = "# " + a.configPath + "\n" + message
	}
	return CommandResult{Message: message}, nil
}

func (a *App) exitCommand(_ context.Context, _ []string) (CommandResult, error) {
	return CommandResult{Quit: true}, nil
}
