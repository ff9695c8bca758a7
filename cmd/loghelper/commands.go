package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"loghelper/internal/app"
	"loghelper/internal/bridge"
	"loghelper/internal/config"
	"loghelper/internal/logging"
	"loghelper/internal/metrics"
	"loghelper/internal/repl"
	"loghelper/internal/severity"
	"loghelper/internal/sink"
)

var errMissingArguments = errors.New("missing arguments")

const (
	initCmdShort = "create the logging configuration"
	initCmdLong  = `Create the logging configuration interactively.
	Set LOGHELPER_LOG_DIR to skip the questions and add a daily rotated file
	in that directory.`

	emitCmdUsage   = "emit LEVEL MESSAGE..."
	emitCmdShort   = "log one message through the configured destinations"
	emitCmdExample = `# Log a warning on the configured sink
	loghelper emit warning "disk almost full"

	# Log on another sink, which receives a copy of the configuration
	loghelper emit info --sink worker.queue "job started"`

	pipeCmdShort   = "log every line read from standard input"
	pipeCmdExample = `# Route the output of a script through the configured destinations
	./backup.sh 2>&1 | loghelper pipe --level info --sink backup`

	shellCmdShort = "start an interactive shell"

	sinkFlagName  = "sink"
	levelFlagName = "level"
)

func initCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: heredoc.Doc(initCmdShort),
		Long:  heredoc.Doc(initCmdLong),

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(root.configPath); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration already exists at %s.\n", root.configPath)
				return nil
			}
			cfg, err := config.Ensure(cmd.Context(), root.configPath)
			if err != nil {
				return handleError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration for sink %q written to %s.\n", cfg.Name, root.configPath)
			return nil
		},
	}
}

func emitCmd(root *rootFlags) *cobra.Command {
	var sinkName string
	cmd := &cobra.Command{
		Use:     emitCmdUsage,
		Short:   heredoc.Doc(emitCmdShort),
		Example: heredoc.Doc(emitCmdExample),

		ValidArgsFunction: levelCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return handleError(cmd, errMissingArguments)
			}
			level, err := severity.Parse(args[0])
			if err != nil {
				return handleError(cmd, err)
			}

			helper, target, err := configure(cmd, root, sinkName)
			if err != nil {
				return handleError(cmd, err)
			}
			defer helper.Close()

			if err := target.Emit(level, strings.Join(args[1:], " ")); err != nil {
				return handleError(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sinkName, sinkFlagName, "", "sink to log on (default: the configured sink)")
	return cmd
}

func pipeCmd(root *rootFlags) *cobra.Command {
	var (
		sinkName string
		level    string
	)
	cmd := &cobra.Command{
		Use:     "pipe",
		Short:   heredoc.Doc(pipeCmdShort),
		Example: heredoc.Doc(pipeCmdExample),

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := severity.Parse(level)
			if err != nil {
				return handleError(cmd, err)
			}

			helper, target, err := configure(cmd, root, sinkName)
			if err != nil {
				return handleError(cmd, err)
			}
			defer helper.Close()

			w := bridge.NewWriter(target, parsed)
			if _, err := io.Copy(w, cmd.InOrStdin()); err != nil {
				return handleError(cmd, err)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().StringVar(&sinkName, sinkFlagName, "", "sink to log on (default: the configured sink)")
	cmd.Flags().StringVar(&level, levelFlagName, "info", "level of every line")
	return cmd
}

func shellCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: heredoc.Doc(shellCmdShort),

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Ensure(cmd.Context(), root.configPath)
			if err != nil {
				return handleError(cmd, err)
			}

			application, err := app.NewWithDependencies(cfg, root.configPath, app.Dependencies{
				Metrics:     metrics.New(),
				Diagnostics: root.diagnostics(cmd),
			})
			if err != nil {
				return handleError(cmd, err)
			}
			defer application.Close()

			if err := repl.Run(cmd.Context(), application); err != nil {
				return handleError(cmd, err)
			}
			return nil
		},
	}
}

// configure builds the helper described by the configuration file and
// returns the sink to log on. A sink other than the configured one receives
// a replay of the configuration first.
func configure(cmd *cobra.Command, root *rootFlags, sinkName string) (*logging.Helper, *sink.Sink, error) {
	cfg, err := config.Load(root.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("no configuration at %s, run '%s init' first: %w", root.configPath, appName, err)
	}
	if err != nil {
		return nil, nil, err
	}

	diag := root.diagnostics(cmd)
	registry := sink.NewRegistry(sink.WithDiagnostics(diag))
	helper, err := config.Build(cfg, config.BuildOptions{
		Registry:    registry,
		Stdout:      cmd.OutOrStdout(),
		Diagnostics: diag.Named("helper"),
	})
	if err != nil {
		return nil, nil, err
	}

	target := helper.Sink()
	if sinkName != "" {
		requested := registry.Get(sinkName)
		if descendsFrom(requested, target) {
			// Descendants reach the configured destinations by propagation.
			target = requested
		} else {
			target, err = helper.Replay(sinkName)
			if err != nil {
				helper.Close()
				return nil, nil, err
			}
		}
	}
	diag.Debug("configured sink", "sink", target.Name(), "destinations", len(target.Destinations()))
	return helper, target, nil
}

// descendsFrom reports whether s is ancestor or lies below it.
func descendsFrom(s, ancestor *sink.Sink) bool {
	for ; s != nil; s = s.Parent() {
		if s == ancestor {
			return true
		}
	}
	return false
}

func levelCompletions(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := severity.Names()
	comps := make([]string, len(names))
	for i, name := range names {
		comps[i] = strings.ToLower(name)
	}
	return comps, cobra.ShellCompDirectiveNoFileComp
}
