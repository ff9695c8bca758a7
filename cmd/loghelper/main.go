package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time with -ldflags.
	Version = "dev"
	// BuildDate is injected at build time with -ldflags.
	BuildDate = ""
)

const (
	appName  = "loghelper"
	appShort = "loghelper configures log sinks from a single description"
	appLong  = `loghelper attaches console, file, time-rotated file and database
	destinations to a named sink from one configuration file, and copies the
	same setup onto other sinks.`

	configFlagName       = "config"
	logLevelFlagName     = "log-level"
	logLevelDefaultValue = "warn"

	versionCmdName = "version"
	versionShort   = "Display the " + appName + " version"
)

var logLevelFlagUsage = "set the level of loghelper's own diagnostics (possible values: " +
	strings.Join([]string{"trace", "debug", "info", "warn", "error"}, ", ") + ")"

// rootFlags holds the persistent flags shared across the command tree.
type rootFlags struct {
	configPath string
	logLevel   string
}

func (f *rootFlags) addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.configPath, configFlagName, defaultConfigPath(), "path of the logging configuration")
	flags.StringVar(&f.logLevel, logLevelFlagName, logLevelDefaultValue, heredoc.Doc(logLevelFlagUsage))
}

// diagnostics returns the logger for loghelper's own messages.
func (f *rootFlags) diagnostics(cmd *cobra.Command) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   appName,
		Level:  hclog.LevelFromString(f.logLevel),
		Output: cmd.ErrOrStderr(),
	})
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	exitCode := 0
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		exitCode = 1
	}
	cancel()
	os.Exit(exitCode)
}

func rootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: heredoc.Doc(appShort),
		Long:  heredoc.Doc(appLong),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if hclog.LevelFromString(flags.logLevel) == hclog.NoLevel {
				return handleError(cmd, fmt.Errorf("invalid --%s %q", logLevelFlagName, flags.logLevel))
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln(err)
		_ = c.Usage()
		return err
	})

	flags.addFlags(cmd)
	cmd.AddCommand(
		initCmd(flags),
		emitCmd(flags),
		pipeCmd(flags),
		shellCmd(flags),
		versionCmd(),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   versionCmdName,
		Short: heredoc.Doc(versionShort),

		Args: func(cmd *cobra.Command, args []string) error {
			err := cobra.NoArgs(cmd, args)
			if err != nil {
				cmd.PrintErrln(err)
				_ = cmd.Usage()
			}

			return err
		},
		ValidArgsFunction: cobra.NoFileCompletions,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString(Version, BuildDate, runtime.Version()))
		},
	}
}

// versionString formats the version metadata for display.
func versionString(version, buildDate, runtimeVersion string) string {
	outputString := version
	if buildDate != "" {
		outputString += " (" + buildDate + ")"
	}

	return outputString + ", Go Version: " + runtimeVersion
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".loghelper", "logging.yaml")
	}
	return filepath.Join(home, ".loghelper", "logging.yaml")
}

// handleError prints err on the command's error stream and returns it.
// Missing arguments print the usage instead.
func handleError(cmd *cobra.Command, err error) error {
	if errors.Is(err, errMissingArguments) {
		cmd.PrintErrln(err)
		_ = cmd.Usage()
		return err
	}
	cmd.PrintErrln("error: " + err.Error())
	return err
}
