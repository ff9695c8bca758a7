package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"loghelper/internal/destination"
	"loghelper/internal/domain"
	"loghelper/internal/format"
	"loghelper/internal/severity"
	"loghelper/internal/theme"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LOGHELPER_"

// LogDirEnv, when set, makes Ensure bootstrap without prompting.
const LogDirEnv = EnvPrefix + "LOG_DIR"

// ErrInvalidConfig wraps every problem reported by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Destination describes one destination to attach. Pointer fields left nil
// are omitted and resolve to the helper defaults, also on replay.
type Destination struct {
	Kind     domain.DestinationKind `yaml:"kind"`
	Path     string                 `yaml:"path,omitempty"`
	Level    *severity.Level        `yaml:"level,omitempty"`
	Format   *string                `yaml:"format,omitempty"`
	Color    bool                   `yaml:"color,omitempty"`
	When     string                 `yaml:"when,omitempty"`
	Interval *int                   `yaml:"interval,omitempty"`
	Backups  *int                   `yaml:"backups,omitempty"`
	AtTime   string                 `yaml:"at_time,omitempty"`
}

// Config is the persisted description of a helper.
type Config struct {
	Name             string          `yaml:"name"`
	Level            *severity.Level `yaml:"level,omitempty"`
	DestinationLevel *severity.Level `yaml:"destination_level,omitempty"`
	Format           string          `yaml:"format,omitempty"`
	KeepExisting     bool            `yaml:"keep_existing,omitempty"`
	Theme            string          `yaml:"theme,omitempty"`
	Destinations     []Destination   `yaml:"destinations,omitempty"`
	CopyTo           []string        `yaml:"copy_to,omitempty"`
}

// overrides are the settings that can be replaced from the environment.
type overrides struct {
	Name             string `env:"NAME"`
	Level            string `env:"LEVEL"`
	DestinationLevel string `env:"DESTINATION_LEVEL"`
	Format           string `env:"FORMAT"`
}

// Defaults returns the configuration used on first run: a coloured console
// destination on the sink named "app".
func Defaults() Config {
	return Config{
		Name:  "app",
		Theme: theme.Default,
		Destinations: []Destination{
			{Kind: domain.KindConsole, Color: true},
		},
	}
}

// Ensure loads configuration from the provided path, prompting the user to
// create one if it does not yet exist.
func Ensure(ctx context.Context, path string) (Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	cfg = Defaults()
	if err := bootstrap(ctx, &cfg); err != nil {
		return Config{}, err
	}

	if err := Save(path, cfg); err != nil {
		return Config{}, err
	}

	return ApplyEnv(cfg)
}

// Load reads configuration from disk, applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if strings.TrimSpace(cfg.Theme) == "" {
		cfg.Theme = theme.Default
	}
	cfg, err = ApplyEnv(cfg)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes configuration back to disk, ensuring directory permissions are restrictive.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	temp := path + ".tmp"
	if err := os.WriteFile(temp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(temp, path)
}

// ApplyEnv replaces settings with the LOGHELPER_ variables that are set.
func ApplyEnv(cfg Config) (Config, error) {
	var o overrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	if o.Name != "" {
		cfg.Name = o.Name
	}
	if o.Level != "" {
		level, err := severity.Parse(o.Level)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %sLEVEL: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.Level = &level
	}
	if o.DestinationLevel != "" {
		level, err := severity.Parse(o.DestinationLevel)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %sDESTINATION_LEVEL: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.DestinationLevel = &level
	}
	if o.Format != "" {
		cfg.Format = o.Format
	}
	return cfg, nil
}

// Validate reports every problem in cfg at once.
func (c Config) Validate() error {
	var errs []error

	if c.Format != "" {
		if _, err := format.New(c.Format); err != nil {
			errs = append(errs, err)
		}
	}
	for i, d := range c.Destinations {
		if err := d.validate(); err != nil {
			errs = append(errs, fmt.Errorf("destinations[%d]: %w", i, err))
		}
	}
	for i, name := range c.CopyTo {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("copy_to[%d]: sink name cannot be empty", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (d Destination) validate() error {
	var errs []error

	switch d.Kind {
	case domain.KindConsole:
	case domain.KindFile, domain.KindTimedFile, domain.KindDatabase:
		if strings.TrimSpace(d.Path) == "" {
			errs = append(errs, fmt.Errorf("%s destination requires a path", d.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", d.Kind))
	}

	if d.Format != nil {
		if _, err := format.New(*d.Format); err != nil {
			errs = append(errs, err)
		}
	}

	if d.Kind == domain.KindTimedFile {
		if d.When != "" {
			if _, err := destination.ParseRotationUnit(d.When); err != nil {
				errs = append(errs, err)
			}
		}
		if d.Interval != nil && *d.Interval < 1 {
			errs = append(errs, fmt.Errorf("%w: interval must be at least 1", destination.ErrInvalidRotation))
		}
		if d.Backups != nil && *d.Backups < 0 {
			errs = append(errs, fmt.Errorf("%w: backups must not be negative", destination.ErrInvalidRotation))
		}
		if d.AtTime != "" {
			if _, err := destination.ParseTimeOfDay(d.AtTime); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func bootstrap(ctx context.Context, cfg *Config) error {
	if fromEnv := strings.TrimSpace(os.Getenv(LogDirEnv)); fromEnv != "" {
		resolved, err := expandPath(fromEnv)
		if err != nil {
			return err
		}
		return addLogDir(cfg, resolved)
	}

	questions := []*survey.Question{
		{
			Name: "name",
			Prompt: &survey.Input{
				Message: "Sink name",
				Default: cfg.Name,
			},
			Validate: survey.Required,
		},
		{
			Name: "log_dir",
			Prompt: &survey.Input{
				Message: "Directory for log files (empty for console only)",
			},
		},
		{
			Name: "destination_level",
			Prompt: &survey.Select{
				Message: "Default destination threshold",
				Options: severity.Names(),
				Default: severity.Info.String(),
			},
		},
		{
			Name: "theme",
			Prompt: &survey.Select{
				Message: "Color theme",
				Options: theme.Names(),
				Default: cfg.Theme,
			},
		},
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	answers := struct {
		Name             string `survey:"name"`
		LogDir           string `survey:"log_dir"`
		DestinationLevel string `survey:"destination_level"`
		Theme            string `survey:"theme"`
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return fmt.Errorf("initialisation interrupted")
		}
		return err
	}

	cfg.Name = strings.TrimSpace(answers.Name)
	if cfg.Name == "" {
		return fmt.Errorf("sink name cannot be empty")
	}
	cfg.Theme = answers.Theme

	level, err := severity.Parse(answers.DestinationLevel)
	if err != nil {
		return err
	}
	if level != severity.Info {
		cfg.DestinationLevel = &level
	}

	dir := strings.TrimSpace(answers.LogDir)
	if dir == "" {
		return nil
	}
	resolved, err := expandPath(dir)
	if err != nil {
		return err
	}
	return addLogDir(cfg, resolved)
}

// addLogDir creates dir and adds a daily rotated file for cfg.Name in it.
func addLogDir(cfg *Config, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	cfg.Destinations = append(cfg.Destinations, Destination{
		Kind: domain.KindTimedFile,
		Path: filepath.Join(dir, cfg.Name+".log"),
		When: string(destination.Midnight),
	})
	return nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
