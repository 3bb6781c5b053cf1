// Package commands implements the markup command line.
package commands

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ifamed/markup-boilerplate/internal/config"
)

// EnvLogLevel overrides the log level when --verbose is not given.
const EnvLogLevel = "MARKUP_LOG_LEVEL"

// Global carries process-wide collaborators into commands.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"markup.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Env     string           `short:"e" name:"env" help:"Build mode: development or production (overrides MARKUP_ENV and NODE_ENV)"`
	Open    bool             `help:"Open the dev server in a browser"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Run tasks (default task when none given)"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	Tasks   TasksCmd   `cmd:"" help:"List the task graph (text or dot)"`
	History HistoryCmd `cmd:"" help:"Show recent pipeline runs"`
	Deploy  DeployCmd  `cmd:"" help:"Upload the destination tree to an S3-compatible bucket"`
	Verify  VerifyCmd  `cmd:"" help:"Check built HTML for missing local references"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := LevelFromEnv(os.Getenv(EnvLogLevel))
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	g.Logger = logger
	if g.Out == nil {
		g.Out = os.Stdout
	}
	return nil
}

// LevelFromEnv parses a level name, defaulting to info.
func LevelFromEnv(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig loads the configuration without opening the pipelines.
func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.Config, false)
}
