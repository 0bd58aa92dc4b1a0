package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/assetgrid/internal/app"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "assetgrid.hcl"

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Command is one parsed invocation.
type Command struct {
	Name   string // run, watch or list
	Target string // task or alias name for run and watch
	Config *app.Config
}

// Parse processes command-line arguments. It returns the command to run, a
// boolean indicating if the program should exit cleanly, or an ExitError
// with ExitUsage.
func Parse(args []string, output io.Writer) (*Command, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("assetgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
assetgrid - A dependency-aware asset build orchestrator.

Usage:
  assetgrid [options] run <name>     Run a task or alias once.
  assetgrid [options] watch <name>   Run, then rebuild on source changes until interrupted.
  assetgrid [options] list           List tasks and aliases.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", DefaultConfigPath, "Path to an .hcl file, a directory of .hcl files, or a .yaml file.")
	cFlag := flagSet.String("c", "", "Path to the configuration (shorthand).")
	logLevel := flagSet.String("log-level", "", "Override the settings log level: debug, info, warn or error.")
	logFormat := flagSet.String("log-format", "", "Override the settings log format: text or json.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	path := *configFlag
	if *cFlag != "" {
		path = *cFlag
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, false, &ExitError{Code: ExitUsage, Message: "a command is required: run, watch or list"}
	}

	cmd := &Command{Name: rest[0]}
	switch cmd.Name {
	case "run", "watch":
		if len(rest) != 2 {
			return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("usage: assetgrid %s <name>", cmd.Name)}
		}
		cmd.Target = rest[1]
	case "list":
		if len(rest) != 1 {
			return nil, false, &ExitError{Code: ExitUsage, Message: "usage: assetgrid list"}
		}
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unknown command %q: must be run, watch or list", cmd.Name)}
	}

	config, err := app.NewConfig(app.Config{
		ConfigPath: path,
		LogLevel:   *logLevel,
		LogFormat:  *logFormat,
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	cmd.Config = config

	slog.Debug("CLI parser finished successfully.", "command", cmd.Name, "target", cmd.Target, "config", path)
	return cmd, false, nil
}
