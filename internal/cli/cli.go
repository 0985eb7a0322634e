// Package cli parses the command line into application options.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/biosweep/internal/app"
)

// ExitError carries a specific process exit code alongside its message.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns populated Options, a
// boolean indicating the program should exit cleanly (help requested), or an
// ExitError.
func Parse(args []string, output io.Writer) (*app.Options, bool, error) {
	flagSet := flag.NewFlagSet("biosweep", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
biosweep - simulation API and experiment-sweep dispatcher.

Usage:
  biosweep [options]                 start the HTTP API server
  biosweep [options] -baseline FILE  plan and dispatch a sweep batch

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the HCL configuration file.")
	baselineFlag := flagSet.String("baseline", "", "Baseline YAML document to sweep. Omit to run the API server.")
	phasesFlag := flagSet.String("phases", "single", "Comma-separated sweep phases: noise, single, pair, grouped, sum.")
	outFlag := flagSet.String("out", "", "File to write batch outcomes to as JSON. Defaults to stdout.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	var phases []string
	for _, phase := range strings.Split(*phasesFlag, ",") {
		if phase = strings.TrimSpace(phase); phase != "" {
			phases = append(phases, phase)
		}
	}
	if *baselineFlag != "" && len(phases) == 0 {
		return nil, false, &ExitError{Code: 2, Message: "batch mode requires at least one phase"}
	}

	return &app.Options{
		ConfigPath:   *configFlag,
		BaselinePath: *baselineFlag,
		Phases:       phases,
		OutcomesPath: *outFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	}, false, nil
}
