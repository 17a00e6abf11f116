package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "vehiclectl"
)

var errUsage = errors.New("usage")

const usage = `usage: vehiclectl [-config <dir>] <command> [args]

commands:
  run <script.json>            drive a scripted session headless and record telemetry
  plot <run.json[.gz]|run.db> <outDir> [sessionId]
                               render speed, steer and torque charts
  sessions <run.db>            list sessions stored in a SQLite dump
  validate                     load and check the configuration
  version                      print the version
`

func main() {
	if err := dispatch(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// dispatch parses args by hand: an optional -config flag, then the command.
func dispatch(args []string, out io.Writer) error {
	configDir := "."
	if len(args) >= 2 && (args[0] == "-config" || args[0] == "--config") {
		configDir = args[1]
		args = args[2:]
	}
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "run":
		if len(rest) != 1 {
			return errUsage
		}
		return withApp(configDir, func(a *app) error {
			_, err := runScript(a, rest[0], out)
			return err
		})

	case "plot":
		if len(rest) < 2 || len(rest) > 3 {
			return errUsage
		}
		sessionID := ""
		if len(rest) == 3 {
			sessionID = rest[2]
		}
		return plotRun(rest[0], rest[1], sessionID, out)

	case "sessions":
		if len(rest) != 1 {
			return errUsage
		}
		return listSessions(rest[0], out)

	case "validate":
		return validate(configDir, out)

	case "version":
		fmt.Fprintf(out, "%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return nil

	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
}

func withApp(configDir string, fn func(a *app) error) error {
	a, err := newApp(configDir)
	if err != nil {
		return err
	}
	return errors.Join(fn(a), a.Close())
}
