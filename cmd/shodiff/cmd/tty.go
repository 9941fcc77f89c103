package cmd

import (
	"fmt"
	"os"
)

// isStdoutTTY returns true if stdout is connected to a terminal.
func isStdoutTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// resolveColor determines whether to use color output based on flags and TTY status.
// colorFlag is the --color value: "auto", "always", or "never".
// NO_COLOR in the environment behaves like --no-color.
func resolveColor(colorFlag string, noColorFlag bool) (bool, error) {
	if noColorFlag || os.Getenv("NO_COLOR") != "" {
		return false, nil
	}
	switch colorFlag {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		return isStdoutTTY(), nil
	default:
		return false, fmt.Errorf("--color %q: want auto, always or never", colorFlag)
	}
}
