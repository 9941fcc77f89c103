// shodiff searches Shodan for a keyword and diffs the result against a stored
// baseline. Exit status: 0 success, 2 usage error, 1 any other failure.
package main

import (
	"os"

	"github.com/corey/shodiff/cmd/shodiff/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
