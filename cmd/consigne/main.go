// Command consigne inspects SQLite schemas and compiles and runs
// schema-aware query requests against them.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/consigne/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands render their own failures; anything else comes from flag
	// parsing or argument validation.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
