// Command navbridge runs conformance scenarios against the navigation
// bridge, validates configuration and reads the traffic journal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/navbridge/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
