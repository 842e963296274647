// Command seedsindex mirrors the participant registry and answers topic
// queries against the local copy.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/seedsindex/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
