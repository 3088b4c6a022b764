// Command aicg is the process entrypoint for every role in the system:
// the HTTP controller, the task worker pool, the polling sweeper, schema
// migration, and a one-shot assembly debugger, each a cobra subcommand the
// way the teacher's server/cmd and worker/cmd binaries would be if they
// were one process instead of two.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
