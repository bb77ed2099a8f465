// Command condsql compiles filter text into SQL conditions and renders
// schema DDL, alter scripts and changeset queries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/condsql/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
