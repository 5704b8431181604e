// Command derelict drives a Vagrant installation: machine lifecycle, boxes,
// plugins and a local history of every command it ran.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// SIGINT is forwarded to vagrant by the executer while a command runs.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	code := execute(ctx, newApp(os.Stdout, os.Stderr), os.Args[1:])
	stop()
	os.Exit(code)
}
