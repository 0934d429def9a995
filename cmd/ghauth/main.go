package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	root := newRootCommand(a)
	if err := root.ExecuteContext(ctx); err != nil {
		a.status.Fail("%v", err)
		stop()
		os.Exit(1)
	}
}
