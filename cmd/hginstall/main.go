// Package main is the entry point for the hginstall CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/watchthelight/hginstall/cmd/hginstall/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commands.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
