// Package main is the entry point for the mod-loader application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/alexflint/go-arg"

	"github.com/joe/mod-loader/internal/config"
)

func main() {
	cfg, parser, err := config.Parse(os.Args[1:])

	switch {
	case errors.Is(err, arg.ErrHelp):
		parser.WriteHelpForSubcommand(os.Stdout, parser.SubcommandNames()...) //nolint:errcheck // Best effort

		return
	case errors.Is(err, arg.ErrVersion):
		fmt.Println(config.Config{}.Version())

		return
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, cfg, os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}
