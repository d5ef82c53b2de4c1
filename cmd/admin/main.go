package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/mediadrop/internal/admin"
	"github.com/dmitrijs2005/mediadrop/internal/server/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one admin command and returns the process exit code. The
// database is closed before returning.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: mediadrop-admin <command> [flags] [args] (try 'help')")
		return 2
	}
	cmd := args[0]

	flags, rest, err := admin.SplitArgs(args[1:])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.LoadFrom(flags)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	ctx := context.Background()
	app, err := admin.NewApp(ctx, cfg, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer app.Close()

	if err := app.Execute(ctx, cmd, rest); err != nil {
		fmt.Fprintln(stderr, err)
		if errors.Is(err, admin.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}
