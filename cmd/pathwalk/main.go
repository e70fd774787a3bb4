package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err == flag.ErrHelp {
		os.Exit(1)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "-h", "--help", "help":
		usage()
		return flag.ErrHelp
	case "explore":
		return NewExploreCommand().Run(ctx, args)
	default:
		return fmt.Errorf(`pathwalk %s: unknown command`, cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `
Pathwalk is a tool for bounded symbolic exploration of functions.

Usage:

	pathwalk <command> [arguments]

The commands are:

	explore     enumerate the feasible paths of a function
	help        this screen
`[1:])
}
