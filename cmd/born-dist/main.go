// Package main provides the born-dist CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
)

const version = "v0.1.0-dev"

func usage(w io.Writer) {
	fmt.Fprintln(w, "born-dist - distributed layer core")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version                 Show version")
	fmt.Fprintln(w, "  describe <model.yaml>   Build the described layers and print their descriptions")
	fmt.Fprintln(w, "  train [flags]           Train a bigram model over a simulated process grid")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stdout)
		return 0
	}
	var err error
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "born-dist %s\n", version)
	case "describe":
		err = describe(args[1:], stdout)
	case "train":
		err = train(ctx, args[1:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "born-dist %s: %v\n", args[0], err)
		return 1
	}
	return 0
}
