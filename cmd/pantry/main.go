package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/socialchef/pantry/internal/client"
	"github.com/socialchef/pantry/internal/tui"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pantry", flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaultURL := os.Getenv("PANTRY_URL")
	if defaultURL == "" {
		defaultURL = client.DefaultURL
	}
	url := fs.String("url", defaultURL, "recipe endpoint URL (env PANTRY_URL)")
	ingredients := fs.String("i", "", "generate a recipe for these ingredients and exit")
	token := fs.String("token", os.Getenv("PANTRY_TOKEN"), "bearer token when the server requires auth (env PANTRY_TOKEN)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []client.Option
	if *token != "" {
		opts = append(opts, client.WithToken(*token))
	}
	c := client.New(*url, opts...)

	if *ingredients == "" {
		if err := tui.Run(ctx, c); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	return oneShot(ctx, c, *ingredients, stdout, stderr)
}

// oneShot drives a single request through the view and prints the outcome.
func oneShot(ctx context.Context, gen tui.Generator, ingredients string, stdout, stderr io.Writer) int {
	view := client.NewView()
	view.Input = ingredients

	trimmed, ok := view.Submit()
	if !ok {
		fmt.Fprintln(stderr, view.Error())
		return 2
	}

	status, resp, err := gen.Generate(ctx, trimmed)
	if err != nil {
		view.Fail(err)
		fmt.Fprintf(stderr, "%s (%v)\n", view.Error(), err)
		return 1
	}
	view.Complete(status, resp)

	if view.State() != client.StateSuccess {
		fmt.Fprintln(stderr, view.Error())
		return 1
	}

	fmt.Fprintln(stdout, view.Recipe())
	if note := view.Note(); note != "" {
		fmt.Fprintf(stderr, "\nNote: %s\n", note)
	}
	return 0
}
