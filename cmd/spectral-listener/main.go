package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/spectral-search-sdk/internal/notify"
	"github.com/lox/spectral-search-sdk/internal/wire"
)

type CLI struct {
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"info" enum:"debug,info,warn,error"`
	Message  string `help:"Message name to register" default:"${default_message}"`
}

func (c *CLI) Run() error {
	logger := log.New(os.Stderr)
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", "error", err)
	}
	logger.SetLevel(level)

	listener, err := notify.NewListener(notify.RunDir(), c.Message, logger, printResults)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Listening for results on %s\n", listener.Endpoint())
	fmt.Fprintf(os.Stderr, "Launch searches with --source-endpoint=%s\n", c.Message)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return listener.Run(ctx)
}

func printResults(results []wire.Result) {
	fmt.Printf("Received %d results:\n", len(results))
	for _, r := range results {
		weight := ""
		if r.ComponentWeight > 0 {
			weight = fmt.Sprintf("  weight=%.3f", r.ComponentWeight)
		}
		fmt.Printf("  %6.2f%%  flags=%#x%s  %s\n", r.MatchPercentage*100, r.Flags, weight, r.Name)
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("spectral-listener"),
		kong.Description("Receive search results over the result transfer protocol"),
		kong.UsageOnError(),
		kong.Vars{"default_message": notify.ResultsToSourceMessage},
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
