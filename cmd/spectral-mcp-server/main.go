package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/lox/spectral-search-sdk/internal/commands"
	"github.com/lox/spectral-search-sdk/internal/mcp"
)

type CLI struct {
	commands.CommonConfig
}

func (c *CLI) Run() error {
	logger := commands.SetupLogger(c.CommonConfig)

	eng, db, cleanup, err := commands.SetupEngine(c.CommonConfig, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := eng.Warm(context.Background()); err != nil {
		return fmt.Errorf("failed to warm search engine: %w", err)
	}

	return mcp.New(db, eng, logger).Run()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("spectral-mcp-server"),
		kong.Description("MCP server exposing the spectrum library and search engine"),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
