package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/lox/spectral-search-sdk/internal/commands"
	"github.com/lox/spectral-search-sdk/internal/engine"
	"github.com/lox/spectral-search-sdk/internal/notify"
	"github.com/lox/spectral-search-sdk/internal/specio"
	"github.com/lox/spectral-search-sdk/internal/types"
)

type CLI struct {
	commands.CommonConfig
	commands.RelayConfig

	Query      string  `arg:"" help:"Path to the query spectrum file (.csv or .json)" type:"existingfile"`
	Technique  string  `help:"Measurement technique of the query" default:"ftir" enum:"ftir,atr-ir,raman,vapor-phase-ir,ms"`
	Kind       string  `help:"Search kind" default:"spectral" enum:"spectral,peak,mixture"`
	Limit      int     `help:"Maximum number of matches to return" default:"10"`
	FirstX     float64 `help:"First X value for single-column CSV input"`
	LastX      float64 `help:"Last X value for single-column CSV input"`
	NoProgress bool    `help:"Disable progress bar" default:"false"`
}

func (c *CLI) Run() error {
	logger := commands.SetupLogger(c.CommonConfig)

	technique, _ := types.ParseTechnique(c.Technique)
	query, err := specio.ReadFile(c.Query, specio.Defaults{
		Technique: technique,
		XUnit:     types.XUnitWavenumbers,
		YUnit:     types.YUnitAbsorbance,
		FirstX:    c.FirstX,
		LastX:     c.LastX,
	})
	if err != nil {
		return err
	}

	eng, _, cleanup, err := commands.SetupEngine(c.CommonConfig, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	if err := eng.Warm(ctx); err != nil {
		return fmt.Errorf("failed to warm search engine: %w", err)
	}

	session, err := eng.Open()
	if err != nil {
		return fmt.Errorf("failed to open search session: %w", err)
	}
	defer eng.CloseSession(session)

	// A SIGINT cancels the running search rather than killing the process;
	// a second one falls through to the default handler.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info("Cancelling search")
		eng.Cancel(session)
		signal.Stop(sigs)
	}()
	defer signal.Stop(sigs)

	done := make(chan struct{})
	if !c.NoProgress {
		bar := progressbar.NewOptions(100,
			progressbar.OptionSetDescription("Searching"),
			progressbar.OptionSetWriter(os.Stderr))
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					fmt.Fprint(os.Stderr, "\r\033[K")
					return
				case <-ticker.C:
					if pct, err := eng.Progress(session); err == nil {
						bar.Set(int(pct))
					}
				}
			}
		}()
	}

	var kind engine.SearchKind
	switch c.Kind {
	case "peak":
		kind = engine.KindPeak
	case "mixture":
		kind = engine.KindMixture
	default:
		kind = engine.KindSpectral
	}

	buf := make([]types.SearchResult, c.Limit)
	n, err := eng.Search(ctx, session, query, buf, engine.WithKind(kind))
	close(done)
	if err != nil {
		return err
	}

	for _, r := range buf[:n] {
		printResult(r)
	}
	if n == 0 {
		fmt.Println("No matches found.")
	}

	if c.SourceEndpoint != "" {
		return c.relayResults(ctx, logger, buf[:n])
	}
	return nil
}

// relayResults delivers the results back to the launching process over the
// result transfer protocol. The endpoint is either a socket path or a
// registered message name.
func (c *CLI) relayResults(ctx context.Context, logger *log.Logger, results []types.SearchResult) error {
	endpoint := c.SourceEndpoint
	if !strings.ContainsRune(endpoint, os.PathSeparator) {
		endpoint = notify.SocketPath(notify.RunDir(), endpoint)
	}

	plugin := c.PluginGUID
	if plugin == "" {
		plugin = uuid.NewString()
	}
	logger.Info("Relaying results to source", "plugin", plugin, "name", c.SourceName, "endpoint", endpoint)

	announcer := notify.NewAnnouncer(notify.RunDir(), endpoint, logger, notify.WithLinger(c.Linger))
	return announcer.Announce(ctx, results)
}

func printResult(r types.SearchResult) {
	var role string
	switch {
	case r.Flags&types.MatchFlagComposite != 0:
		role = " (composite)"
	case r.Flags&types.MatchFlagResidual != 0:
		role = " (residual)"
	case r.Flags&types.MatchFlagComponent != 0:
		role = fmt.Sprintf(" (component, weight %.3f)", r.ComponentWeight)
	}
	locked := ""
	if r.Locked {
		locked = " [locked]"
	}
	fmt.Printf("%6.2f%%  %s%s%s\n", r.Percentage, r.Name, role, locked)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("spectral-search"),
		kong.Description("Identify an unknown spectrum against the reference library"),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
