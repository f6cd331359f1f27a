package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/schollz/progressbar/v3"

	"github.com/lox/spectral-search-sdk/internal/commands"
	"github.com/lox/spectral-search-sdk/internal/library"
	"github.com/lox/spectral-search-sdk/internal/specio"
	"github.com/lox/spectral-search-sdk/internal/types"
	"github.com/lox/spectral-search-sdk/internal/vectors"
)

type CLI struct {
	commands.CommonConfig

	Add       AddCmd       `cmd:"" help:"Import reference spectra from CSV or JSON files."`
	List      ListCmd      `cmd:"" help:"List reference spectra."`
	Search    SearchCmd    `cmd:"" help:"Full-text search spectra by compound or library name."`
	Delete    DeleteCmd    `cmd:"" help:"Delete a spectrum by ID."`
	Libraries LibrariesCmd `cmd:"" help:"List libraries and their spectrum counts."`
}

type AddCmd struct {
	Files      []string `arg:"" help:"Spectrum files to import (.csv or .json)" type:"existingfile"`
	Technique  string   `help:"Measurement technique for files that don't carry one" default:"ftir" enum:"ftir,atr-ir,raman,vapor-phase-ir,ms"`
	Library    string   `help:"Library name to file the spectra under"`
	Licensed   bool     `help:"Mark the spectra as licensed" default:"true" negatable:""`
	FirstX     float64  `help:"First X value for single-column CSV input"`
	LastX      float64  `help:"Last X value for single-column CSV input"`
	NoProgress bool     `help:"Disable progress bar" default:"false"`
}

func (c *AddCmd) Run(cli *CLI) error {
	logger := commands.SetupLogger(cli.CommonConfig)

	technique, _ := types.ParseTechnique(c.Technique)
	defaults := specio.Defaults{
		Library:   c.Library,
		Licensed:  c.Licensed,
		Technique: technique,
		XUnit:     types.XUnitWavenumbers,
		YUnit:     types.YUnitAbsorbance,
		FirstX:    c.FirstX,
		LastX:     c.LastX,
	}

	db, err := commands.SetupLibrary(cli.CommonConfig, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	index, err := vectors.New(cli.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}

	ctx := context.Background()

	var spectra []types.Spectrum
	for _, file := range c.Files {
		batch, err := specio.ReadAll(file, defaults)
		if err != nil {
			return err
		}
		spectra = append(spectra, batch...)
	}

	var bar *progressbar.ProgressBar
	if !c.NoProgress {
		bar = progressbar.NewOptions(len(spectra),
			progressbar.OptionSetDescription("Importing spectra"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount())
	}

	for _, s := range spectra {
		id, err := db.Add(ctx, s)
		if err != nil {
			return err
		}
		s.ID = id
		if err := index.Add(ctx, s); err != nil {
			return err
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}

	logger.Info("Import complete", "spectra", len(spectra))
	fmt.Printf("Imported %d spectra\n", len(spectra))
	return nil
}

type ListCmd struct {
	Technique string `help:"Filter by measurement technique" enum:",ftir,atr-ir,raman,vapor-phase-ir,ms" default:""`
	Limit     int    `help:"Maximum number of spectra to list" default:"50"`
}

func (c *ListCmd) Run(cli *CLI) error {
	logger := commands.SetupLogger(cli.CommonConfig)

	db, err := commands.SetupLibrary(cli.CommonConfig, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := []library.QueryOption{library.WithLimit(c.Limit)}
	if c.Technique != "" {
		technique, _ := types.ParseTechnique(c.Technique)
		opts = append(opts, library.WithTechnique(technique))
	}

	spectra, err := db.List(context.Background(), opts...)
	if err != nil {
		return err
	}

	for _, s := range spectra {
		printSpectrum(s)
	}
	return nil
}

type SearchCmd struct {
	Query string `arg:"" help:"Compound or library name to search for"`
	Limit int    `help:"Maximum number of results" default:"10"`
}

func (c *SearchCmd) Run(cli *CLI) error {
	logger := commands.SetupLogger(cli.CommonConfig)

	db, err := commands.SetupLibrary(cli.CommonConfig, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	matches, err := db.SearchByName(context.Background(), c.Query, c.Limit)
	if err != nil {
		return err
	}

	for _, m := range matches {
		printSpectrum(m.Spectrum)
	}
	return nil
}

type DeleteCmd struct {
	ID string `arg:"" help:"Spectrum ID to delete"`
}

func (c *DeleteCmd) Run(cli *CLI) error {
	logger := commands.SetupLogger(cli.CommonConfig)

	db, err := commands.SetupLibrary(cli.CommonConfig, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	index, err := vectors.New(cli.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}

	ctx := context.Background()
	if err := db.DeleteByID(ctx, c.ID); err != nil {
		return err
	}
	if err := index.Remove(ctx, c.ID); err != nil {
		logger.Warn("Failed to remove spectrum from index", "id", c.ID, "error", err)
	}

	fmt.Printf("Deleted %s\n", c.ID)
	return nil
}

type LibrariesCmd struct{}

func (c *LibrariesCmd) Run(cli *CLI) error {
	logger := commands.SetupLogger(cli.CommonConfig)

	db, err := commands.SetupLibrary(cli.CommonConfig, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	libraries, err := db.Libraries(context.Background())
	if err != nil {
		return err
	}

	for name, count := range libraries {
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%-30s %d spectra\n", name, count)
	}
	return nil
}

func printSpectrum(s types.Spectrum) {
	licensed := ""
	if !s.Licensed {
		licensed = " [unlicensed]"
	}
	library := s.Library
	if library == "" {
		library = "-"
	}
	fmt.Printf("%s  %-12s %-20s %s%s (%g to %g, %d points)\n",
		s.ID, s.Technique, library, s.Name, licensed, s.FirstX, s.LastX, s.Points())
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("spectral-library"),
		kong.Description("Manage the reference spectrum library"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
