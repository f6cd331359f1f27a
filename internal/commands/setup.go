package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lox/spectral-search-sdk/internal/engine"
	"github.com/lox/spectral-search-sdk/internal/library"
	"github.com/lox/spectral-search-sdk/internal/vectors"
)

// SetupLogger builds the logger every command shares.
func SetupLogger(config CommonConfig) *log.Logger {
	logger := log.New(os.Stderr)

	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", "error", err)
	}
	logger.SetLevel(level)

	return logger
}

// SetupLibrary opens the spectrum library database under the data directory.
func SetupLibrary(config CommonConfig, logger *log.Logger) (*library.DB, error) {
	db, err := library.New(config.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open spectrum library: %w", err)
	}
	return db, nil
}

// SetupEngine opens the library, vector index, and search engine together.
// The returned cleanup closes all three.
func SetupEngine(config CommonConfig, logger *log.Logger) (*engine.Engine, *library.DB, func(), error) {
	db, err := SetupLibrary(config, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	index, err := vectors.New(config.DataDir, logger)
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	eng := engine.New(db, index, logger)

	cleanup := func() {
		eng.Close()
		if err := index.Close(); err != nil {
			logger.Warn("Failed to close vector index", "error", err)
		}
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close spectrum library", "error", err)
		}
	}
	return eng, db, cleanup, nil
}
