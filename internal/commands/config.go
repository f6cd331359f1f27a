package commands

import "time"

// CommonConfig contains configuration common to all commands
type CommonConfig struct {
	// DataDir is the path to the data directory
	DataDir string `help:"Path to data directory" default:"./data" env:"SPECTRAL_DATA_DIR"`
	// LogLevel is the logging level to use
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"warn" enum:"debug,info,warn,error"`
}

// RelayConfig contains the flags a search host uses to deliver results back
// to the process that launched it.
type RelayConfig struct {
	// SourceEndpoint is the endpoint name the launching process listens on.
	// Empty disables the relay.
	SourceEndpoint string `help:"Endpoint name of the launching process to deliver results to" env:"SPECTRAL_SOURCE_ENDPOINT"`
	// SourceName identifies this plugin to the receiving side.
	SourceName string `help:"Name this process announces itself as" default:"spectral-search" env:"SPECTRAL_SOURCE_NAME"`
	// PluginGUID is the identity the launching process assigned this
	// plugin instance at startup. Generated if not supplied.
	PluginGUID string `help:"Plugin instance GUID assigned by the launching process" env:"SPECTRAL_PLUGIN_GUID"`
	// Linger is how long the announced result region stays mapped after
	// notification. The protocol has no acknowledgement, so this is the
	// window the source has to map the region.
	Linger time.Duration `help:"How long to keep the announced result region alive" default:"5s" env:"SPECTRAL_RELAY_LINGER"`
}
