package commands

import (
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayConfigDefaults(t *testing.T) {
	var cli struct {
		RelayConfig
	}
	parser, err := kong.New(&cli)
	require.NoError(t, err)

	_, err = parser.Parse(nil)
	require.NoError(t, err)

	assert.Empty(t, cli.SourceEndpoint, "relay is off unless an endpoint is given")
	assert.Equal(t, "spectral-search", cli.SourceName)
	assert.Equal(t, 5*time.Second, cli.Linger)
}

func TestRelayConfigLingerFlag(t *testing.T) {
	var cli struct {
		RelayConfig
	}
	parser, err := kong.New(&cli)
	require.NoError(t, err)

	_, err = parser.Parse([]string{"--linger=250ms", "--source-endpoint=host"})
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cli.Linger)
	assert.Equal(t, "host", cli.SourceEndpoint)
}
