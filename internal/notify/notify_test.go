package notify

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/spectral-search-sdk/internal/types"
	"github.com/lox/spectral-search-sdk/internal/wire"
)

func TestSocketPathDerivation(t *testing.T) {
	a := SocketPath("/run", ResultsToSourceMessage)
	b := SocketPath("/run", ResultsToSourceMessage)
	c := SocketPath("/run", "some-other-message")

	assert.Equal(t, a, b, "same name must register the same endpoint")
	assert.NotEqual(t, a, c, "different names must not collide")
}

func TestFrameRoundTrip(t *testing.T) {
	in := Message{Handle: "/run/results-abc.shm", Size: 1234}
	out, err := parseFrame(appendFrame(nil, in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseFrameRejectsGarbage(t *testing.T) {
	_, err := parseFrame(nil)
	assert.Error(t, err)

	_, err = parseFrame([]byte("definitely not a frame"))
	assert.Error(t, err)

	// Valid frame with a lying handle length.
	frame := appendFrame(nil, Message{Handle: "/x", Size: 8})
	_, err = parseFrame(frame[:len(frame)-1])
	assert.Error(t, err)
}

func TestAnnounceListenRoundTrip(t *testing.T) {
	runDir := t.TempDir()
	logger := log.New(io.Discard)

	received := make(chan []wire.Result, 1)
	listener, err := NewListener(runDir, ResultsToSourceMessage, logger, func(results []wire.Result) {
		cp := make([]wire.Result, len(results))
		copy(cp, results)
		received <- cp
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	results := []types.SearchResult{
		{
			Flags: types.MatchFlagSpectralSearchResult,
			Match: types.Match{Percentage: 91.25, Name: "Polyethylene"},
		},
		{
			Flags:           types.MatchFlagComponent | types.MatchFlagLocked,
			Match:           types.Match{Percentage: 33.0, Name: "溶媒", Locked: true},
			ComponentWeight: 0.4,
		},
	}

	announcer := NewAnnouncer(runDir, listener.Endpoint(), logger, WithLinger(100*time.Millisecond))
	require.NoError(t, announcer.Announce(ctx, results))

	select {
	case got := <-received:
		require.Len(t, got, 2)
		assert.Equal(t, types.MatchFlagSpectralSearchResult, got[0].Flags)
		assert.InDelta(t, 0.9125, got[0].MatchPercentage, 1e-12, "wire percentage is 0-1")
		assert.Equal(t, "Polyethylene", got[0].Name)
		assert.Equal(t, "溶媒", got[1].Name)
		assert.InDelta(t, 0.4, got[1].ComponentWeight, 1e-12)
	case <-time.After(5 * time.Second):
		t.Fatal("listener never received the announcement")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not shut down")
	}
}

func TestAnnounceNoListener(t *testing.T) {
	runDir := t.TempDir()
	logger := log.New(io.Discard)

	announcer := NewAnnouncer(runDir, SocketPath(runDir, "nobody-home"), logger, WithLinger(0))
	err := announcer.Announce(context.Background(), nil)
	assert.Error(t, err, "announcing with no registered listener fails after retries")
}

func TestListenerDiscardsMalformedBuffer(t *testing.T) {
	runDir := t.TempDir()
	logger := log.New(io.Discard)

	called := false
	listener, err := NewListener(runDir, ResultsToSourceMessage, logger, func([]wire.Result) {
		called = true
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	// Hand-write a frame pointing at a region that is not a result buffer.
	conn, err := net.Dial("unix", listener.Endpoint())
	require.NoError(t, err)
	_, err = conn.Write(appendFrame(nil, Message{Handle: "/nonexistent.shm", Size: 64}))
	require.NoError(t, err)
	conn.Close()

	// Listener must survive and keep serving.
	time.Sleep(200 * time.Millisecond)
	assert.False(t, called, "handler must not run for a discarded message")

	cancel()
	<-done
}
