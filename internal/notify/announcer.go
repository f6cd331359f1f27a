package notify

import (
	"context"
	"fmt"
	"net"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"

	"github.com/lox/spectral-search-sdk/internal/shm"
	"github.com/lox/spectral-search-sdk/internal/types"
	"github.com/lox/spectral-search-sdk/internal/wire"
)

const (
	dialTimeout  = 2 * time.Second
	dialAttempts = 3
	// regionLinger is how long a published region stays mapped after the
	// notification is written. The protocol has no acknowledgement, so the
	// producer keeps the region alive long enough for the consumer to map
	// it, then releases it; the consumer never does.
	regionLinger = 30 * time.Second
)

// Announcer publishes encoded results as shared memory regions and notifies
// a source application endpoint.
type Announcer struct {
	runDir   string
	endpoint string
	logger   *log.Logger
	linger   time.Duration
}

// AnnouncerOption adjusts announcer behaviour.
type AnnouncerOption func(*Announcer)

// WithLinger overrides how long a region stays alive after announcement.
func WithLinger(d time.Duration) AnnouncerOption {
	return func(a *Announcer) {
		a.linger = d
	}
}

// NewAnnouncer targets the source application's registered message endpoint.
func NewAnnouncer(runDir, endpoint string, logger *log.Logger, opts ...AnnouncerOption) *Announcer {
	a := &Announcer{
		runDir:   runDir,
		endpoint: endpoint,
		logger:   logger,
		linger:   regionLinger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Announce encodes results, publishes them as a region and sends one
// notification frame. It blocks through the linger period and then releases
// the region; the notification itself is fire-and-forget with no
// acknowledgement or retry after a written frame.
func (a *Announcer) Announce(ctx context.Context, results []types.SearchResult) error {
	buf := wire.Encode(wire.FromSearchResults(results))

	region, err := shm.Create(a.runDir, buf)
	if err != nil {
		return fmt.Errorf("publish result region: %w", err)
	}
	// The producer owns the region and releases it; see regionLinger.
	defer func() {
		if err := region.Close(); err != nil {
			a.logger.Warn("Failed to release result region", "error", err)
		}
	}()

	a.logger.Info("Announcing results to source",
		"endpoint", a.endpoint,
		"results", len(results),
		"bytes", region.Size())

	if err := a.send(ctx, Message{Handle: region.Handle(), Size: uint32(region.Size())}); err != nil {
		return err
	}

	select {
	case <-time.After(a.linger):
	case <-ctx.Done():
	}
	return nil
}

// send dials the endpoint with bounded retry and writes a single frame.
func (a *Announcer) send(ctx context.Context, m Message) error {
	frame := appendFrame(nil, m)

	err := retry.Do(
		func() error {
			dialer := net.Dialer{Timeout: dialTimeout}
			conn, err := dialer.DialContext(ctx, "unix", a.endpoint)
			if err != nil {
				return fmt.Errorf("dial source endpoint: %w", err)
			}
			defer conn.Close()
			if _, err := conn.Write(frame); err != nil {
				return fmt.Errorf("write notification frame: %w", err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(dialAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			a.logger.Warn("Retrying result notification", "attempt", n+1, "max_attempts", dialAttempts, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("notify source application: %w", err)
	}
	return nil
}
