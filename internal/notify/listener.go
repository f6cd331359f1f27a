package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/spectral-search-sdk/internal/shm"
	"github.com/lox/spectral-search-sdk/internal/wire"
)

// maxFrameSize bounds a notification frame; handles are filesystem paths so
// anything larger is garbage.
const maxFrameSize = 64 * 1024

// Handler receives decoded results from one notification. The slice is only
// valid for the duration of the call.
type Handler func(results []wire.Result)

// Listener is the source-application side of the protocol: it registers a
// message name, accepts notifications, maps the announced region read-only,
// decodes it and hands the results to a handler.
//
// Per the ownership contract the listener never releases the region; it
// closes only its own view.
type Listener struct {
	messageName string
	socketPath  string
	logger      *log.Logger
	handler     Handler

	ln net.Listener
}

// NewListener registers messageName under runDir.
func NewListener(runDir, messageName string, logger *log.Logger, handler Handler) (*Listener, error) {
	if err := os.MkdirAll(runDir, 0o700); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	path := SocketPath(runDir, messageName)
	// A stale socket from a dead process blocks the listen; remove it.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("register message %q: %w", messageName, err)
	}
	return &Listener{
		messageName: messageName,
		socketPath:  path,
		logger:      logger,
		handler:     handler,
		ln:          ln,
	}, nil
}

// Endpoint returns the socket path a producer needs to reach this listener.
// This is the value handed to the producer as a startup parameter.
func (l *Listener) Endpoint() string {
	return l.socketPath
}

// Run accepts notifications until the context is cancelled. Malformed frames
// and undecodable buffers are logged and discarded: the protocol defines no
// recovery path, so the listener just moves on.
func (l *Listener) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return l.ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := l.ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("accept notification: %w", err)
			}
			l.handleConn(conn)
		}
	})

	return g.Wait()
}

func (l *Listener) handleConn(conn net.Conn) {
	defer conn.Close()

	frame, err := io.ReadAll(io.LimitReader(conn, maxFrameSize))
	if err != nil {
		l.logger.Warn("Failed to read notification frame", "error", err)
		return
	}
	msg, err := parseFrame(frame)
	if err != nil {
		l.logger.Warn("Discarding malformed notification", "error", err)
		return
	}

	view, err := shm.Open(msg.Handle, int(msg.Size))
	if err != nil {
		l.logger.Warn("Failed to map announced region", "handle", msg.Handle, "error", err)
		return
	}
	// Borrowed view only; the producer releases the region itself.
	defer view.Close()

	results, err := wire.Decode(view.Bytes())
	if err != nil {
		l.logger.Warn("Discarding undecodable result buffer", "handle", msg.Handle, "error", err)
		return
	}

	l.logger.Info("Received results from producer", "message", l.messageName, "results", len(results))
	l.handler(results)
}
