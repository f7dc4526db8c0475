package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// ReadTimeout is how long a connection may sit silent before the
	// read loop gives up on it.
	ReadTimeout = 5 * time.Minute

	// HandshakeTimeout bounds the wait for a client's first frame.
	HandshakeTimeout = 30 * time.Second
)

// Handler consumes the lifecycle of one client connection. The
// session layer implements it; the listener stays protocol-blind.
type Handler interface {
	// HandleConnect is called once per accepted connection before any
	// frame is read. It returns the connection's session ID.
	HandleConnect(ctx context.Context, conn *Conn) string

	// HandleFrame is called for every inbound frame in order.
	HandleFrame(ctx context.Context, id, frame string)

	// HandleDisconnect is called exactly once when the read loop ends.
	HandleDisconnect(ctx context.Context, id string)
}

// Listener accepts client TCP connections and runs one read loop per
// connection.
type Listener struct {
	addr     string
	handler  Handler
	listener net.Listener
}

// NewListener creates a listener bound later by Start.
func NewListener(addr string, handler Handler) *Listener {
	return &Listener{addr: addr, handler: handler}
}

// Start listens and accepts until the context is cancelled. Each
// accepted connection gets its own goroutine.
func (l *Listener) Start(ctx context.Context) error {
	// SO_REUSEADDR allows immediate rebinding after restart
	lc := ReuseAddrListenConfig()
	var err error
	l.listener, err = lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to start TCP listener on %s: %w", l.addr, err)
	}

	log.Info().Str("addr", l.addr).Msg("TCP listener started")

	go func() {
		<-ctx.Done()
		l.listener.Close()
	}()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				log.Info().Msg("TCP listener stopping")
				return nil
			default:
				log.Error().Err(err).Msg("failed to accept connection")
				continue
			}
		}

		log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("new client connection")
		go l.handleConnection(ctx, conn)
	}
}

// handleConnection runs one client's read loop: first frame under the
// handshake timeout, every later frame under the idle timeout. Frames
// are delivered to the handler in arrival order.
func (l *Listener) handleConnection(ctx context.Context, rawConn net.Conn) {
	conn := NewConn(rawConn)
	defer conn.Close()

	id := l.handler.HandleConnect(ctx, conn)
	defer l.handler.HandleDisconnect(ctx, id)

	logger := log.With().
		Str("component", "client_handler").
		Str("conn_id", id).
		Str("remote", conn.RemoteAddr()).
		Logger()

	timeout := HandshakeTimeout
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("context cancelled, closing connection")
			return
		default:
		}

		frame, err := conn.ReadFrame(timeout)
		if err != nil {
			if conn.IsClosed() {
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				logger.Warn().Dur("timeout", timeout).Msg("connection timed out")
				return
			}
			logger.Debug().Err(err).Msg("read ended, closing connection")
			return
		}
		timeout = ReadTimeout

		if frame == "" {
			continue
		}
		l.handler.HandleFrame(ctx, id, frame)
	}
}

// Stop closes the listening socket.
func (l *Listener) Stop() error {
	if l.listener != nil {
		return l.listener.Close()
	}
	return nil
}
