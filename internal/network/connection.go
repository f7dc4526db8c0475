// Package network implements the TCP listener and line-framed
// connection handling for client communication.
package network

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxFrameLength bounds one inbound line. A client exceeding it is
// disconnected; resynchronizing inside an overlong line is not
// possible with line framing.
const MaxFrameLength = 8 * 1024

// WriteTimeout bounds one outbound frame write.
const WriteTimeout = 10 * time.Second

// Conn wraps a client TCP connection with newline framing: one
// message per line, no newlines inside a frame.
type Conn struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Scanner
	logger zerolog.Logger

	connectedAt  time.Time
	lastActivity time.Time

	closed bool
}

// NewConn wraps an accepted net.Conn.
func NewConn(conn net.Conn) *Conn {
	now := time.Now()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), MaxFrameLength)
	return &Conn{
		conn:         conn,
		reader:       scanner,
		connectedAt:  now,
		lastActivity: now,
		logger:       log.With().Str("component", "connection").Str("remote", conn.RemoteAddr().String()).Logger(),
	}
}

// ReadFrame reads one line from the connection, blocking until a
// frame arrives or the timeout passes. Carriage returns are stripped.
func (c *Conn) ReadFrame(timeout time.Duration) (string, error) {
	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
	}
	if !c.reader.Scan() {
		if err := c.reader.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("connection closed by peer")
	}
	frame := strings.TrimRight(c.reader.Text(), "\r")

	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
	return frame, nil
}

// Send writes one frame plus the line terminator. Safe for concurrent
// use; a frame is never interleaved with another.
func (c *Conn) Send(frame string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection is closed")
	}
	c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	if _, err := c.conn.Write([]byte(frame + "\n")); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	c.lastActivity = time.Now()
	return nil
}

// Close closes the connection. Idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Info().Msg("connection closed")
	return c.conn.Close()
}

// IsClosed returns whether Close has been called.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LastActivity returns the time of the last read or write.
func (c *Conn) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// ConnectedAt returns the time the connection was accepted.
func (c *Conn) ConnectedAt() time.Time {
	return c.connectedAt
}

// RemoteAddr returns the remote address as a string.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
