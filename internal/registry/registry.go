// Package registry tracks every live client connection and owns the
// nickname namespace. A nickname maps to at most one connection; a
// second connection presenting a nickname whose holder has gone quiet
// may take the name over atomically.
package registry

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hexhaven-project/hexhaven/internal/feature"
)

// MaxNicknameLength bounds nicknames at authentication.
const MaxNicknameLength = 20

// DefaultTakeoverTimeout is how long a nickname holder may be silent
// before a newcomer may claim the name.
const DefaultTakeoverTimeout = 30 * time.Second

// NicknameStatus is the outcome of a nickname availability check.
type NicknameStatus int

const (
	// NicknameOK means the name is free.
	NicknameOK NicknameStatus = iota
	// NicknameTakeover means the name is held by a connection that has
	// been silent past the takeover timeout; the caller may rebind it.
	NicknameTakeover
	// NicknameRejected means the name is malformed, reserved, or held
	// by an active connection.
	NicknameRejected
)

func (s NicknameStatus) String() string {
	switch s {
	case NicknameOK:
		return "OK"
	case NicknameTakeover:
		return "TAKEOVER"
	default:
		return "REJECTED"
	}
}

// Sender is the write side of a client connection as the registry
// needs it. The network layer's connection satisfies it.
type Sender interface {
	Send(frame string) error
	Close() error
	RemoteAddr() string
}

// Client is one registered connection.
type Client struct {
	ID       string // uuid, assigned at registration
	Nickname string // empty until authenticated
	Version  int    // negotiated client version, 0 until the handshake
	Features *feature.Set

	Conn        Sender
	ConnectedAt time.Time

	mu         sync.Mutex
	lastActive time.Time
}

// Touch records client activity; staleness checks key off it.
func (c *Client) Touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

// LastActive returns the most recent activity time.
func (c *Client) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Registry is the connection and nickname table.
type Registry struct {
	mu     sync.RWMutex
	logger zerolog.Logger

	takeoverTimeout time.Duration
	byID            map[string]*Client
	byNickname      map[string]*Client // key: lowercased nickname
}

// New creates a registry. A non-positive timeout selects the default.
func New(takeoverTimeout time.Duration) *Registry {
	if takeoverTimeout <= 0 {
		takeoverTimeout = DefaultTakeoverTimeout
	}
	return &Registry{
		logger:          log.With().Str("component", "registry").Logger(),
		takeoverTimeout: takeoverTimeout,
		byID:            make(map[string]*Client),
		byNickname:      make(map[string]*Client),
	}
}

// TakeoverTimeout returns the configured silence window.
func (r *Registry) TakeoverTimeout() time.Duration { return r.takeoverTimeout }

// Register admits a new, not-yet-authenticated connection and assigns
// its ID.
func (r *Registry) Register(conn Sender) *Client {
	c := &Client{
		ID:          uuid.NewString(),
		Conn:        conn,
		ConnectedAt: time.Now(),
		lastActive:  time.Now(),
	}
	r.mu.Lock()
	r.byID[c.ID] = c
	r.mu.Unlock()
	r.logger.Debug().Str("conn_id", c.ID).Str("remote", conn.RemoteAddr()).Msg("connection registered")
	return c
}

// Unregister removes a connection and frees its nickname if it still
// holds it.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	c, ok := r.byID[id]
	if ok {
		delete(r.byID, id)
		key := strings.ToLower(c.Nickname)
		if c.Nickname != "" && r.byNickname[key] == c {
			delete(r.byNickname, key)
		}
	}
	r.mu.Unlock()
	if ok {
		r.logger.Debug().Str("conn_id", id).Str("nickname", c.Nickname).Msg("connection unregistered")
	}
}

// CheckNickname classifies a requested nickname without claiming it.
// Names are compared case-insensitively. Rejection covers malformed
// and reserved names and names held by active connections; a name
// whose holder has been silent past the takeover timeout reports
// NicknameTakeover.
func (r *Registry) CheckNickname(name string) NicknameStatus {
	if !isValidNickname(name) {
		return NicknameRejected
	}
	r.mu.RLock()
	holder := r.byNickname[strings.ToLower(name)]
	r.mu.RUnlock()
	if holder == nil {
		return NicknameOK
	}
	if time.Since(holder.LastActive()) > r.takeoverTimeout {
		return NicknameTakeover
	}
	return NicknameRejected
}

// isValidNickname rejects empty names, overlong names, wire
// delimiters, and names reserved for server output.
func isValidNickname(name string) bool {
	if name == "" || len(name) > MaxNicknameLength {
		return false
	}
	if strings.ContainsAny(name, "|,;\n\t ") {
		return false
	}
	if strings.EqualFold(name, "server") {
		return false
	}
	return true
}

// Authenticate claims a nickname for a registered connection. The
// claim re-checks availability under the write lock, so two racing
// claims of one name cannot both win. A takeover closes the previous
// holder's connection and rebinds the name in the same critical
// section; the displaced holder is unregistered.
func (r *Registry) Authenticate(id, nickname string) (NicknameStatus, *Client) {
	if !isValidNickname(nickname) {
		return NicknameRejected, nil
	}
	key := strings.ToLower(nickname)

	r.mu.Lock()
	c := r.byID[id]
	if c == nil {
		r.mu.Unlock()
		return NicknameRejected, nil
	}
	holder := r.byNickname[key]
	var displaced *Client
	switch {
	case holder == nil || holder == c:
		// free, or re-auth by the same connection
	case time.Since(holder.LastActive()) > r.takeoverTimeout:
		displaced = holder
		delete(r.byID, holder.ID)
	default:
		r.mu.Unlock()
		return NicknameRejected, nil
	}
	c.Nickname = nickname
	r.byNickname[key] = c
	r.mu.Unlock()

	if displaced != nil {
		_ = displaced.Conn.Close()
		r.logger.Info().Str("nickname", nickname).
			Str("old_conn", displaced.ID).Str("new_conn", id).
			Msg("nickname taken over")
		return NicknameTakeover, displaced
	}
	r.logger.Info().Str("nickname", nickname).Str("conn_id", id).Msg("client authenticated")
	return NicknameOK, nil
}

// Get returns a client by connection ID, or nil.
func (r *Registry) Get(id string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// GetByNickname returns the client holding a nickname, or nil.
func (r *Registry) GetByNickname(name string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byNickname[strings.ToLower(name)]
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Nicknames returns all claimed nicknames, unsorted.
func (r *Registry) Nicknames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byNickname))
	for _, c := range r.byNickname {
		out = append(out, c.Nickname)
	}
	return out
}

// All returns every registered client.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}

// Stale returns clients silent past the given window; the scheduler
// sweeps these.
func (r *Registry) Stale(window time.Duration) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Client
	for _, c := range r.byID {
		if time.Since(c.LastActive()) > window {
			out = append(out, c)
		}
	}
	return out
}
