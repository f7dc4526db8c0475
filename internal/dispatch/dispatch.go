// Package dispatch is the session layer: it owns the mapping from
// connections to nicknames to game seats, routes decoded frames to
// per-game workers, and fans game events back out to members.
//
// Every mutation of one game runs on that game's single worker
// goroutine, so actions are applied in arrival order and broadcasts
// leave in the same order the actions were applied.
package dispatch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hexhaven-project/hexhaven/internal/config"
	"github.com/hexhaven-project/hexhaven/internal/db"
	"github.com/hexhaven-project/hexhaven/internal/events"
	"github.com/hexhaven-project/hexhaven/internal/feature"
	"github.com/hexhaven-project/hexhaven/internal/game"
	"github.com/hexhaven-project/hexhaven/internal/message"
	"github.com/hexhaven-project/hexhaven/internal/network"
	"github.com/hexhaven-project/hexhaven/internal/registry"
)

// workerQueueSize bounds the per-game action backlog.
const workerQueueSize = 64

// session is the dispatcher's per-connection state.
type session struct {
	client     *registry.Client
	handshaken bool
	games      map[string]bool // game names this connection is a member of
}

// worker serializes all actions for one game.
type worker struct {
	jobs chan func()
	quit chan struct{}
}

func newWorker() *worker {
	w := &worker{
		jobs: make(chan func(), workerQueueSize),
		quit: make(chan struct{}),
	}
	go func() {
		for {
			select {
			case job := <-w.jobs:
				job()
			case <-w.quit:
				return
			}
		}
	}()
	return w
}

// Dispatcher implements network.Handler.
type Dispatcher struct {
	cfg    *config.Config
	reg    *registry.Registry
	table  *game.Table
	bus    *events.EventBus
	store  *db.Store // nil when the server runs without accounts
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session            // conn ID -> session
	members  map[string]map[string]*session // game name -> conn ID -> session
	workers  map[string]*worker             // game name -> worker
}

// New creates a dispatcher. store may be nil for an accountless server.
func New(cfg *config.Config, reg *registry.Registry, table *game.Table, bus *events.EventBus, store *db.Store) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		reg:      reg,
		table:    table,
		bus:      bus,
		store:    store,
		logger:   log.With().Str("component", "dispatch").Logger(),
		sessions: make(map[string]*session),
		members:  make(map[string]map[string]*session),
		workers:  make(map[string]*worker),
	}
}

// serverFeatures is the capability set this server implements.
func serverFeatures() *feature.Set {
	s := feature.New()
	s.Add(game.FeatureSixPlayers)
	s.Add(game.FeatureSeaBoard)
	s.AddValue(game.FeatureScenarioVersion, config.ServerVersion)
	return s
}

// HandleConnect registers the connection and sends the server's own
// version handshake before anything else.
func (d *Dispatcher) HandleConnect(ctx context.Context, conn *network.Conn) string {
	client := d.reg.Register(conn)

	d.mu.Lock()
	d.sessions[client.ID] = &session{client: client, games: make(map[string]bool)}
	d.mu.Unlock()

	d.send(client, &message.Version{
		Number:     config.ServerVersion,
		VersString: config.ServerVersionString,
		Feats:      serverFeatures().Encode(),
	})

	d.bus.Emit(ctx, events.Event{
		Type:    events.EventClientConnected,
		Source:  "dispatch",
		Payload: events.ClientPayload{ConnID: client.ID, Remote: client.Conn.RemoteAddr()},
	})
	return client.ID
}

// HandleFrame decodes one inbound frame and routes it. Malformed
// frames never crash the server: before the handshake they terminate
// the connection, afterwards they are logged and dropped.
func (d *Dispatcher) HandleFrame(ctx context.Context, id, frame string) {
	d.mu.Lock()
	sess := d.sessions[id]
	d.mu.Unlock()
	if sess == nil {
		return
	}
	sess.client.Touch()

	msg, err := message.Decode(frame)
	if err != nil {
		if !sess.handshaken {
			d.reject(sess, "malformed handshake")
			return
		}
		d.logger.Warn().Err(err).Str("conn_id", id).Msg("dropping malformed frame")
		return
	}

	if !sess.handshaken {
		v, ok := msg.(*message.Version)
		if !ok {
			d.reject(sess, "version handshake required first")
			return
		}
		d.handleVersion(ctx, sess, v)
		return
	}

	switch m := msg.(type) {
	case *message.Version:
		// repeated handshake is a no-op
	case *message.ServerPing:
		d.send(sess.client, m) // echo keeps both idle timers alive
	case *message.JoinGame:
		d.handleJoinGame(ctx, sess, m)
	case *message.NewGameWithOptions:
		d.handleNewGameWithOptions(ctx, sess, m)
	case *message.SitDown:
		d.runInGame(m.Game, func() { d.handleSitDown(ctx, sess, m) })
	case *message.StartGame:
		d.runInGame(m.Game, func() { d.handleStartGame(ctx, sess, m) })
	case *message.RollDice:
		d.runInGame(m.Game, func() { d.handleRollDice(ctx, sess, m) })
	case *message.MoveRobber:
		d.runInGame(m.Game, func() { d.handleMoveRobber(ctx, sess, m) })
	case *message.ChoosePlayer:
		d.runInGame(m.Game, func() { d.handleChoosePlayer(ctx, sess, m) })
	case *message.BuildRequest:
		d.runInGame(m.Game, func() { d.handleBuildRequest(sess, m) })
	case *message.PutPiece:
		d.runInGame(m.Game, func() { d.handlePutPiece(ctx, sess, m) })
	case *message.BankTrade:
		d.runInGame(m.Game, func() { d.handleBankTrade(sess, m) })
	case *message.EndTurn:
		d.runInGame(m.Game, func() { d.handleEndTurn(sess, m) })
	case *message.GameTextMsg:
		d.runInGame(m.Game, func() { d.handleGameText(sess, m) })
	case *message.LeaveGame:
		d.runInGame(m.Game, func() { d.handleLeaveGame(ctx, sess, m.Game) })
	default:
		d.logger.Debug().Str("conn_id", id).Int("type", int(msg.Type())).
			Msg("ignoring client-bound message type")
	}
}

// HandleDisconnect tears down a connection's session: its game
// memberships are released as if it had sent LeaveGame for each.
func (d *Dispatcher) HandleDisconnect(ctx context.Context, id string) {
	d.mu.Lock()
	sess := d.sessions[id]
	delete(d.sessions, id)
	var games []string
	if sess != nil {
		for g := range sess.games {
			games = append(games, g)
		}
	}
	d.mu.Unlock()
	if sess == nil {
		return
	}

	for _, name := range games {
		name := name
		d.runInGame(name, func() { d.handleLeaveGame(ctx, sess, name) })
	}

	nickname := sess.client.Nickname
	d.reg.Unregister(id)
	d.bus.Emit(ctx, events.Event{
		Type:    events.EventClientDisconnected,
		Source:  "dispatch",
		Payload: events.ClientPayload{ConnID: id, Nickname: nickname},
	})
}

// runInGame enqueues a job on the game's worker, creating the worker
// on first use.
func (d *Dispatcher) runInGame(gameName string, job func()) {
	d.mu.Lock()
	w := d.workers[gameName]
	if w == nil {
		w = newWorker()
		d.workers[gameName] = w
	}
	d.mu.Unlock()
	w.jobs <- job
}

// stopWorker removes and stops a deleted game's worker.
func (d *Dispatcher) stopWorker(gameName string) {
	d.mu.Lock()
	w := d.workers[gameName]
	delete(d.workers, gameName)
	d.mu.Unlock()
	if w != nil {
		close(w.quit)
	}
}

// send delivers one message to one client; a dead connection is only
// logged, its teardown happens via the read loop.
func (d *Dispatcher) send(c *registry.Client, m message.Message) {
	if err := c.Conn.Send(message.Encode(m)); err != nil {
		d.logger.Debug().Err(err).Str("conn_id", c.ID).Msg("send failed")
	}
}

// sendStatus delivers a status line to one client.
func (d *Dispatcher) sendStatus(c *registry.Client, status int, text string) {
	m, err := message.NewStatusMessage(status, text)
	if err != nil {
		d.logger.Error().Err(err).Str("text", text).Msg("unencodable status text")
		m, _ = message.NewStatusMessage(status, "")
	}
	d.send(c, m)
}

// reject tells a pre-auth client why it is being dropped and closes
// its connection.
func (d *Dispatcher) reject(sess *session, reason string) {
	d.send(sess.client, &message.RejectConnection{Text: reason})
	_ = sess.client.Conn.Close()
}

// broadcast sends a message to every member of a game, in member-map
// order. Per-game ordering across broadcasts is guaranteed by the
// game worker, not here.
func (d *Dispatcher) broadcast(gameName string, m message.Message) {
	d.broadcastFiltered(gameName, m, nil)
}

// broadcastFiltered sends to every member the keep predicate accepts;
// nil keeps everyone.
func (d *Dispatcher) broadcastFiltered(gameName string, m message.Message, keep func(*registry.Client) bool) {
	d.mu.Lock()
	targets := make([]*registry.Client, 0, len(d.members[gameName]))
	for _, s := range d.members[gameName] {
		if keep == nil || keep(s.client) {
			targets = append(targets, s.client)
		}
	}
	d.mu.Unlock()

	frame := message.Encode(m)
	for _, c := range targets {
		if err := c.Conn.Send(frame); err != nil {
			d.logger.Debug().Err(err).Str("conn_id", c.ID).Msg("broadcast send failed")
		}
	}
}

// sendToLobby sends a message to every handshaken connection; used for
// game-list announcements.
func (d *Dispatcher) sendToLobby(m message.Message) {
	d.mu.Lock()
	targets := make([]*registry.Client, 0, len(d.sessions))
	for _, s := range d.sessions {
		if s.handshaken {
			targets = append(targets, s.client)
		}
	}
	d.mu.Unlock()

	frame := message.Encode(m)
	for _, c := range targets {
		if err := c.Conn.Send(frame); err != nil {
			d.logger.Debug().Err(err).Str("conn_id", c.ID).Msg("lobby send failed")
		}
	}
}

// PingAll sends the keepalive probe to every handshaken connection.
// The scheduler calls this periodically.
func (d *Dispatcher) PingAll(sleepTime int) {
	d.sendToLobby(&message.ServerPing{SleepTime: sleepTime})
}

// Announce sends a server-authored text line to a game's members,
// serialized on the game worker. Used by the admin API.
func (d *Dispatcher) Announce(gameName, text string) bool {
	if d.table.Get(gameName) == nil {
		return false
	}
	d.runInGame(gameName, func() { d.serverText(gameName, text) })
	return true
}

// DropGame force-deletes a game, serialized on its worker. Used by the
// admin API.
func (d *Dispatcher) DropGame(ctx context.Context, gameName string) bool {
	if d.table.Get(gameName) == nil {
		return false
	}
	d.runInGame(gameName, func() { d.deleteGame(ctx, gameName) })
	return true
}

// SessionCount returns the number of live sessions.
func (d *Dispatcher) SessionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// MemberCount returns the number of connections joined to a game.
func (d *Dispatcher) MemberCount(gameName string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.members[gameName])
}
