package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hexhaven-project/hexhaven/internal/db"
	"github.com/hexhaven-project/hexhaven/internal/events"
	"github.com/hexhaven-project/hexhaven/internal/feature"
	"github.com/hexhaven-project/hexhaven/internal/game"
	"github.com/hexhaven-project/hexhaven/internal/message"
	"github.com/hexhaven-project/hexhaven/internal/registry"
)

// handleVersion completes the handshake: record the client's version
// and features, then send the game list.
func (d *Dispatcher) handleVersion(ctx context.Context, sess *session, v *message.Version) {
	if v.Number <= 0 {
		d.reject(sess, fmt.Sprintf("bad version number %d", v.Number))
		return
	}
	feats, err := feature.Parse(v.Feats)
	if err != nil {
		d.reject(sess, "malformed feature set")
		return
	}

	sess.client.Version = v.Number
	sess.client.Features = feats
	sess.handshaken = true

	d.logger.Info().
		Str("conn_id", sess.client.ID).
		Int("version", v.Number).
		Str("features", v.Feats).
		Msg("client handshake complete")

	d.send(sess.client, &message.Games{Names: d.table.Names()})
}

// authNickname claims a nickname for the session on its first join or
// create request. Returns false after sending the rejection status.
func (d *Dispatcher) authNickname(ctx context.Context, sess *session, nickname, password string) bool {
	c := sess.client
	if c.Nickname == nickname {
		return true // already authenticated as this name
	}
	if c.Nickname != "" {
		d.sendStatus(c, message.StatusNotOK, "already connected as "+c.Nickname)
		return false
	}
	if len(nickname) > registry.MaxNicknameLength {
		d.sendStatus(c, message.StatusNameNotAllowed,
			fmt.Sprintf("nickname longer than %d characters", registry.MaxNicknameLength))
		return false
	}

	// account check before the name claim, so a wrong password never
	// disturbs the name's current holder
	if d.store != nil {
		err := d.store.Authenticate(nickname, password)
		switch {
		case err == nil:
		case errors.Is(err, db.ErrAccountNotFound):
			if d.cfg.GetServerData().AccountsRequired {
				d.sendStatus(c, message.StatusNotOK, "no account for "+nickname)
				return false
			}
		case errors.Is(err, db.ErrBadCredentials):
			d.sendStatus(c, message.StatusPWWrong, "wrong password")
			return false
		default:
			d.logger.Error().Err(err).Str("nickname", nickname).Msg("account lookup failed")
			d.sendStatus(c, message.StatusNotOK, "authentication unavailable")
			return false
		}
	}

	status, displaced := d.reg.Authenticate(c.ID, nickname)
	switch status {
	case registry.NicknameOK:
	case registry.NicknameTakeover:
		if displaced != nil {
			d.bus.Emit(ctx, events.Event{
				Type:   events.EventNicknameTakeover,
				Source: "dispatch",
				Payload: events.TakeoverPayload{
					Nickname: nickname, OldConnID: displaced.ID, NewConnID: c.ID,
				},
			})
		}
	case registry.NicknameRejected:
		if d.reg.CheckNickname(nickname) == registry.NicknameRejected && d.reg.GetByNickname(nickname) == nil {
			d.sendStatus(c, message.StatusNameNotAllowed, "nickname not allowed")
		} else {
			d.sendStatus(c, message.StatusNameInUse, "nickname already in use")
		}
		return false
	}

	d.bus.Emit(ctx, events.Event{
		Type:   events.EventClientAuthenticated,
		Source: "dispatch",
		Payload: events.ClientPayload{
			ConnID: c.ID, Nickname: nickname, Version: c.Version, Remote: c.Conn.RemoteAddr(),
		},
	})
	return true
}

// handleJoinGame joins an existing game, or creates a default-options
// game of that name when none exists.
func (d *Dispatcher) handleJoinGame(ctx context.Context, sess *session, m *message.JoinGame) {
	if !d.authNickname(ctx, sess, m.Nickname, m.Password) {
		return
	}
	g := d.table.Get(m.Game)
	if g == nil {
		var ok bool
		if g, ok = d.createGame(ctx, sess, m.Game, nil); !ok {
			return
		}
	}
	d.runInGame(m.Game, func() { d.admitToGame(sess, g) })
}

// handleNewGameWithOptions creates a game with an explicit option set
// and joins its creator.
func (d *Dispatcher) handleNewGameWithOptions(ctx context.Context, sess *session, m *message.NewGameWithOptions) {
	if !d.authNickname(ctx, sess, m.Nickname, m.Password) {
		return
	}
	opts, err := game.ParseOptionSet(m.Opts, game.KnownOptions())
	if err != nil {
		d.sendStatus(sess.client, message.StatusNotOK, "bad game options: "+err.Error())
		return
	}
	if d.table.Get(m.Game) != nil {
		d.sendStatus(sess.client, message.StatusNotOK, "game already exists: "+m.Game)
		return
	}
	g, ok := d.createGame(ctx, sess, m.Game, opts)
	if !ok {
		return
	}
	d.runInGame(m.Game, func() { d.admitToGame(sess, g) })
}

// createGame registers a new game and announces it to the lobby.
func (d *Dispatcher) createGame(ctx context.Context, sess *session, name string, opts *game.OptionSet) (*game.Game, bool) {
	if d.table.Count() >= d.cfg.GetServerData().MaxGames {
		d.sendStatus(sess.client, message.StatusNotOK, "server game limit reached")
		return nil, false
	}
	g, err := d.table.Create(name, opts)
	if err != nil {
		d.sendStatus(sess.client, message.StatusNotOK, "cannot create game: "+err.Error())
		return nil, false
	}

	d.sendToLobby(&message.NewGame{Game: name})
	d.bus.Emit(ctx, events.Event{
		Type:    events.EventGameCreated,
		Source:  "dispatch",
		Payload: events.GamePayload{Game: name, Player: sess.client.Nickname},
	})
	return g, true
}

// admitToGame gates the client on the game's requirements, records
// membership, and sends the game snapshot. Runs on the game worker.
func (d *Dispatcher) admitToGame(sess *session, g *game.Game) {
	c := sess.client
	if err := feature.CheckJoin(g, c.Version, c.Features); err != nil {
		d.sendStatus(c, message.StatusCantJoin, err.Error())
		return
	}
	if g.Destroyed() {
		d.sendStatus(c, message.StatusCantJoin, "game no longer exists: "+g.Name())
		return
	}

	name := g.Name()
	d.mu.Lock()
	if d.members[name] == nil {
		d.members[name] = make(map[string]*session)
	}
	d.members[name][c.ID] = sess
	sess.games[name] = true
	d.mu.Unlock()

	d.send(c, &message.JoinGameAuth{Game: name})
	d.sendGameSnapshot(c, g)

	d.logger.Info().Str("game", name).Str("nickname", c.Nickname).Msg("client joined game")
}

// sendGameSnapshot brings one client up to date on a game it just
// joined: seats, state, and board when the game has started.
func (d *Dispatcher) sendGameSnapshot(c *registry.Client, g *game.Game) {
	name := g.Name()
	for pn := 0; pn < g.MaxPlayers(); pn++ {
		p := g.PlayerAt(pn)
		if p == nil {
			continue
		}
		if m, err := message.NewSitDown(name, p.Name, pn, p.Robot); err == nil {
			d.send(c, m)
		}
	}
	d.send(c, &message.GameState{Game: name, State: g.State()})

	if b := g.Board(); b != nil {
		hexes, numbers := b.Layout()
		if m, err := message.NewBoardLayout(name, hexes, numbers, g.RobberAt()); err == nil {
			d.send(c, m)
		}
		if cur := g.CurrentTurn(); cur >= 0 {
			if m, err := message.NewTurn(name, cur, g.State()); err == nil {
				d.send(c, m)
			}
		}
		if m, err := message.NewDiceResult(name, g.CurrentDice()); err == nil {
			d.send(c, m)
		}
	}
}

// handleLeaveGame removes a connection from a game, vacating its seat
// and deleting the game when no humans remain. Runs on the game worker.
func (d *Dispatcher) handleLeaveGame(ctx context.Context, sess *session, gameName string) {
	d.mu.Lock()
	_, wasMember := d.members[gameName][sess.client.ID]
	if wasMember {
		delete(d.members[gameName], sess.client.ID)
	}
	delete(sess.games, gameName)
	d.mu.Unlock()
	if !wasMember {
		return
	}

	g := d.table.Get(gameName)
	nickname := sess.client.Nickname
	if g != nil && nickname != "" && g.SeatOf(nickname) >= 0 {
		if _, err := g.RemovePlayer(nickname); err == nil {
			if m, err := message.NewLeaveGame(nickname, "-", gameName); err == nil {
				d.broadcast(gameName, m)
			}
			d.bus.Emit(ctx, events.Event{
				Type:    events.EventPlayerLeft,
				Source:  "dispatch",
				Payload: events.GamePayload{Game: gameName, Player: nickname, Players: g.PlayerCount()},
			})
			// the leave may have moved the turn or the state
			if st := g.State(); st > game.StateReady && st < game.StateOver {
				d.broadcast(gameName, &message.GameState{Game: gameName, State: st})
				d.announceTurn(g)
			}
		}
	}

	if g != nil && g.HumanCount() == 0 {
		d.deleteGame(ctx, gameName)
	}
}

// deleteGame removes a game from the table, announces the removal,
// and stops its worker.
func (d *Dispatcher) deleteGame(ctx context.Context, gameName string) {
	if !d.table.Delete(gameName) {
		return
	}

	d.mu.Lock()
	for _, s := range d.members[gameName] {
		delete(s.games, gameName)
	}
	delete(d.members, gameName)
	d.mu.Unlock()

	d.sendToLobby(&message.DeleteGame{Game: gameName})
	d.bus.Emit(ctx, events.Event{
		Type:    events.EventGameDeleted,
		Source:  "dispatch",
		Payload: events.GamePayload{Game: gameName},
	})

	// stop the worker once its queued jobs drain
	go func() {
		time.Sleep(time.Second)
		d.stopWorker(gameName)
	}()
}
