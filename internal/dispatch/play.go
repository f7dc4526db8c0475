package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hexhaven-project/hexhaven/internal/events"
	"github.com/hexhaven-project/hexhaven/internal/feature"
	"github.com/hexhaven-project/hexhaven/internal/game"
	"github.com/hexhaven-project/hexhaven/internal/message"
	"github.com/hexhaven-project/hexhaven/internal/registry"
)

// serverNickname is the sender name on server-generated game text.
const serverNickname = "Server"

// memberGame resolves a session's action against a game it has joined
// and is seated in. Any failure is reported to the client.
func (d *Dispatcher) memberGame(sess *session, gameName string) (*game.Game, int, bool) {
	d.mu.Lock()
	isMember := sess.games[gameName]
	d.mu.Unlock()
	if !isMember {
		d.sendStatus(sess.client, message.StatusNotOK, "not a member of game "+gameName)
		return nil, -1, false
	}
	g := d.table.Get(gameName)
	if g == nil || g.Destroyed() {
		d.sendStatus(sess.client, message.StatusNotOK, "no such game "+gameName)
		return nil, -1, false
	}
	seat := g.SeatOf(sess.client.Nickname)
	if seat < 0 {
		d.sendStatus(sess.client, message.StatusNotOK, "not seated in game "+gameName)
		return nil, -1, false
	}
	return g, seat, true
}

// rejectAction reports an illegal action back to its sender only; the
// rest of the game is not interrupted.
func (d *Dispatcher) rejectAction(sess *session, err error) {
	d.sendStatus(sess.client, message.StatusNotOK, err.Error())
}

// serverText broadcasts a server-authored text line to a game.
func (d *Dispatcher) serverText(gameName, text string) {
	if m, err := message.NewGameTextMsg(gameName, serverNickname, text); err == nil {
		d.broadcast(gameName, m)
	}
}

// handleSitDown seats a member. Sitting is the moment opportunistic
// options degrade: once an incapable client holds a seat, the option
// is off for everyone and the change is announced.
func (d *Dispatcher) handleSitDown(ctx context.Context, sess *session, m *message.SitDown) {
	d.mu.Lock()
	isMember := sess.games[m.Game]
	d.mu.Unlock()
	if !isMember {
		d.sendStatus(sess.client, message.StatusNotOK, "not a member of game "+m.Game)
		return
	}
	g := d.table.Get(m.Game)
	if g == nil || g.Destroyed() {
		d.sendStatus(sess.client, message.StatusNotOK, "no such game "+m.Game)
		return
	}

	nickname := sess.client.Nickname
	if err := g.AddPlayer(nickname, m.Seat, false); err != nil {
		d.rejectAction(sess, err)
		return
	}

	degraded := feature.DegradeOpportunistic(g, sess.client.Version, sess.client.Features)
	if len(degraded) > 0 {
		d.serverText(m.Game, fmt.Sprintf(
			"options %s turned off: %s's client does not support them",
			strings.Join(degraded, ","), nickname))
		d.bus.Emit(ctx, events.Event{
			Type:    events.EventOptionsDegraded,
			Source:  "dispatch",
			Payload: events.OptionsDegradedPayload{Game: m.Game, Keys: degraded, Trigger: nickname},
		})
	}

	if out, err := message.NewSitDown(m.Game, nickname, m.Seat, false); err == nil {
		d.broadcast(m.Game, out)
	}
	d.bus.Emit(ctx, events.Event{
		Type:    events.EventPlayerSat,
		Source:  "dispatch",
		Payload: events.GamePayload{Game: m.Game, Player: nickname, Seat: m.Seat, Players: g.PlayerCount()},
	})
}

// handleStartGame begins play and publishes the generated board.
func (d *Dispatcher) handleStartGame(ctx context.Context, sess *session, m *message.StartGame) {
	g, _, ok := d.memberGame(sess, m.Game)
	if !ok {
		return
	}
	if err := g.Start(time.Now().UnixNano()); err != nil {
		d.rejectAction(sess, err)
		return
	}

	hexes, numbers := g.Board().Layout()
	if bl, err := message.NewBoardLayout(m.Game, hexes, numbers, g.RobberAt()); err == nil {
		d.broadcast(m.Game, bl)
	}
	d.broadcast(m.Game, &message.GameState{Game: m.Game, State: g.State()})
	d.announceTurn(g)
	d.bus.Emit(ctx, events.Event{
		Type:    events.EventGameStarted,
		Source:  "dispatch",
		Payload: events.GamePayload{Game: m.Game, Players: g.PlayerCount()},
	})
}

// announceTurn broadcasts whose turn it is plus, during settlement
// placement, where they may build.
func (d *Dispatcher) announceTurn(g *game.Game) {
	name := g.Name()
	cur := g.CurrentTurn()
	if cur < 0 {
		return
	}
	if m, err := message.NewTurn(name, cur, g.State()); err == nil {
		d.broadcast(name, m)
	}
	switch g.State() {
	case game.Start1A, game.Start2A, game.PlacingSettlement:
		d.broadcast(name, &message.PotentialSettlements{
			Game: name, Seat: cur, Nodes: g.PotentialSettlements(cur),
		})
	}
}

// handleRollDice rolls for the sender and distributes the results.
func (d *Dispatcher) handleRollDice(ctx context.Context, sess *session, m *message.RollDice) {
	g, seat, ok := d.memberGame(sess, m.Game)
	if !ok {
		return
	}
	res, err := g.RollDice(seat)
	if err != nil {
		d.rejectAction(sess, err)
		return
	}

	if dr, err := message.NewDiceResult(m.Game, res.Total); err == nil {
		d.broadcast(m.Game, dr)
	}
	for pn, gains := range res.Gains {
		d.broadcastGains(m.Game, pn, gains)
	}
	d.broadcast(m.Game, &message.GameState{Game: m.Game, State: g.State()})
	if res.Robber {
		d.serverText(m.Game, fmt.Sprintf("seat %d rolled a 7 and must move the robber", seat))
	}

	d.bus.Emit(ctx, events.Event{
		Type:    events.EventDiceRolled,
		Source:  "dispatch",
		Payload: events.DicePayload{Game: m.Game, Seat: seat, Total: res.Total},
	})
}

// broadcastGains announces one seat's resource gains element by
// element.
func (d *Dispatcher) broadcastGains(gameName string, pn int, gains game.ResourceSet) {
	for _, rt := range []int{game.ResourceClay, game.ResourceOre, game.ResourceSheep, game.ResourceWheat, game.ResourceWood} {
		n := gains.Amount(rt)
		if n == 0 {
			continue
		}
		if m, err := message.NewPlayerElement(gameName, pn, message.ElemGain, rt, n); err == nil {
			d.broadcast(gameName, m)
		}
	}
}

// handleMoveRobber applies the robber placement after a 7.
func (d *Dispatcher) handleMoveRobber(ctx context.Context, sess *session, m *message.MoveRobber) {
	g, seat, ok := d.memberGame(sess, m.Game)
	if !ok {
		return
	}
	res, err := g.MoveRobber(seat, m.Hex)
	if err != nil {
		d.rejectAction(sess, err)
		return
	}

	d.broadcast(m.Game, &message.MoveRobber{Game: m.Game, Seat: seat, Hex: m.Hex})
	d.broadcast(m.Game, &message.GameState{Game: m.Game, State: g.State()})
	if res.AutoSkipped {
		d.serverText(m.Game, "no one to rob there; play continues")
		d.bus.Emit(ctx, events.Event{
			Type:    events.EventRobbery,
			Source:  "dispatch",
			Payload: events.RobberyPayload{Game: m.Game, Robber: seat, Victim: -1, Skipped: true},
		})
		return
	}
	d.serverText(m.Game, fmt.Sprintf("seat %d must choose a player to rob: %v", seat, res.Victims))
}

// handleChoosePlayer resolves the robbery victim choice. The steal
// itself is broadcast without the resource type; only the two parties
// learn what changed hands.
func (d *Dispatcher) handleChoosePlayer(ctx context.Context, sess *session, m *message.ChoosePlayer) {
	g, seat, ok := d.memberGame(sess, m.Game)
	if !ok {
		return
	}
	if !g.CanChoosePlayer(m.Choice) {
		d.sendStatus(sess.client, message.StatusNotOK,
			fmt.Sprintf("cannot rob seat %d", m.Choice))
		return
	}
	steal, err := g.ChoosePlayer(seat, m.Choice)
	if err != nil {
		d.rejectAction(sess, err)
		return
	}

	victimName := ""
	if p := g.PlayerAt(steal.Victim); p != nil {
		victimName = p.Name
	}

	elemLose, _ := message.NewPlayerElement(m.Game, steal.Victim, message.ElemLose, steal.Resource, 1)
	elemGain, _ := message.NewPlayerElement(m.Game, seat, message.ElemGain, steal.Resource, 1)
	d.sendToParties(m.Game, []string{sess.client.Nickname, victimName}, elemLose, elemGain)

	d.serverText(m.Game, fmt.Sprintf("seat %d stole a resource from seat %d", seat, steal.Victim))
	d.broadcast(m.Game, &message.GameState{Game: m.Game, State: g.State()})
	d.bus.Emit(ctx, events.Event{
		Type:    events.EventRobbery,
		Source:  "dispatch",
		Payload: events.RobberyPayload{Game: m.Game, Robber: seat, Victim: steal.Victim},
	})
}

// sendToParties sends messages only to the named members of a game.
func (d *Dispatcher) sendToParties(gameName string, nicknames []string, msgs ...message.Message) {
	want := make(map[string]bool, len(nicknames))
	for _, n := range nicknames {
		if n != "" {
			want[n] = true
		}
	}
	for _, m := range msgs {
		if m == nil {
			continue
		}
		d.broadcastFiltered(gameName, m, func(c *registry.Client) bool { return want[c.Nickname] })
	}
}

// handleBuildRequest validates a piece purchase and announces the
// placement state.
func (d *Dispatcher) handleBuildRequest(sess *session, m *message.BuildRequest) {
	g, seat, ok := d.memberGame(sess, m.Game)
	if !ok {
		return
	}
	if err := g.BuildRequest(seat, m.PieceType); err != nil {
		d.rejectAction(sess, err)
		return
	}
	if m.PieceType == game.SpecialBuildMarker {
		d.serverText(m.Game, fmt.Sprintf("seat %d will build in the special building phase", seat))
		return
	}
	d.broadcast(m.Game, &message.GameState{Game: m.Game, State: g.State()})
}

// handlePutPiece routes a placement: free placements during the setup
// rounds, paid placements afterwards.
func (d *Dispatcher) handlePutPiece(ctx context.Context, sess *session, m *message.PutPiece) {
	g, seat, ok := d.memberGame(sess, m.Game)
	if !ok {
		return
	}

	var err error
	switch g.State() {
	case game.Start1A, game.Start2A:
		err = g.PlaceInitialSettlement(seat, m.Coord)
	case game.Start1B, game.Start2B:
		err = g.PlaceInitialRoad(seat, m.Coord)
	default:
		err = g.PutPiece(seat, m.PieceType, m.Coord)
	}
	if err != nil {
		d.rejectAction(sess, err)
		return
	}

	if out, mkErr := message.NewPutPiece(m.Game, seat, m.PieceType, m.Coord); mkErr == nil {
		d.broadcast(m.Game, out)
	}
	d.broadcast(m.Game, &message.GameState{Game: m.Game, State: g.State()})
	d.bus.Emit(ctx, events.Event{
		Type:    events.EventPiecePlaced,
		Source:  "dispatch",
		Payload: events.PiecePayload{Game: m.Game, Seat: seat, PieceType: m.PieceType, Coord: m.Coord},
	})

	if g.State() == game.StateOver {
		d.finishGame(ctx, g)
		return
	}
	d.announceTurn(g)
}

// finishGame announces a winner and records results.
func (d *Dispatcher) finishGame(ctx context.Context, g *game.Game) {
	name := g.Name()
	winner := g.Winner()
	winnerVP := 0
	if p := g.PlayerAt(winner); p != nil {
		winnerVP = p.VP
		d.serverText(name, fmt.Sprintf("%s wins with %d victory points", p.Name, p.VP))
	}

	if d.store != nil {
		for pn := 0; pn < g.MaxPlayers(); pn++ {
			p := g.PlayerAt(pn)
			if p == nil || p.Robot {
				continue
			}
			if err := d.store.RecordGameResult(name, p.Name, pn == winner, p.VP); err != nil {
				d.logger.Error().Err(err).Str("game", name).Str("player", p.Name).
					Msg("failed to record game result")
			}
		}
	}

	d.bus.Emit(ctx, events.Event{
		Type:    events.EventGameOver,
		Source:  "dispatch",
		Payload: events.GameOverPayload{Game: name, Winner: winner, VP: winnerVP},
	})
}

// handleBankTrade applies a bank trade and echoes the element deltas.
func (d *Dispatcher) handleBankTrade(sess *session, m *message.BankTrade) {
	g, seat, ok := d.memberGame(sess, m.Game)
	if !ok {
		return
	}
	if err := g.BankTrade(seat, m.Give, m.Get, m.Ratio); err != nil {
		d.rejectAction(sess, err)
		return
	}
	d.broadcast(m.Game, &message.BankTrade{Game: m.Game, Give: m.Give, Get: m.Get, Ratio: m.Ratio})
}

// handleEndTurn passes the turn.
func (d *Dispatcher) handleEndTurn(sess *session, m *message.EndTurn) {
	g, seat, ok := d.memberGame(sess, m.Game)
	if !ok {
		return
	}
	if err := g.EndTurn(seat); err != nil {
		d.rejectAction(sess, err)
		return
	}
	d.announceTurn(g)
}

// handleGameText relays chat, intercepting debug commands from
// privileged users.
func (d *Dispatcher) handleGameText(sess *session, m *message.GameTextMsg) {
	d.mu.Lock()
	isMember := sess.games[m.Game]
	d.mu.Unlock()
	if !isMember {
		d.sendStatus(sess.client, message.StatusNotOK, "not a member of game "+m.Game)
		return
	}
	nickname := sess.client.Nickname

	if d.cfg.IsDebugUser(nickname) && d.handleDebugCommand(sess, m.Game, m.Text) {
		return
	}

	if out, err := message.NewGameTextMsg(m.Game, nickname, m.Text); err == nil {
		d.broadcast(m.Game, out)
	}
}

// handleDebugCommand runs a privileged chat command; returns false to
// let the text flow on as ordinary chat.
func (d *Dispatcher) handleDebugCommand(sess *session, gameName, text string) bool {
	g := d.table.Get(gameName)
	if g == nil {
		return false
	}
	switch {
	case strings.HasPrefix(text, "rsrcs:"):
		rs, who, err := game.ParseResourceGrant(strings.TrimPrefix(text, "rsrcs:"))
		if err == nil {
			err = g.GrantResources(who, rs)
		}
		if err != nil {
			d.sendStatus(sess.client, message.StatusNotOK, err.Error())
			return true
		}
		d.serverText(gameName, fmt.Sprintf("debug: resources granted to %s", who))
		return true
	case text == "*STATS*":
		d.sendStatus(sess.client, message.StatusOK, fmt.Sprintf(
			"state=%s turn=%d round=%d players=%d",
			game.StateName(g.State()), g.CurrentTurn(), g.Round(), g.PlayerCount()))
		return true
	case text == "*WHO*":
		for pn := 0; pn < g.MaxPlayers(); pn++ {
			p := g.PlayerAt(pn)
			if p == nil {
				continue
			}
			tag := ""
			if p.Robot {
				tag = " [robot]"
			}
			d.sendStatus(sess.client, message.StatusOK,
				fmt.Sprintf("seat %d: %s%s vp=%d", pn, p.Name, tag, p.VP))
		}
		return true
	case text == "*HELP*":
		for _, line := range game.DebugHelp() {
			d.sendStatus(sess.client, message.StatusOK, line)
		}
		return true
	}
	return false
}
