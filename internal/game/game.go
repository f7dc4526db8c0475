package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hexhaven-project/hexhaven/internal/board"
)

// MaxGameNameLength bounds game names at creation.
const MaxGameNameLength = 30

// Game is one authoritative game instance. All mutating methods are
// called from the game's single dispatcher worker; the lock exists so
// read-side snapshots from other goroutines (API, CLI, telemetry)
// stay consistent.
type Game struct {
	mu     sync.RWMutex
	logger zerolog.Logger

	name       string
	maxPlayers int
	opts       *OptionSet
	minVersion int // lowest client version that may join; -1 = none

	state       int
	seats       []*Player
	currentTurn int // seat index; -1 before start
	firstPlayer int
	round       int
	currentDice int
	winner      int // seat index; -1 until OVER

	board          *board.Board
	robbery        *RobberyContext
	movedRobberHex int // robber position once moved off the desert; 0 = never moved
	rng            *rand.Rand

	// initial placement bookkeeping
	placementOrder []int
	placementIdx   int
	lastPlaced     map[int]int // seat -> node of its most recent initial settlement

	// 6-player special building requests for the coming turn end
	specialBuild map[int]bool

	// longest-road award
	longestRoadHolder int // seat index; -1 = unawarded
	longestRoadLen    int

	createdAt time.Time
	destroyed bool
}

// New creates a game from an option spec already parsed against the
// known-option registry. opts may be nil for an all-defaults game.
// Malformed names or option combinations are fatal to this creation
// request only.
func New(name string, opts *OptionSet) (*Game, error) {
	if name == "" || len(name) > MaxGameNameLength {
		return nil, configf("bad game name length %d", len(name))
	}
	if strings.ContainsAny(name, "|,\n") {
		return nil, configf("delimiter in game name %q", name)
	}

	full := KnownOptions()
	if opts != nil {
		for _, o := range opts.All() {
			known := full.Get(o.Key)
			if known == nil {
				return nil, configf("unknown option %q", o.Key)
			}
			full.Add(o.Clone())
		}
	}

	maxPlayers := 4
	if pl := full.Get("PL"); pl != nil {
		if pl.IntValue < 2 || pl.IntValue > 6 {
			return nil, configf("PL=%d out of range", pl.IntValue)
		}
		if pl.IntValue > 4 {
			maxPlayers = 6
		}
	}
	if full.IsSet("PLB") {
		maxPlayers = 6
	}
	// a scenario always needs the sea board
	if full.IsSet("SC") && !full.IsSet("SBL") {
		sbl := full.Get("SBL")
		sbl.BoolValue = true
	}

	g := &Game{
		logger:            log.With().Str("component", "game").Str("game", name).Logger(),
		name:              name,
		maxPlayers:        maxPlayers,
		opts:              full,
		minVersion:        deriveMinVersion(full),
		state:             StateNew,
		seats:             make([]*Player, maxPlayers),
		currentTurn:       -1,
		firstPlayer:       -1,
		currentDice:       -1,
		winner:            -1,
		longestRoadHolder: -1,
		lastPlaced:        make(map[int]int),
		specialBuild:      make(map[int]bool),
		createdAt:         time.Now(),
	}
	return g, nil
}

// deriveMinVersion computes the lowest client version that may join:
// the highest MinVersion among active non-opportunistic options, or
// -1 when nothing raises the floor. Opportunistic options never raise
// it; that is the point of the flag.
func deriveMinVersion(opts *OptionSet) int {
	min := -1
	for _, o := range opts.All() {
		if !o.IsActive() || o.HasFlag(FlagOpportunistic) {
			continue
		}
		if o.MinVersion > min {
			min = o.MinVersion
		}
	}
	return min
}

// DegradeOpportunisticOptions resets to default every active
// opportunistic option the supports predicate rejects. Used when a
// client that cannot handle such an option sits down: the option is
// switched off game-wide so everyone plays by the same rules. Returns
// the degraded keys in sorted order.
func (g *Game) DegradeOpportunisticOptions(supports func(*Option) bool) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var degraded []string
	for _, o := range g.opts.All() {
		if o.IsActive() && o.HasFlag(FlagOpportunistic) && !supports(o) {
			o.Degrade()
			degraded = append(degraded, o.Key)
		}
	}
	return degraded
}

// ---- read-side accessors ----

func (g *Game) Name() string { return g.name }

func (g *Game) MaxPlayers() int { return g.maxPlayers }

// State returns the current game state constant.
func (g *Game) State() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Options returns the game's full option set (live; callers must not
// mutate).
func (g *Game) Options() *OptionSet {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.opts
}

// MinVersionRequired returns the minimum client version needed to
// join, or -1 for none.
func (g *Game) MinVersionRequired() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.minVersion
}

// HasSeaBoard reports whether the game uses the sea board layout.
func (g *Game) HasSeaBoard() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.opts.IsSet("SBL") || g.opts.IsSet("SC")
}

// CurrentTurn returns the seat whose turn it is, -1 before start.
func (g *Game) CurrentTurn() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.currentTurn
}

// Round returns the current round number, starting at 1 after initial
// placement.
func (g *Game) Round() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.round
}

// CurrentDice returns the last roll this turn, -1 if not rolled.
func (g *Game) CurrentDice() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.currentDice
}

// Winner returns the winning seat once the game is over, else -1.
func (g *Game) Winner() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.winner
}

// Board returns the generated board, nil before start.
func (g *Game) Board() *board.Board {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.board
}

// CreatedAt returns the game's creation time.
func (g *Game) CreatedAt() time.Time { return g.createdAt }

// IsSeatVacant reports true occupancy: a valid, unoccupied seat
// index. Out-of-range indices are not usable seats and report false.
func (g *Game) IsSeatVacant(pn int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if pn < 0 || pn >= g.maxPlayers {
		return false
	}
	return g.seats[pn] == nil
}

// PlayerAt returns a snapshot of the player at a seat, or nil.
func (g *Game) PlayerAt(pn int) *Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if pn < 0 || pn >= g.maxPlayers || g.seats[pn] == nil {
		return nil
	}
	return g.seats[pn].snapshot()
}

// SeatOf returns the seat index of a nickname, or -1.
func (g *Game) SeatOf(name string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.seatOfLocked(name)
}

func (g *Game) seatOfLocked(name string) int {
	for i, p := range g.seats {
		if p != nil && p.Name == name {
			return i
		}
	}
	return -1
}

// PlayerCount returns the number of occupied seats.
func (g *Game) PlayerCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, p := range g.seats {
		if p != nil {
			n++
		}
	}
	return n
}

// HumanCount returns the number of occupied non-robot seats.
func (g *Game) HumanCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, p := range g.seats {
		if p != nil && !p.Robot {
			n++
		}
	}
	return n
}

// ---- seat lifecycle ----

// AddPlayer seats a player. Only legal before the game starts; the
// seat must be vacant and the nickname not already seated.
func (g *Game) AddPlayer(name string, pn int, robot bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateNew && g.state != StateReady {
		return illegalf("cannot sit down in state %s", StateName(g.state))
	}
	if pn < 0 || pn >= g.maxPlayers {
		return illegalf("seat %d out of range 0..%d", pn, g.maxPlayers-1)
	}
	if g.seats[pn] != nil {
		return illegalf("seat %d is occupied", pn)
	}
	if g.seatOfLocked(name) >= 0 {
		return illegalf("%s is already seated", name)
	}

	g.seats[pn] = newPlayer(name, robot)
	g.logger.Info().Str("player", name).Int("seat", pn).Bool("robot", robot).Msg("player seated")
	return nil
}

// RemovePlayer vacates a player's seat and returns its index. Leaving
// mid-game is allowed; if it was their turn the turn advances. During
// initial placement the vacated seat is dropped from the placement
// order so the serpentine never hands the turn to an empty seat.
func (g *Game) RemovePlayer(name string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pn := g.seatOfLocked(name)
	if pn < 0 {
		return -1, illegalf("%s is not seated", name)
	}
	g.seats[pn] = nil
	delete(g.lastPlaced, pn)
	delete(g.specialBuild, pn)
	g.logger.Info().Str("player", name).Int("seat", pn).Msg("player left")

	switch {
	case g.state <= StateReady || g.state >= StateOver:
		// not started yet, or already finished
	case g.state >= Start1A && g.state <= Start2B:
		g.dropFromPlacementLocked(pn)
	case g.currentTurn == pn:
		g.advanceTurnLocked()
	}
	if g.longestRoadHolder == pn {
		g.updateLongestRoadLocked()
	}
	return pn, nil
}

// dropFromPlacementLocked strips a vacated seat from the serpentine
// placement order. If the leaver held the turn, their half-finished
// placement is abandoned and the next seat in order starts at its
// settlement step; if the order is exhausted, normal play begins.
func (g *Game) dropFromPlacementLocked(pn int) {
	wasCurrent := g.currentTurn == pn

	order := g.placementOrder[:0]
	idx := g.placementIdx
	for i, s := range g.placementOrder {
		if s == pn {
			if i < g.placementIdx {
				idx--
			}
			continue
		}
		order = append(order, s)
	}
	g.placementOrder = order
	g.placementIdx = idx

	if g.firstPlayer == pn && len(order) > 0 {
		g.firstPlayer = order[0]
	}

	if g.placementIdx >= len(g.placementOrder) {
		g.currentTurn = g.firstPlayer
		g.round = 1
		g.currentDice = -1
		g.state = RollOrCard
		g.logger.Info().Msg("initial placement complete")
		return
	}
	if wasCurrent {
		g.currentTurn = g.placementOrder[g.placementIdx]
		if g.placementIdx >= len(g.placementOrder)/2 {
			g.state = Start2A
		} else {
			g.state = Start1A
		}
	}
}

// Start begins play: generates the board, fixes the placement order,
// and enters the first settlement placement state. seed drives the
// board shuffle and all later dice.
func (g *Game) Start(seed int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateNew && g.state != StateReady {
		return illegalf("cannot start in state %s", StateName(g.state))
	}
	occupied := g.occupiedSeatsLocked()
	if len(occupied) < 2 {
		return illegalf("need at least 2 players, have %d", len(occupied))
	}

	g.rng = rand.New(rand.NewSource(seed))
	g.board = board.Generate(g.rng, g.maxPlayers)
	g.firstPlayer = occupied[g.rng.Intn(len(occupied))]

	// serpentine placement: forward once, then reversed
	fwd := rotateFrom(occupied, g.firstPlayer)
	g.placementOrder = make([]int, 0, 2*len(fwd))
	g.placementOrder = append(g.placementOrder, fwd...)
	for i := len(fwd) - 1; i >= 0; i-- {
		g.placementOrder = append(g.placementOrder, fwd[i])
	}
	g.placementIdx = 0
	g.currentTurn = g.placementOrder[0]
	g.state = Start1A

	g.logger.Info().
		Int("players", len(occupied)).
		Int("first_player", g.firstPlayer).
		Msg("game started")
	return nil
}

// occupiedSeatsLocked returns occupied seat indices ascending.
func (g *Game) occupiedSeatsLocked() []int {
	var out []int
	for i, p := range g.seats {
		if p != nil {
			out = append(out, i)
		}
	}
	return out
}

// rotateFrom reorders seats to begin at the given seat.
func rotateFrom(seats []int, first int) []int {
	idx := 0
	for i, s := range seats {
		if s == first {
			idx = i
			break
		}
	}
	out := make([]int, 0, len(seats))
	out = append(out, seats[idx:]...)
	out = append(out, seats[:idx]...)
	return out
}

// advanceTurnLocked moves currentTurn to the next occupied seat and
// bumps the round when play wraps past the first player.
func (g *Game) advanceTurnLocked() {
	occupied := g.occupiedSeatsLocked()
	if len(occupied) == 0 {
		g.currentTurn = -1
		return
	}
	next := g.currentTurn
	for i := 0; i < g.maxPlayers; i++ {
		next = (next + 1) % g.maxPlayers
		if g.seats[next] != nil {
			break
		}
	}
	if next == g.firstPlayer {
		g.round++
	}
	g.robbery = nil
	g.currentTurn = next
	g.currentDice = -1
	g.state = RollOrCard
}

// MarkDestroyed flags the game as removed from the table. Mutation
// stops here; observers holding a reference keep a stable post-mortem
// snapshot.
func (g *Game) MarkDestroyed() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.destroyed = true
}

// Destroyed reports whether the game has been removed from the table.
func (g *Game) Destroyed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.destroyed
}
