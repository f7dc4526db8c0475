package game

// Initial placement, dice, the robbery sub-protocol, and turn
// passing. Transitions happen only through validated player actions;
// an illegal action returns ErrIllegalAction and leaves state alone.

// EdgeCoord packs a road edge (two adjacent node IDs) into the single
// int the wire carries.
func EdgeCoord(a, b int) int {
	if a > b {
		a, b = b, a
	}
	return a*1000 + b
}

// SplitEdgeCoord unpacks a wire edge coordinate.
func SplitEdgeCoord(c int) (int, int) {
	return c / 1000, c % 1000
}

// RollResult reports a dice roll and the resources it produced.
type RollResult struct {
	Total int
	// Gains maps seat index to the resources gained from this roll.
	Gains map[int]ResourceSet
	// Robber is true when the roll was a 7 and the robber must move.
	Robber bool
}

// PlaceInitialSettlement places a free settlement during the setup
// rounds. In the second round the settlement grants one resource per
// adjacent producing hex.
func (g *Game) PlaceInitialSettlement(pn, node int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Start1A && g.state != Start2A {
		return illegalf("cannot place settlement in state %s", StateName(g.state))
	}
	if pn != g.currentTurn {
		return illegalf("seat %d acted out of turn", pn)
	}
	p, err := g.actingPlayerLocked(pn)
	if err != nil {
		return err
	}
	if !g.board.IsNode(node) {
		return illegalf("no such node %d", node)
	}
	occupied := g.occupiedNodesLocked()
	if occupied[node] {
		return illegalf("node %d is taken", node)
	}
	for _, adj := range g.board.AdjacentNodes(node) {
		if occupied[adj] {
			return illegalf("node %d too close to another building", node)
		}
	}

	p.Settlements = append(p.Settlements, node)
	p.settlementsLeft--
	p.VP++
	g.lastPlaced[pn] = node

	if g.state == Start2A {
		for _, h := range g.board.NodeHexes(node) {
			for _, hex := range g.board.Hexes {
				if hex.ID == h && hex.Number != 0 {
					p.Resources.add(hex.Terrain, 1)
				}
			}
		}
		g.state = Start2B
	} else {
		g.state = Start1B
	}
	return nil
}

// PlaceInitialRoad places the free road that must touch the
// settlement just placed, then advances the placement order.
func (g *Game) PlaceInitialRoad(pn, edgeCoord int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Start1B && g.state != Start2B {
		return illegalf("cannot place road in state %s", StateName(g.state))
	}
	if pn != g.currentTurn {
		return illegalf("seat %d acted out of turn", pn)
	}
	p, err := g.actingPlayerLocked(pn)
	if err != nil {
		return err
	}

	a, b := SplitEdgeCoord(edgeCoord)
	if !g.board.EdgeExists(a, b) {
		return illegalf("no road edge %d-%d", a, b)
	}
	if g.roadTakenLocked(a, b) {
		return illegalf("edge %d-%d is taken", a, b)
	}
	anchor := g.lastPlaced[pn]
	if a != anchor && b != anchor {
		return illegalf("initial road must touch the new settlement")
	}

	p.Roads = append(p.Roads, roadKey(a, b))
	p.roadsLeft--

	g.placementIdx++
	if g.placementIdx >= len(g.placementOrder) {
		// setup complete; first player rolls
		g.currentTurn = g.firstPlayer
		g.round = 1
		g.currentDice = -1
		g.state = RollOrCard
		g.logger.Info().Msg("initial placement complete")
		return nil
	}
	g.currentTurn = g.placementOrder[g.placementIdx]
	if g.placementIdx >= len(g.placementOrder)/2 {
		g.state = Start2A
	} else {
		g.state = Start1A
	}
	return nil
}

// RollDice rolls for the current player. A 7 sends the game to robber
// placement; anything else distributes resources and opens the build/
// trade portion of the turn. With the N7 option active, 7s are
// rerolled during the first N rounds.
func (g *Game) RollDice(pn int) (*RollResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != RollOrCard {
		return nil, illegalf("cannot roll in state %s", StateName(g.state))
	}
	if pn != g.currentTurn {
		return nil, illegalf("seat %d acted out of turn", pn)
	}
	if _, err := g.actingPlayerLocked(pn); err != nil {
		return nil, err
	}

	total := g.rollTotalLocked()
	g.currentDice = total

	res := &RollResult{Total: total, Gains: make(map[int]ResourceSet)}
	if total == 7 {
		res.Robber = true
		g.state = PlacingRobber
		return res, nil
	}

	robberAt := g.robberAtLocked()
	for _, hex := range g.board.HexesByNumber(total) {
		if hex.ID == robberAt {
			continue
		}
		for _, node := range g.board.HexNodes(hex.ID) {
			for seat, p := range g.seats {
				if p == nil {
					continue
				}
				gain := 0
				for _, s := range p.Settlements {
					if s == node {
						gain = 1
					}
				}
				for _, c := range p.Cities {
					if c == node {
						gain = 2
					}
				}
				if gain > 0 {
					p.Resources.add(hex.Terrain, gain)
					rs := res.Gains[seat]
					rs.add(hex.Terrain, gain)
					res.Gains[seat] = rs
				}
			}
		}
	}
	g.state = Play1
	return res, nil
}

// rollTotalLocked rolls two dice, honoring the N7 early-round rule.
func (g *Game) rollTotalLocked() int {
	total := g.rng.Intn(6) + g.rng.Intn(6) + 2
	if n7 := g.opts.Get("N7"); n7 != nil && n7.BoolValue {
		for total == 7 && g.round <= n7.IntValue {
			total = g.rng.Intn(6) + g.rng.Intn(6) + 2
		}
	}
	return total
}

// robberAtLocked returns the robber's current hex.
func (g *Game) robberAtLocked() int {
	if g.movedRobberHex != 0 {
		return g.movedRobberHex
	}
	return g.board.RobberHex
}

// RobberAt returns the robber's current hex, or -1 before start.
func (g *Game) RobberAt() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.board == nil {
		return -1
	}
	return g.robberAtLocked()
}

// MoveResult reports a robber move: the victim snapshot, or that the
// choose-player step was skipped because nobody qualified.
type MoveResult struct {
	Victims []int
	// AutoSkipped is true when no victim qualified and the game
	// advanced past the choose-player step by itself.
	AutoSkipped bool
}

// MoveRobber moves the robber after a 7. Entering the choose-player
// state computes the possible-victims list: seats with a settlement
// or city on the target hex that hold at least one resource card. An
// empty list advances straight past the choose step; a player is
// never made to wait for a choice nobody can satisfy.
func (g *Game) MoveRobber(pn, hex int) (*MoveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != PlacingRobber {
		return nil, illegalf("cannot move robber in state %s", StateName(g.state))
	}
	if pn != g.currentTurn {
		return nil, illegalf("seat %d acted out of turn", pn)
	}
	if _, err := g.actingPlayerLocked(pn); err != nil {
		return nil, err
	}
	if !g.board.IsHex(hex) {
		return nil, illegalf("no such hex %d", hex)
	}
	if hex == g.robberAtLocked() {
		return nil, illegalf("robber must move to a new hex")
	}

	g.movedRobberHex = hex
	victims := g.computeVictimsLocked(pn, hex)
	if len(victims) == 0 {
		g.robbery = nil
		g.state = Play1
		return &MoveResult{AutoSkipped: true}, nil
	}

	g.robbery = &RobberyContext{
		DiceRoll:        g.currentDice,
		RobberHex:       hex,
		possibleVictims: victims,
	}
	g.state = WaitingForRobChoosePlayer
	return &MoveResult{Victims: append([]int(nil), victims...)}, nil
}

// computeVictimsLocked derives the possible-victims snapshot for a
// robber position: adjacent building, at least one card, not the
// robbing player.
func (g *Game) computeVictimsLocked(robber, hex int) []int {
	var victims []int
	for seat, p := range g.seats {
		if p == nil || seat == robber {
			continue
		}
		if p.Resources.Total() == 0 {
			continue
		}
		adjacent := false
		for _, node := range g.board.HexNodes(hex) {
			if p.hasBuildingAt(node) {
				adjacent = true
				break
			}
		}
		if adjacent {
			victims = append(victims, seat)
		}
	}
	return victims
}

// CanChoosePlayer reports whether the current player may rob seat pn.
// True iff the game is waiting for a robbery choice and pn is a
// non-negative seat present in the victim snapshot. -1 is false
// unconditionally: skipping a mandatory choice is not a choice.
func (g *Game) CanChoosePlayer(pn int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != WaitingForRobChoosePlayer {
		return false
	}
	if pn < 0 {
		return false
	}
	if g.robbery == nil {
		return false
	}
	return g.robbery.hasVictim(pn)
}

// RobberyVictims returns the current victim snapshot, nil outside the
// robbery step. Explicit introspection instead of reflection hooks.
func (g *Game) RobberyVictims() []int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.robbery == nil {
		return nil
	}
	return g.robbery.PossibleVictims()
}

// StealResult reports a completed robbery.
type StealResult struct {
	Victim int
	// Resource is the stolen resource type.
	Resource int
}

// ChoosePlayer steals one random card from the chosen victim and
// resumes the turn. The choice must satisfy CanChoosePlayer.
func (g *Game) ChoosePlayer(chooser, pn int) (*StealResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != WaitingForRobChoosePlayer {
		return nil, illegalf("no robbery choice pending in state %s", StateName(g.state))
	}
	if chooser != g.currentTurn {
		return nil, illegalf("seat %d acted out of turn", chooser)
	}
	if pn < 0 || g.robbery == nil || !g.robbery.hasVictim(pn) {
		return nil, illegalf("seat %d is not a robbery victim", pn)
	}
	thief, err := g.actingPlayerLocked(chooser)
	if err != nil {
		return nil, err
	}
	victim := g.seats[pn]
	if victim == nil || victim.Resources.Total() == 0 {
		// the snapshot said otherwise; fail closed
		g.logger.Error().Int("victim", pn).Msg("victim snapshot out of date")
		return nil, internalf("victim seat %d has nothing to steal", pn)
	}

	rtype := victim.Resources.pickNth(g.rng.Intn(victim.Resources.Total()))
	victim.Resources.add(rtype, -1)
	thief.Resources.add(rtype, 1)

	g.robbery = nil
	g.state = Play1
	return &StealResult{Victim: pn, Resource: rtype}, nil
}

// ChooseNoVictim is the distinct "rob no one" transition. It is legal
// precisely when the victim snapshot is empty; it can never be used
// to bypass a steal someone qualifies for.
func (g *Game) ChooseNoVictim(chooser int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != WaitingForRobChoosePlayer {
		return illegalf("no robbery choice pending in state %s", StateName(g.state))
	}
	if chooser != g.currentTurn {
		return illegalf("seat %d acted out of turn", chooser)
	}
	if g.robbery != nil && len(g.robbery.possibleVictims) > 0 {
		return illegalf("victims are available; choosing no one is not allowed")
	}
	g.robbery = nil
	g.state = Play1
	return nil
}

// EndTurn passes the turn to the next occupied seat.
func (g *Game) EndTurn(pn int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Play1 {
		return illegalf("cannot end turn in state %s", StateName(g.state))
	}
	if pn != g.currentTurn {
		return illegalf("seat %d acted out of turn", pn)
	}
	if _, err := g.actingPlayerLocked(pn); err != nil {
		return err
	}
	g.advanceTurnLocked()
	return nil
}

// actingPlayerLocked resolves the player at a seat the state machine
// believes is occupied. A vacant seat here is a defect; production
// behavior is fail-closed rejection.
func (g *Game) actingPlayerLocked(pn int) (*Player, error) {
	if pn < 0 || pn >= g.maxPlayers {
		return nil, illegalf("seat %d out of range", pn)
	}
	p := g.seats[pn]
	if p == nil {
		g.logger.Error().Int("seat", pn).Str("state", StateName(g.state)).
			Msg("action on vacant seat")
		return nil, internalf("seat %d is vacant", pn)
	}
	return p, nil
}
