package game

// Building and trading during the main portion of a turn.

// SpecialBuildMarker is the build-request piece code that asks for a
// special building phase slot instead of naming a piece. Only the
// 6-player rules have such a phase.
const SpecialBuildMarker = -1

// roadKey normalizes a road's node pair, low node first.
func roadKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// occupiedNodesLocked returns all nodes carrying any building.
func (g *Game) occupiedNodesLocked() map[int]bool {
	out := make(map[int]bool)
	for _, p := range g.seats {
		if p == nil {
			continue
		}
		for _, n := range p.Settlements {
			out[n] = true
		}
		for _, n := range p.Cities {
			out[n] = true
		}
	}
	return out
}

// roadTakenLocked reports whether any player has a road on the edge.
func (g *Game) roadTakenLocked(a, b int) bool {
	k := roadKey(a, b)
	for _, p := range g.seats {
		if p == nil {
			continue
		}
		for _, r := range p.Roads {
			if r == k {
				return true
			}
		}
	}
	return false
}

// BuildRequest validates that a player may begin building a piece:
// right state, their turn, resources in hand, stock remaining. The
// marker value -1 requests the 6-player special building phase; any
// other out-of-range piece code is rejected outright.
func (g *Game) BuildRequest(pn, pieceType int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if pieceType == SpecialBuildMarker {
		return g.requestSpecialBuildLocked(pn)
	}
	if pieceType < PieceRoad || pieceType > PieceCity {
		return illegalf("unknown piece type %d", pieceType)
	}
	if g.state != Play1 {
		return illegalf("cannot build in state %s", StateName(g.state))
	}
	if pn != g.currentTurn {
		return illegalf("seat %d acted out of turn", pn)
	}
	p, err := g.actingPlayerLocked(pn)
	if err != nil {
		return err
	}
	cost, _ := CostOf(pieceType)
	if !p.Resources.Contains(cost) {
		return illegalf("seat %d cannot afford piece type %d", pn, pieceType)
	}
	switch pieceType {
	case PieceRoad:
		if p.roadsLeft <= 0 {
			return illegalf("seat %d has no roads left", pn)
		}
	case PieceSettlement:
		if p.settlementsLeft <= 0 {
			return illegalf("seat %d has no settlements left", pn)
		}
	case PieceCity:
		if p.citiesLeft <= 0 {
			return illegalf("seat %d has no cities left", pn)
		}
	}

	switch pieceType {
	case PieceRoad:
		g.state = PlacingRoad
	case PieceSettlement:
		g.state = PlacingSettlement
	case PieceCity:
		g.state = PlacingCity
	}
	return nil
}

// requestSpecialBuildLocked records a 6-player special-build request
// for the end of the current turn.
func (g *Game) requestSpecialBuildLocked(pn int) error {
	if g.maxPlayers <= 4 {
		return illegalf("special building requires the 6-player rules")
	}
	if g.state < Start1A || g.state >= StateOver {
		return illegalf("cannot request special build in state %s", StateName(g.state))
	}
	if pn == g.currentTurn {
		return illegalf("current player cannot request special build")
	}
	if _, err := g.actingPlayerLocked(pn); err != nil {
		return err
	}
	g.specialBuild[pn] = true
	return nil
}

// PutPiece places the piece a prior BuildRequest paid for. Placement
// legality depends on the piece: roads must join the player's network
// on an existing edge, settlements need a road to the node and respect
// the distance rule, cities upgrade the player's own settlement.
// Reaching the victory point target ends the game immediately.
func (g *Game) PutPiece(pn, pieceType, coord int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if pn != g.currentTurn {
		return illegalf("seat %d acted out of turn", pn)
	}
	p, err := g.actingPlayerLocked(pn)
	if err != nil {
		return err
	}

	switch pieceType {
	case PieceRoad:
		if g.state != PlacingRoad {
			return illegalf("not placing a road in state %s", StateName(g.state))
		}
		a, b := SplitEdgeCoord(coord)
		if !g.board.EdgeExists(a, b) {
			return illegalf("no road edge %d-%d", a, b)
		}
		if g.roadTakenLocked(a, b) {
			return illegalf("edge %d-%d is taken", a, b)
		}
		if !p.touchesRoadNetwork(a) && !p.touchesRoadNetwork(b) {
			return illegalf("road %d-%d does not join seat %d's network", a, b, pn)
		}
		cost, _ := CostOf(PieceRoad)
		p.Resources.Subtract(cost)
		p.Roads = append(p.Roads, roadKey(a, b))
		p.roadsLeft--
		g.updateLongestRoadLocked()

	case PieceSettlement:
		if g.state != PlacingSettlement {
			return illegalf("not placing a settlement in state %s", StateName(g.state))
		}
		if !g.board.IsNode(coord) {
			return illegalf("no such node %d", coord)
		}
		occupied := g.occupiedNodesLocked()
		if occupied[coord] {
			return illegalf("node %d is taken", coord)
		}
		for _, adj := range g.board.AdjacentNodes(coord) {
			if occupied[adj] {
				return illegalf("node %d too close to another building", coord)
			}
		}
		if !p.touchesRoadNetwork(coord) {
			return illegalf("node %d is not on seat %d's road network", coord, pn)
		}
		cost, _ := CostOf(PieceSettlement)
		p.Resources.Subtract(cost)
		p.Settlements = append(p.Settlements, coord)
		p.settlementsLeft--
		p.VP++
		// a new building can split an opposing road
		g.updateLongestRoadLocked()

	case PieceCity:
		if g.state != PlacingCity {
			return illegalf("not placing a city in state %s", StateName(g.state))
		}
		idx := -1
		for i, n := range p.Settlements {
			if n == coord {
				idx = i
				break
			}
		}
		if idx < 0 {
			return illegalf("seat %d has no settlement at node %d", pn, coord)
		}
		cost, _ := CostOf(PieceCity)
		p.Resources.Subtract(cost)
		p.Settlements = append(p.Settlements[:idx], p.Settlements[idx+1:]...)
		p.settlementsLeft++
		p.Cities = append(p.Cities, coord)
		p.citiesLeft--
		p.VP++ // settlement point stays, city adds a second

	default:
		return illegalf("unknown piece type %d", pieceType)
	}

	g.logger.Info().Int("seat", pn).Int("piece", pieceType).Int("coord", coord).Msg("piece placed")

	if p.VP >= g.victoryTargetLocked() {
		g.winner = pn
		g.state = StateOver
		g.logger.Info().Int("seat", pn).Int("vp", p.VP).Msg("game over")
		return nil
	}
	g.state = Play1
	return nil
}

// victoryTargetLocked returns the VP target, honoring the VP option.
func (g *Game) victoryTargetLocked() int {
	if vp := g.opts.Get("VP"); vp != nil && vp.BoolValue {
		return vp.IntValue
	}
	return 10
}

// BankTrade trades give for get with the bank at the given ratio. The
// player must hold everything offered, and both sides must balance:
// ratio cards given per one received.
func (g *Game) BankTrade(pn int, give, get ResourceSet, ratio int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Play1 {
		return illegalf("cannot trade in state %s", StateName(g.state))
	}
	if pn != g.currentTurn {
		return illegalf("seat %d acted out of turn", pn)
	}
	p, err := g.actingPlayerLocked(pn)
	if err != nil {
		return err
	}
	if ratio < 2 || ratio > 4 {
		return illegalf("bad bank trade ratio %d", ratio)
	}
	if get.Total() == 0 {
		return illegalf("bank trade requests nothing")
	}
	if give.Total() != get.Total()*ratio {
		return illegalf("bank trade %d for %d does not match ratio %d:1",
			give.Total(), get.Total(), ratio)
	}
	if !p.Resources.Contains(give) {
		return illegalf("seat %d does not hold the offered resources", pn)
	}

	p.Resources.Subtract(give)
	p.Resources.Add(get)
	return nil
}
