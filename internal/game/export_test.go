package game

// Narrow hooks for white-box tests. Production code never calls these.

func (g *Game) forceState(state int) {
	g.mu.Lock()
	g.state = state
	g.mu.Unlock()
}

func (g *Game) forceTurn(pn int) {
	g.mu.Lock()
	g.currentTurn = pn
	g.mu.Unlock()
}

func (g *Game) forceDice(total int) {
	g.mu.Lock()
	g.currentDice = total
	g.mu.Unlock()
}

func (g *Game) forceVP(pn, vp int) {
	g.mu.Lock()
	g.seats[pn].VP = vp
	g.mu.Unlock()
}

func (g *Game) rollTotal() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rollTotalLocked()
}

func (g *Game) forceRoads(pn int, roads [][2]int) {
	g.mu.Lock()
	g.seats[pn].Roads = append([][2]int(nil), roads...)
	g.mu.Unlock()
}

func (g *Game) roadLengthOf(pn int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.longestRoadLenLocked(pn)
}

func (g *Game) recomputeLongestRoad() {
	g.mu.Lock()
	g.updateLongestRoadLocked()
	g.mu.Unlock()
}
