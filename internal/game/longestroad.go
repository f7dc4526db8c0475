package game

// Longest-road award: 2 VP for the first player to build a continuous
// road of 5 or more segments, transferred only to a strictly longer
// road, lost when an opposing building splits the route below 5.

const (
	longestRoadMin = 5
	longestRoadVP  = 2
)

// LongestRoadHolder returns the seat holding the longest-road award,
// or -1 when no one does.
func (g *Game) LongestRoadHolder() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.longestRoadHolder
}

// LongestRoadLength returns the length of the awarded road, 0 when
// the award is unheld.
func (g *Game) LongestRoadLength() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.longestRoadLen
}

// longestRoadLenLocked computes the player's longest continuous road:
// the longest trail through their road edges, each segment counted
// once, never passing through a node holding an opponent's building.
func (g *Game) longestRoadLenLocked(pn int) int {
	p := g.seats[pn]
	if p == nil || len(p.Roads) == 0 {
		return 0
	}

	blocked := make(map[int]bool)
	for i, o := range g.seats {
		if o == nil || i == pn {
			continue
		}
		for _, n := range o.Settlements {
			blocked[n] = true
		}
		for _, n := range o.Cities {
			blocked[n] = true
		}
	}

	adj := make(map[int][][2]int)
	for _, r := range p.Roads {
		adj[r[0]] = append(adj[r[0]], r)
		adj[r[1]] = append(adj[r[1]], r)
	}

	used := make(map[[2]int]bool)
	var walk func(node int) int
	walk = func(node int) int {
		best := 0
		for _, r := range adj[node] {
			if used[r] {
				continue
			}
			used[r] = true
			other := r[0] + r[1] - node
			seg := 1
			if !blocked[other] {
				seg += walk(other)
			}
			if seg > best {
				best = seg
			}
			used[r] = false
		}
		return best
	}

	best := 0
	for node := range adj {
		if l := walk(node); l > best {
			best = l
		}
	}
	return best
}

// updateLongestRoadLocked recomputes road lengths for every seat and
// settles the award. The current holder keeps it on ties; it moves
// only to a strictly longer road, and evaporates when no qualifying
// road remains. A tie between challengers while the award is vacant
// crowns no one.
func (g *Game) updateLongestRoadLocked() {
	best, bestSeat, ties := 0, -1, 0
	lens := make([]int, g.maxPlayers)
	for i, p := range g.seats {
		if p == nil {
			continue
		}
		l := g.longestRoadLenLocked(i)
		lens[i] = l
		switch {
		case l > best:
			best, bestSeat, ties = l, i, 1
		case l == best && l > 0:
			ties++
		}
	}

	holder := g.longestRoadHolder
	if holder >= 0 && g.seats[holder] != nil &&
		lens[holder] >= longestRoadMin && lens[holder] >= best {
		g.longestRoadLen = lens[holder]
		return
	}

	if best < longestRoadMin || ties > 1 {
		bestSeat, best = -1, 0
	}
	if bestSeat == holder {
		g.longestRoadLen = best
		return
	}

	if holder >= 0 && g.seats[holder] != nil {
		g.seats[holder].VP -= longestRoadVP
	}
	if bestSeat >= 0 {
		g.seats[bestSeat].VP += longestRoadVP
	}
	g.longestRoadHolder = bestSeat
	g.longestRoadLen = best
	if bestSeat >= 0 {
		g.logger.Info().Int("seat", bestSeat).Int("length", best).Msg("longest road awarded")
	} else if holder >= 0 {
		g.logger.Info().Int("seat", holder).Msg("longest road lost")
	}
}
