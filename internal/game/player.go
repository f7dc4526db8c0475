package game

// Player is one occupied seat's state. The zero value is not valid;
// players enter a game only through AddPlayer.
type Player struct {
	Name  string
	Robot bool

	Resources ResourceSet
	VP        int

	Settlements []int    // node IDs
	Cities      []int    // node IDs
	Roads       [][2]int // node ID pairs, low node first

	roadsLeft       int
	settlementsLeft int
	citiesLeft      int
}

func newPlayer(name string, robot bool) *Player {
	return &Player{
		Name:            name,
		Robot:           robot,
		roadsLeft:       stockRoads,
		settlementsLeft: stockSettlements,
		citiesLeft:      stockCities,
	}
}

// snapshot returns an independent copy safe to hand outside the lock.
func (p *Player) snapshot() *Player {
	c := *p
	c.Settlements = append([]int(nil), p.Settlements...)
	c.Cities = append([]int(nil), p.Cities...)
	c.Roads = append([][2]int(nil), p.Roads...)
	return &c
}

// hasBuildingAt reports whether the player owns a settlement or city
// on the node.
func (p *Player) hasBuildingAt(node int) bool {
	for _, n := range p.Settlements {
		if n == node {
			return true
		}
	}
	for _, n := range p.Cities {
		if n == node {
			return true
		}
	}
	return false
}

// touchesRoadNetwork reports whether the node is an endpoint of one of
// the player's roads or carries one of their buildings.
func (p *Player) touchesRoadNetwork(node int) bool {
	if p.hasBuildingAt(node) {
		return true
	}
	for _, r := range p.Roads {
		if r[0] == node || r[1] == node {
			return true
		}
	}
	return false
}

// RobberyContext is attached to a game while it is in the robbery
// state. possibleVictims is a derived, read-only snapshot for the
// current robbery step: recomputed when the robber moves, consumed
// once a victim is chosen or the step is skipped. It never contains
// a pseudo-victim; "no one" is a distinct transition, not an entry.
type RobberyContext struct {
	DiceRoll  int
	RobberHex int

	possibleVictims []int // seat indices, sorted
}

// PossibleVictims returns a copy of the victim snapshot.
func (rc *RobberyContext) PossibleVictims() []int {
	return append([]int(nil), rc.possibleVictims...)
}

// hasVictim reports whether a seat index is in the snapshot.
func (rc *RobberyContext) hasVictim(pn int) bool {
	for _, v := range rc.possibleVictims {
		if v == pn {
			return true
		}
	}
	return false
}
