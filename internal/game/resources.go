// Package game implements the authoritative per-game state machine:
// seats and turn order, game options, build and trade legality, the
// robbery sub-protocol, and win detection. Each Game instance is
// mutated by exactly one action at a time; the dispatcher provides
// that serialization, and the internal lock only makes read-side
// snapshots (API, CLI) safe.
package game

// Resource type codes, stable on the wire.
const (
	ResourceClay  = 1
	ResourceOre   = 2
	ResourceSheep = 3
	ResourceWheat = 4
	ResourceWood  = 5
)

// Piece type codes. -1 is reserved on the wire as the special-build
// phase marker and is not a placeable piece.
const (
	PieceRoad       = 0
	PieceSettlement = 1
	PieceCity       = 2
)

// Per-player piece stock at game start.
const (
	stockRoads       = 15
	stockSettlements = 5
	stockCities      = 4
)

// ResourceSet is a bundle of resource card counts.
type ResourceSet struct {
	Clay  int
	Ore   int
	Sheep int
	Wheat int
	Wood  int
}

// Amount returns the count of one resource type.
func (rs ResourceSet) Amount(rtype int) int {
	switch rtype {
	case ResourceClay:
		return rs.Clay
	case ResourceOre:
		return rs.Ore
	case ResourceSheep:
		return rs.Sheep
	case ResourceWheat:
		return rs.Wheat
	case ResourceWood:
		return rs.Wood
	}
	return 0
}

// add adjusts one resource type by delta, which may be negative.
func (rs *ResourceSet) add(rtype, delta int) {
	switch rtype {
	case ResourceClay:
		rs.Clay += delta
	case ResourceOre:
		rs.Ore += delta
	case ResourceSheep:
		rs.Sheep += delta
	case ResourceWheat:
		rs.Wheat += delta
	case ResourceWood:
		rs.Wood += delta
	}
}

// Add merges another set into this one.
func (rs *ResourceSet) Add(other ResourceSet) {
	rs.Clay += other.Clay
	rs.Ore += other.Ore
	rs.Sheep += other.Sheep
	rs.Wheat += other.Wheat
	rs.Wood += other.Wood
}

// Subtract removes another set; caller must check Contains first.
func (rs *ResourceSet) Subtract(other ResourceSet) {
	rs.Clay -= other.Clay
	rs.Ore -= other.Ore
	rs.Sheep -= other.Sheep
	rs.Wheat -= other.Wheat
	rs.Wood -= other.Wood
}

// Contains reports whether every amount in other is covered.
func (rs ResourceSet) Contains(other ResourceSet) bool {
	return rs.Clay >= other.Clay &&
		rs.Ore >= other.Ore &&
		rs.Sheep >= other.Sheep &&
		rs.Wheat >= other.Wheat &&
		rs.Wood >= other.Wood
}

// Total is the number of cards in the set.
func (rs ResourceSet) Total() int {
	return rs.Clay + rs.Ore + rs.Sheep + rs.Wheat + rs.Wood
}

// pickNth returns the type of the nth card (0-based) in clay..wood
// order; used for uniform random steals.
func (rs ResourceSet) pickNth(n int) int {
	for _, rt := range []int{ResourceClay, ResourceOre, ResourceSheep, ResourceWheat, ResourceWood} {
		c := rs.Amount(rt)
		if n < c {
			return rt
		}
		n -= c
	}
	return 0
}

// Build costs per piece type.
var pieceCosts = map[int]ResourceSet{
	PieceRoad:       {Clay: 1, Wood: 1},
	PieceSettlement: {Clay: 1, Sheep: 1, Wheat: 1, Wood: 1},
	PieceCity:       {Ore: 3, Wheat: 2},
}

// CostOf returns the bank cost of a piece type.
func CostOf(pieceType int) (ResourceSet, bool) {
	c, ok := pieceCosts[pieceType]
	return c, ok
}
