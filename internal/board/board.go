// Package board generates and answers questions about hex board
// layouts. The state machine consumes it read-only at game start:
// terrain, dice numbers, robber start, node adjacency, and potential
// settlement computation all come from here.
//
// Geometry uses a brick representation: hex rows of varying width,
// node positions interleaved between rows. A node ID encodes its
// row band and horizontal position as row*100+pos, which keeps IDs
// stable integers on the wire without a separate index table.
package board

import (
	"math/rand"
	"sort"
)

// Terrain codes. Producing terrains match the resource type codes
// used on the wire; desert produces nothing.
const (
	TerrainDesert = 0
	TerrainClay   = 1
	TerrainOre    = 2
	TerrainSheep  = 3
	TerrainWheat  = 4
	TerrainWood   = 5
)

// Hex is one board tile.
type Hex struct {
	ID      int
	Terrain int
	Number  int // dice number, 0 for desert
}

// Board is an immutable generated layout plus adjacency tables.
type Board struct {
	Hexes     []Hex
	RobberHex int // starting robber position (the desert)

	hexNodes  map[int][]int // hex ID -> its 6 corner node IDs
	nodeHexes map[int][]int // node ID -> hex IDs it touches
	nodeAdj   map[int][]int // node ID -> nodes one road-edge away
	nodes     []int         // all node IDs, sorted
}

// rowWidths returns the hex row layout for a player count.
func rowWidths(maxPlayers int) []int {
	if maxPlayers > 4 {
		return []int{4, 5, 6, 6, 5, 4}
	}
	return []int{3, 4, 5, 4, 3}
}

// terrainPool returns the shuffled-from terrain distribution.
func terrainPool(maxPlayers int) []int {
	if maxPlayers > 4 {
		return flatten(map[int]int{
			TerrainWood: 6, TerrainSheep: 6, TerrainWheat: 6,
			TerrainClay: 5, TerrainOre: 5, TerrainDesert: 2,
		})
	}
	return flatten(map[int]int{
		TerrainWood: 4, TerrainSheep: 4, TerrainWheat: 4,
		TerrainClay: 3, TerrainOre: 3, TerrainDesert: 1,
	})
}

// numberPool returns the dice-number chit distribution.
func numberPool(maxPlayers int) []int {
	if maxPlayers > 4 {
		return []int{
			2, 2, 3, 3, 3, 4, 4, 4, 5, 5, 5, 6, 6, 6,
			8, 8, 8, 9, 9, 9, 10, 10, 10, 11, 11, 11, 12, 12,
		}
	}
	return []int{2, 3, 3, 4, 4, 5, 5, 6, 6, 8, 8, 9, 9, 10, 10, 11, 11, 12}
}

func flatten(counts map[int]int) []int {
	// deterministic order before shuffling
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	var out []int
	for _, k := range keys {
		for i := 0; i < counts[k]; i++ {
			out = append(out, k)
		}
	}
	return out
}

// nodeID packs a node's row band and horizontal position.
func nodeID(row, pos int) int { return row*100 + pos }

// hexID packs a hex's row and center position.
func hexID(row, pos int) int { return row*100 + pos }

// Generate builds a random layout for the given player count. The
// same rng seed always yields the same board.
func Generate(rng *rand.Rand, maxPlayers int) *Board {
	widths := rowWidths(maxPlayers)
	maxw := 0
	for _, w := range widths {
		if w > maxw {
			maxw = w
		}
	}

	terrains := terrainPool(maxPlayers)
	rng.Shuffle(len(terrains), func(i, j int) {
		terrains[i], terrains[j] = terrains[j], terrains[i]
	})
	numbers := numberPool(maxPlayers)
	rng.Shuffle(len(numbers), func(i, j int) {
		numbers[i], numbers[j] = numbers[j], numbers[i]
	})

	b := &Board{
		hexNodes:  make(map[int][]int),
		nodeHexes: make(map[int][]int),
		nodeAdj:   make(map[int][]int),
	}

	edges := make(map[[2]int]bool)
	addEdge := func(a, c int) {
		if a > c {
			a, c = c, a
		}
		edges[[2]int{a, c}] = true
	}

	ti, ni := 0, 0
	for r, w := range widths {
		off := maxw - w
		for c := 0; c < w; c++ {
			p := 2*c + off
			id := hexID(r, p)
			terrain := terrains[ti]
			ti++
			number := 0
			if terrain != TerrainDesert {
				number = numbers[ni]
				ni++
			} else {
				b.RobberHex = id
			}
			b.Hexes = append(b.Hexes, Hex{ID: id, Terrain: terrain, Number: number})

			// corner nodes: three on the band above, three below
			corners := []int{
				nodeID(r, p-1), nodeID(r, p), nodeID(r, p+1),
				nodeID(r+1, p-1), nodeID(r+1, p), nodeID(r+1, p+1),
			}
			b.hexNodes[id] = corners
			for _, n := range corners {
				b.nodeHexes[n] = append(b.nodeHexes[n], id)
			}

			// six road edges around the hex
			addEdge(nodeID(r, p-1), nodeID(r, p))
			addEdge(nodeID(r, p), nodeID(r, p+1))
			addEdge(nodeID(r+1, p-1), nodeID(r+1, p))
			addEdge(nodeID(r+1, p), nodeID(r+1, p+1))
			addEdge(nodeID(r, p-1), nodeID(r+1, p-1))
			addEdge(nodeID(r, p+1), nodeID(r+1, p+1))
		}
	}

	for e := range edges {
		b.nodeAdj[e[0]] = append(b.nodeAdj[e[0]], e[1])
		b.nodeAdj[e[1]] = append(b.nodeAdj[e[1]], e[0])
	}
	for n := range b.nodeHexes {
		b.nodes = append(b.nodes, n)
		sort.Ints(b.nodeAdj[n])
		sort.Ints(b.nodeHexes[n])
	}
	sort.Ints(b.nodes)
	sort.Slice(b.Hexes, func(i, j int) bool { return b.Hexes[i].ID < b.Hexes[j].ID })

	return b
}

// Nodes returns all node IDs, sorted.
func (b *Board) Nodes() []int { return b.nodes }

// IsNode reports whether an ID names a board node.
func (b *Board) IsNode(n int) bool {
	_, ok := b.nodeHexes[n]
	return ok
}

// IsHex reports whether an ID names a board hex.
func (b *Board) IsHex(h int) bool {
	_, ok := b.hexNodes[h]
	return ok
}

// HexNodes returns the corner nodes of a hex.
func (b *Board) HexNodes(h int) []int { return b.hexNodes[h] }

// NodeHexes returns the hexes a node touches.
func (b *Board) NodeHexes(n int) []int { return b.nodeHexes[n] }

// AdjacentNodes returns the nodes one road-edge away from n.
func (b *Board) AdjacentNodes(n int) []int { return b.nodeAdj[n] }

// EdgeExists reports whether a road may connect two nodes.
func (b *Board) EdgeExists(a, c int) bool {
	for _, x := range b.nodeAdj[a] {
		if x == c {
			return true
		}
	}
	return false
}

// HexesByNumber returns hexes whose dice number matches the roll.
func (b *Board) HexesByNumber(number int) []Hex {
	var out []Hex
	for _, h := range b.Hexes {
		if h.Number == number {
			out = append(out, h)
		}
	}
	return out
}

// PotentialSettlements returns the nodes where a new settlement may
// go given the set of already-occupied nodes: free, and no occupied
// node one edge away (the distance rule).
func (b *Board) PotentialSettlements(occupied map[int]bool) []int {
	var out []int
	for _, n := range b.nodes {
		if occupied[n] {
			continue
		}
		blocked := false
		for _, adj := range b.nodeAdj[n] {
			if occupied[adj] {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, n)
		}
	}
	return out
}

// Layout flattens the board for the wire: parallel terrain and number
// lists in hex-ID order.
func (b *Board) Layout() (hexes, numbers []int) {
	hexes = make([]int, len(b.Hexes))
	numbers = make([]int, len(b.Hexes))
	for i, h := range b.Hexes {
		hexes[i] = h.Terrain
		numbers[i] = h.Number
	}
	return hexes, numbers
}
