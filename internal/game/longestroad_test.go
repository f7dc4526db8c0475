package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain turns a node walk into road edges.
func chain(nodes ...int) [][2]int {
	out := make([][2]int, 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		out = append(out, roadKey(nodes[i-1], nodes[i]))
	}
	return out
}

func TestLongestRoadComputation(t *testing.T) {
	g := startTestGame(t, "", "a", "b")

	// plain chain
	g.forceRoads(0, chain(1, 2, 3, 4, 5, 6))
	assert.Equal(t, 5, g.roadLengthOf(0))

	// a branch counts only its longest arm
	g.forceRoads(0, chain(1, 2, 3, 4))
	g.forceRoads(1, nil)
	g.mu.Lock()
	g.seats[0].Roads = append(g.seats[0].Roads, chain(3, 10, 11)...)
	g.mu.Unlock()
	assert.Equal(t, 4, g.roadLengthOf(0)) // 1-2-3-10-11

	// a loop is walkable all the way round
	g.forceRoads(0, chain(1, 2, 3, 4, 5, 6, 1))
	assert.Equal(t, 6, g.roadLengthOf(0))

	// an opposing building cuts the route
	g.forceRoads(0, chain(1, 2, 3, 4, 5, 6))
	g.mu.Lock()
	g.seats[1].Settlements = append(g.seats[1].Settlements, 3)
	g.mu.Unlock()
	assert.Equal(t, 3, g.roadLengthOf(0))
}

func TestLongestRoadAwardAndTransfer(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	base0 := g.PlayerAt(0).VP
	base1 := g.PlayerAt(1).VP

	// four segments are not enough
	g.forceRoads(0, chain(2001, 2002, 2003, 2004, 2005))
	g.recomputeLongestRoad()
	assert.Equal(t, -1, g.LongestRoadHolder())
	assert.Equal(t, base0, g.PlayerAt(0).VP)

	// five take the award
	g.forceRoads(0, chain(2001, 2002, 2003, 2004, 2005, 2006))
	g.recomputeLongestRoad()
	assert.Equal(t, 0, g.LongestRoadHolder())
	assert.Equal(t, 5, g.LongestRoadLength())
	assert.Equal(t, base0+2, g.PlayerAt(0).VP)

	// an equal road never takes it from the holder
	g.forceRoads(1, chain(3001, 3002, 3003, 3004, 3005, 3006))
	g.recomputeLongestRoad()
	assert.Equal(t, 0, g.LongestRoadHolder())
	assert.Equal(t, base1, g.PlayerAt(1).VP)

	// a strictly longer one does
	g.forceRoads(1, chain(3001, 3002, 3003, 3004, 3005, 3006, 3007))
	g.recomputeLongestRoad()
	assert.Equal(t, 1, g.LongestRoadHolder())
	assert.Equal(t, 6, g.LongestRoadLength())
	assert.Equal(t, base0, g.PlayerAt(0).VP)
	assert.Equal(t, base1+2, g.PlayerAt(1).VP)
}

func TestLongestRoadLostWhenSplit(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	base := g.PlayerAt(0).VP

	g.forceRoads(0, chain(2001, 2002, 2003, 2004, 2005, 2006))
	g.recomputeLongestRoad()
	require.Equal(t, 0, g.LongestRoadHolder())

	// opposing settlement mid-route drops both halves below five
	g.mu.Lock()
	g.seats[1].Settlements = append(g.seats[1].Settlements, 2003)
	g.mu.Unlock()
	g.recomputeLongestRoad()
	assert.Equal(t, -1, g.LongestRoadHolder())
	assert.Equal(t, 0, g.LongestRoadLength())
	assert.Equal(t, base, g.PlayerAt(0).VP)
}

func TestLongestRoadReleasedWhenHolderLeaves(t *testing.T) {
	g := startTestGame(t, "", "a", "b", "c")
	completePlacement(t, g)

	g.forceRoads(0, chain(2001, 2002, 2003, 2004, 2005, 2006))
	g.recomputeLongestRoad()
	require.Equal(t, 0, g.LongestRoadHolder())
	g.forceState(Play1)
	g.forceTurn(1)

	_, err := g.RemovePlayer(g.PlayerAt(0).Name)
	require.NoError(t, err)
	assert.Equal(t, -1, g.LongestRoadHolder())
}

// freeRoadChain digs out n consecutive unclaimed edges from start,
// steering clear of other players' pieces.
func freeRoadChain(t *testing.T, g *Game, pn, start, n int) [][2]int {
	t.Helper()
	otherBuilding := func(node int) bool {
		for i := 0; i < g.MaxPlayers(); i++ {
			if i == pn {
				continue
			}
			if p := g.PlayerAt(i); p != nil && p.hasBuildingAt(node) {
				return true
			}
		}
		return false
	}
	var dfs func(node int, visited map[int]bool, acc [][2]int) [][2]int
	dfs = func(node int, visited map[int]bool, acc [][2]int) [][2]int {
		if len(acc) == n {
			return acc
		}
		for _, adj := range g.Board().AdjacentNodes(node) {
			if visited[adj] || g.roadTakenLocked(node, adj) || otherBuilding(adj) {
				continue
			}
			visited[adj] = true
			next := append(append([][2]int(nil), acc...), roadKey(node, adj))
			if out := dfs(adj, visited, next); out != nil {
				return out
			}
			visited[adj] = false
		}
		return nil
	}
	out := dfs(start, map[int]bool{start: true}, nil)
	require.NotNil(t, out, "no free %d-edge chain from node %d", n, start)
	return out
}

func TestLongestRoadCanWinTheGame(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	g.forceState(Play1)

	start := g.PlayerAt(pn).Settlements[0]
	path := freeRoadChain(t, g, pn, start, 5)
	g.forceRoads(pn, path[:4])
	g.recomputeLongestRoad()
	require.Equal(t, -1, g.LongestRoadHolder())

	g.forceVP(pn, 8)
	giveAll(t, g, pn, ResourceSet{Clay: 1, Wood: 1})
	require.NoError(t, g.BuildRequest(pn, PieceRoad))
	last := path[4]
	require.NoError(t, g.PutPiece(pn, PieceRoad, EdgeCoord(last[0], last[1])))

	assert.Equal(t, pn, g.LongestRoadHolder())
	assert.Equal(t, StateOver, g.State())
	assert.Equal(t, pn, g.Winner())
}
