package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexhaven-project/hexhaven/internal/board"
)

func newTestGame(t *testing.T, optSpec string, names ...string) *Game {
	t.Helper()
	var opts *OptionSet
	if optSpec != "" {
		var err error
		opts, err = ParseOptionSet(optSpec, KnownOptions())
		require.NoError(t, err)
	}
	g, err := New("testgame", opts)
	require.NoError(t, err)
	for i, n := range names {
		require.NoError(t, g.AddPlayer(n, i, false))
	}
	return g
}

func startTestGame(t *testing.T, optSpec string, names ...string) *Game {
	t.Helper()
	g := newTestGame(t, optSpec, names...)
	require.NoError(t, g.Start(42))
	return g
}

// completePlacement walks the serpentine initial placement using the
// generated board's own legality data.
func completePlacement(t *testing.T, g *Game) {
	t.Helper()
	for g.State() == Start1A || g.State() == Start2A {
		pn := g.CurrentTurn()
		nodes := g.PotentialSettlements(pn)
		require.NotEmpty(t, nodes)
		node := nodes[0]
		require.NoError(t, g.PlaceInitialSettlement(pn, node))

		placed := false
		for _, adj := range g.Board().AdjacentNodes(node) {
			if err := g.PlaceInitialRoad(pn, EdgeCoord(node, adj)); err == nil {
				placed = true
				break
			}
		}
		require.True(t, placed, "no legal road from node %d", node)
	}
	require.Equal(t, RollOrCard, g.State())
}

func TestNewGameValidation(t *testing.T) {
	tests := []struct {
		name     string
		gameName string
		opts     string
		wantErr  bool
	}{
		{"ok", "alpha", "", false},
		{"empty name", "", "", true},
		{"name too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "", true},
		{"delimiter in name", "a|b", "", true},
		{"comma in name", "a,b", "", true},
		{"PL too low", "g", "PL=1", true},
		{"PL too high", "g", "PL=7", true},
		{"unknown option", "g", "ZZ=t", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var opts *OptionSet
			if tc.opts != "" {
				var err error
				opts, err = ParseOptionSet(tc.opts, KnownOptions())
				if err != nil {
					require.True(t, tc.wantErr)
					return
				}
			}
			_, err := New(tc.gameName, opts)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSixPlayerSeating(t *testing.T) {
	g := newTestGame(t, "PL=6", "a", "b")
	assert.Equal(t, 6, g.MaxPlayers())
	assert.True(t, g.IsSeatVacant(5))

	g4 := newTestGame(t, "", "a")
	assert.Equal(t, 4, g4.MaxPlayers())
	assert.False(t, g4.IsSeatVacant(5))
	assert.False(t, g4.IsSeatVacant(-1))
}

func TestScenarioForcesSeaBoard(t *testing.T) {
	g := newTestGame(t, "SC="+ScenarioFourIslands)
	assert.True(t, g.HasSeaBoard())
	assert.Equal(t, 2000, g.MinVersionRequired())
}

func TestOpportunisticOptionNeverRaisesMinVersion(t *testing.T) {
	g := newTestGame(t, "UB=t")
	assert.Equal(t, -1, g.MinVersionRequired())

	// a non-opportunistic gated option does raise it
	g2 := newTestGame(t, "PLB=t")
	assert.Equal(t, 1108, g2.MinVersionRequired())
}

func TestSeatLifecycle(t *testing.T) {
	g := newTestGame(t, "", "alice")
	assert.ErrorIs(t, g.AddPlayer("bob", 0, false), ErrIllegalAction)   // occupied
	assert.ErrorIs(t, g.AddPlayer("alice", 1, false), ErrIllegalAction) // already seated
	assert.ErrorIs(t, g.AddPlayer("bob", 9, false), ErrIllegalAction)   // out of range
	require.NoError(t, g.AddPlayer("bob", 2, false))
	assert.Equal(t, 2, g.PlayerCount())

	pn, err := g.RemovePlayer("alice")
	require.NoError(t, err)
	assert.Equal(t, 0, pn)
	_, err = g.RemovePlayer("alice")
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestStartNeedsTwoPlayers(t *testing.T) {
	g := newTestGame(t, "", "solo")
	assert.ErrorIs(t, g.Start(1), ErrIllegalAction)
}

func TestInitialPlacementSerpentine(t *testing.T) {
	g := startTestGame(t, "", "a", "b", "c")
	first := g.CurrentTurn()
	assert.Equal(t, Start1A, g.State())

	completePlacement(t, g)

	// after setup the first player rolls, round 1
	assert.Equal(t, first, g.CurrentTurn())
	assert.Equal(t, 1, g.Round())
	assert.Equal(t, -1, g.CurrentDice())

	// second-round settlements granted starting resources
	total := 0
	for pn := 0; pn < g.MaxPlayers(); pn++ {
		if p := g.PlayerAt(pn); p != nil {
			assert.Equal(t, 2, p.VP)
			total += p.Resources.Total()
		}
	}
	assert.Greater(t, total, 0)
}

func TestInitialRoadMustTouchNewSettlement(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	pn := g.CurrentTurn()
	nodes := g.PotentialSettlements(pn)
	require.NoError(t, g.PlaceInitialSettlement(pn, nodes[0]))

	// pick an edge nowhere near the settlement
	far := nodes[len(nodes)-1]
	adj := g.Board().AdjacentNodes(far)
	err := g.PlaceInitialRoad(pn, EdgeCoord(far, adj[0]))
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestDistanceRule(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	pn := g.CurrentTurn()
	node := g.PotentialSettlements(pn)[0]
	require.NoError(t, g.PlaceInitialSettlement(pn, node))
	adj := g.Board().AdjacentNodes(node)
	require.NoError(t, g.PlaceInitialRoad(pn, EdgeCoord(node, adj[0])))

	next := g.CurrentTurn()
	require.NotEqual(t, pn, next)
	assert.ErrorIs(t, g.PlaceInitialSettlement(next, node), ErrIllegalAction)
	assert.ErrorIs(t, g.PlaceInitialSettlement(next, adj[0]), ErrIllegalAction)
}

func TestRollDiceTransitions(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()

	_, err := g.RollDice((pn + 1) % 2)
	assert.ErrorIs(t, err, ErrIllegalAction)

	res, err := g.RollDice(pn)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Total, 2)
	assert.LessOrEqual(t, res.Total, 12)
	assert.Equal(t, res.Total, g.CurrentDice())
	if res.Robber {
		assert.Equal(t, 7, res.Total)
		assert.Equal(t, PlacingRobber, g.State())
	} else {
		assert.Equal(t, Play1, g.State())
	}

	_, err = g.RollDice(pn)
	assert.ErrorIs(t, err, ErrIllegalAction) // already rolled
}

func TestNoSevensEarlyRounds(t *testing.T) {
	g := startTestGame(t, "N7=t7", "a", "b")
	completePlacement(t, g)
	require.Equal(t, 1, g.Round())
	for i := 0; i < 500; i++ {
		assert.NotEqual(t, 7, g.rollTotal())
	}
}

// robberTargetHex finds a hex adjacent to one of the victim's
// settlements that the robber is not already on.
func robberTargetHex(t *testing.T, g *Game, victim int) int {
	t.Helper()
	for _, node := range g.PlayerAt(victim).Settlements {
		for _, h := range g.Board().NodeHexes(node) {
			if h != g.RobberAt() {
				return h
			}
		}
	}
	t.Fatal("no hex adjacent to victim's settlements")
	return 0
}

func TestRobberVictimComputation(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	opp := (pn + 1) % 2

	g.forceState(PlacingRobber)
	g.forceDice(7)

	// a hex next to the opponent's settlement, opponent holding cards
	require.NoError(t, g.GrantResources(g.PlayerAt(opp).Name, ResourceSet{Wood: 1}))
	target := robberTargetHex(t, g, opp)

	res, err := g.MoveRobber(pn, target)
	require.NoError(t, err)
	assert.False(t, res.AutoSkipped)
	assert.Contains(t, res.Victims, opp)
	assert.NotContains(t, res.Victims, pn)
	assert.Equal(t, WaitingForRobChoosePlayer, g.State())
	assert.Equal(t, res.Victims, g.RobberyVictims())
}

func TestRobberStaysPutRejected(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	g.forceState(PlacingRobber)
	_, err := g.MoveRobber(pn, g.RobberAt())
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestRobberNoVictimsAutoAdvances(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	opp := (pn + 1) % 2
	g.forceState(PlacingRobber)

	// opponent holds no cards at all, so no hex can produce a victim
	g.mu.Lock()
	g.seats[opp].Resources = ResourceSet{}
	g.mu.Unlock()

	res, err := g.MoveRobber(pn, robberTargetHex(t, g, opp))
	require.NoError(t, err)
	assert.True(t, res.AutoSkipped)
	assert.Empty(t, res.Victims)
	assert.Equal(t, Play1, g.State())
	assert.Nil(t, g.RobberyVictims())
}

func TestCanChoosePlayerGuards(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	opp := (pn + 1) % 2

	// outside the robbery state nothing is choosable
	assert.False(t, g.CanChoosePlayer(opp))
	assert.False(t, g.CanChoosePlayer(-1))

	g.forceState(PlacingRobber)
	g.forceDice(7)
	require.NoError(t, g.GrantResources(g.PlayerAt(opp).Name, ResourceSet{Ore: 2}))
	_, err := g.MoveRobber(pn, robberTargetHex(t, g, opp))
	require.NoError(t, err)

	assert.True(t, g.CanChoosePlayer(opp))
	assert.False(t, g.CanChoosePlayer(pn))
	assert.False(t, g.CanChoosePlayer(-1), "-1 must never be choosable")
	assert.False(t, g.CanChoosePlayer(99))

	// choosing no one while a victim exists is rejected
	assert.ErrorIs(t, g.ChooseNoVictim(pn), ErrIllegalAction)

	before := g.PlayerAt(opp).Resources.Total()
	steal, err := g.ChoosePlayer(pn, opp)
	require.NoError(t, err)
	assert.Equal(t, opp, steal.Victim)
	assert.Equal(t, before-1, g.PlayerAt(opp).Resources.Total())
	assert.Equal(t, Play1, g.State())
	assert.Nil(t, g.RobberyVictims())
}

func giveAll(t *testing.T, g *Game, pn int, rs ResourceSet) {
	t.Helper()
	require.NoError(t, g.GrantResources(g.PlayerAt(pn).Name, rs))
}

func TestBuildRoad(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	g.forceState(Play1)

	assert.ErrorIs(t, g.BuildRequest(pn, PieceRoad), ErrIllegalAction) // cannot afford
	giveAll(t, g, pn, ResourceSet{Clay: 1, Wood: 1})
	require.NoError(t, g.BuildRequest(pn, PieceRoad))
	assert.Equal(t, PlacingRoad, g.State())

	p := g.PlayerAt(pn)
	end := p.Roads[0]
	placed := false
	for _, n := range []int{end[0], end[1]} {
		for _, adj := range g.Board().AdjacentNodes(n) {
			if err := g.PutPiece(pn, PieceRoad, EdgeCoord(n, adj)); err == nil {
				placed = true
				break
			}
		}
		if placed {
			break
		}
	}
	require.True(t, placed)
	assert.Equal(t, Play1, g.State())
	assert.Len(t, g.PlayerAt(pn).Roads, 3)
}

func TestBuildRequestRejectsUnknownPiece(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	g.forceState(Play1)
	assert.ErrorIs(t, g.BuildRequest(pn, -2), ErrIllegalAction)
	assert.ErrorIs(t, g.BuildRequest(pn, 3), ErrIllegalAction)
	assert.Equal(t, Play1, g.State())
}

func TestSpecialBuildMarker(t *testing.T) {
	g4 := startTestGame(t, "", "a", "b")
	completePlacement(t, g4)
	g4.forceState(Play1)
	other := (g4.CurrentTurn() + 1) % 2
	assert.ErrorIs(t, g4.BuildRequest(other, SpecialBuildMarker), ErrIllegalAction)

	g6 := startTestGame(t, "PL=6", "a", "b", "c")
	completePlacement(t, g6)
	g6.forceState(Play1)
	cur := g6.CurrentTurn()
	assert.ErrorIs(t, g6.BuildRequest(cur, SpecialBuildMarker), ErrIllegalAction)
	var off int
	for pn := 0; pn < 3; pn++ {
		if pn != cur {
			off = pn
			break
		}
	}
	assert.NoError(t, g6.BuildRequest(off, SpecialBuildMarker))
}

func TestCityUpgrade(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	g.forceState(Play1)
	giveAll(t, g, pn, ResourceSet{Ore: 3, Wheat: 2})

	node := g.PlayerAt(pn).Settlements[0]
	require.NoError(t, g.BuildRequest(pn, PieceCity))
	require.NoError(t, g.PutPiece(pn, PieceCity, node))

	p := g.PlayerAt(pn)
	assert.NotContains(t, p.Settlements, node)
	assert.Contains(t, p.Cities, node)
	assert.Equal(t, 3, p.VP)
}

func TestCityNeedsOwnSettlement(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	opp := (pn + 1) % 2
	g.forceState(Play1)
	giveAll(t, g, pn, ResourceSet{Ore: 3, Wheat: 2})
	require.NoError(t, g.BuildRequest(pn, PieceCity))
	err := g.PutPiece(pn, PieceCity, g.PlayerAt(opp).Settlements[0])
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestWinDetection(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	g.forceState(Play1)
	g.forceVP(pn, 9)
	giveAll(t, g, pn, ResourceSet{Ore: 3, Wheat: 2})

	node := g.PlayerAt(pn).Settlements[0]
	require.NoError(t, g.BuildRequest(pn, PieceCity))
	require.NoError(t, g.PutPiece(pn, PieceCity, node))

	assert.Equal(t, StateOver, g.State())
	assert.Equal(t, pn, g.Winner())
	assert.ErrorIs(t, g.EndTurn(pn), ErrIllegalAction)
}

func TestBankTrade(t *testing.T) {
	g := startTestGame(t, "", "a", "b")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	g.forceState(Play1)
	giveAll(t, g, pn, ResourceSet{Wood: 4})
	before := g.PlayerAt(pn).Resources

	assert.ErrorIs(t, g.BankTrade(pn, ResourceSet{Wood: 3}, ResourceSet{Ore: 1}, 4), ErrIllegalAction)
	assert.ErrorIs(t, g.BankTrade(pn, ResourceSet{Wood: 4}, ResourceSet{}, 4), ErrIllegalAction)

	require.NoError(t, g.BankTrade(pn, ResourceSet{Wood: 4}, ResourceSet{Ore: 1}, 4))
	after := g.PlayerAt(pn).Resources
	assert.Equal(t, before.Wood-4, after.Wood)
	assert.Equal(t, before.Ore+1, after.Ore)
}

func TestEndTurnAdvances(t *testing.T) {
	g := startTestGame(t, "", "a", "b", "c")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	g.forceState(Play1)

	other := (pn + 1) % 3
	assert.ErrorIs(t, g.EndTurn(other), ErrIllegalAction)
	require.NoError(t, g.EndTurn(pn))
	assert.Equal(t, RollOrCard, g.State())
	assert.NotEqual(t, pn, g.CurrentTurn())
	assert.Equal(t, -1, g.CurrentDice())
}

func TestLeavingCurrentPlayerAdvancesTurn(t *testing.T) {
	g := startTestGame(t, "", "a", "b", "c")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	g.forceState(Play1)

	name := g.PlayerAt(pn).Name
	_, err := g.RemovePlayer(name)
	require.NoError(t, err)
	assert.NotEqual(t, pn, g.CurrentTurn())
	assert.Equal(t, RollOrCard, g.State())
}

func TestLeavingCurrentPlayerDuringPlacementStaysInPlacement(t *testing.T) {
	g := startTestGame(t, "", "a", "b", "c")
	require.Equal(t, Start1A, g.State())
	pn := g.CurrentTurn()

	_, err := g.RemovePlayer(g.PlayerAt(pn).Name)
	require.NoError(t, err)

	assert.Equal(t, Start1A, g.State())
	next := g.CurrentTurn()
	assert.NotEqual(t, pn, next)
	require.NotNil(t, g.PlayerAt(next), "turn handed to vacant seat %d", next)

	// the two remaining players finish setup normally
	completePlacement(t, g)
	assert.Equal(t, 1, g.Round())
	require.NotNil(t, g.PlayerAt(g.CurrentTurn()))
}

func TestLeavingOtherPlayerDuringPlacementDropsFromOrder(t *testing.T) {
	g := startTestGame(t, "", "a", "b", "c")
	cur := g.CurrentTurn()
	other := -1
	for pn := 0; pn < g.MaxPlayers(); pn++ {
		if pn != cur && g.PlayerAt(pn) != nil {
			other = pn
			break
		}
	}
	require.GreaterOrEqual(t, other, 0)

	_, err := g.RemovePlayer(g.PlayerAt(other).Name)
	require.NoError(t, err)
	assert.Equal(t, Start1A, g.State())
	assert.Equal(t, cur, g.CurrentTurn())

	// the serpentine must never hand the turn to the vacated seat
	for g.State() == Start1A || g.State() == Start2A {
		pn := g.CurrentTurn()
		require.NotEqual(t, other, pn, "turn handed to vacant seat %d", pn)
		require.NotNil(t, g.PlayerAt(pn))
		node := g.PotentialSettlements(pn)[0]
		require.NoError(t, g.PlaceInitialSettlement(pn, node))
		placed := false
		for _, adj := range g.Board().AdjacentNodes(node) {
			if g.PlaceInitialRoad(pn, EdgeCoord(node, adj)) == nil {
				placed = true
				break
			}
		}
		require.True(t, placed)
	}
	assert.Equal(t, RollOrCard, g.State())
	assert.Equal(t, 1, g.Round())
}

func TestLeavingBetweenSettlementAndRoadAbandonsHalfTurn(t *testing.T) {
	g := startTestGame(t, "", "a", "b", "c")
	pn := g.CurrentTurn()
	node := g.PotentialSettlements(pn)[0]
	require.NoError(t, g.PlaceInitialSettlement(pn, node))
	require.Equal(t, Start1B, g.State())

	_, err := g.RemovePlayer(g.PlayerAt(pn).Name)
	require.NoError(t, err)

	assert.Equal(t, Start1A, g.State())
	require.NotNil(t, g.PlayerAt(g.CurrentTurn()))
	completePlacement(t, g)
}

func TestLeavingDuringRobberyClearsRobbery(t *testing.T) {
	g := startTestGame(t, "", "a", "b", "c")
	completePlacement(t, g)
	pn := g.CurrentTurn()
	opp := (pn + 1) % 3

	g.forceState(PlacingRobber)
	g.forceDice(7)
	giveAll(t, g, opp, ResourceSet{Wood: 1})
	_, err := g.MoveRobber(pn, robberTargetHex(t, g, opp))
	require.NoError(t, err)
	require.Equal(t, WaitingForRobChoosePlayer, g.State())

	_, err = g.RemovePlayer(g.PlayerAt(pn).Name)
	require.NoError(t, err)
	assert.Equal(t, RollOrCard, g.State())
	assert.Nil(t, g.RobberyVictims())
	assert.NotEqual(t, pn, g.CurrentTurn())
}

func TestTable(t *testing.T) {
	tbl := NewTable()
	g, err := tbl.Create("alpha", nil)
	require.NoError(t, err)
	assert.Same(t, g, tbl.Get("alpha"))

	_, err = tbl.Create("alpha", nil)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = tbl.Create("beta", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, tbl.Names())
	assert.Equal(t, 2, tbl.Count())

	assert.True(t, tbl.Delete("alpha"))
	assert.False(t, tbl.Delete("alpha"))
	assert.Nil(t, tbl.Get("alpha"))
	assert.True(t, g.Destroyed())
}

func TestSavegameName(t *testing.T) {
	assert.True(t, IsValidSavegameName("my_game-1"))
	assert.False(t, IsValidSavegameName(""))
	assert.False(t, IsValidSavegameName("bad name"))
	assert.False(t, IsValidSavegameName("bad|name"))
}

func TestParseResourceGrant(t *testing.T) {
	rs, who, err := ParseResourceGrant("1 0 2 0 3 alice")
	require.NoError(t, err)
	assert.Equal(t, ResourceSet{Clay: 1, Sheep: 2, Wood: 3}, rs)
	assert.Equal(t, "alice", who)

	_, _, err = ParseResourceGrant("1 2 3 alice")
	assert.ErrorIs(t, err, ErrConfig)
	_, _, err = ParseResourceGrant("1 2 3 4 x alice")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestEdgeCoordRoundTrip(t *testing.T) {
	a, b := SplitEdgeCoord(EdgeCoord(204, 103))
	assert.Equal(t, 103, a)
	assert.Equal(t, 204, b)
}

func TestBoardGeneration(t *testing.T) {
	g4 := startTestGame(t, "", "a", "b")
	require.NotNil(t, g4.Board())
	assert.Len(t, g4.Board().Hexes, 19)
	assert.True(t, g4.Board().IsHex(g4.Board().RobberHex))

	g6 := startTestGame(t, "PL=6", "a", "b")
	assert.Len(t, g6.Board().Hexes, 30)

	// same seed, same board
	g1 := startTestGame(t, "", "a", "b")
	g2 := startTestGame(t, "", "a", "b")
	var b1, b2 *board.Board = g1.Board(), g2.Board()
	assert.Equal(t, b1.Hexes, b2.Hexes)
}

func TestErrorClasses(t *testing.T) {
	assert.True(t, errors.Is(illegalf("x"), ErrIllegalAction))
	assert.True(t, errors.Is(configf("x"), ErrConfig))
	assert.True(t, errors.Is(internalf("x"), ErrInternal))
}
