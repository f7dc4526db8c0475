package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexhaven-project/hexhaven/internal/config"
	"github.com/hexhaven-project/hexhaven/internal/events"
	"github.com/hexhaven-project/hexhaven/internal/game"
	"github.com/hexhaven-project/hexhaven/internal/message"
	"github.com/hexhaven-project/hexhaven/internal/network"
	"github.com/hexhaven-project/hexhaven/internal/registry"
)

// testClient drives one end of a piped connection and records every
// frame the server sends.
type testClient struct {
	t    *testing.T
	conn *network.Conn

	mu     sync.Mutex
	frames []string
}

func newTestClient(t *testing.T) *testClient {
	server, client := net.Pipe()
	tc := &testClient{t: t, conn: network.NewConn(server)}
	go func() {
		sc := bufio.NewScanner(client)
		for sc.Scan() {
			tc.mu.Lock()
			tc.frames = append(tc.frames, sc.Text())
			tc.mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		tc.conn.Close()
		client.Close()
	})
	return tc
}

// received returns every decodable frame received so far, in order.
func (tc *testClient) received() []message.Message {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	out := make([]message.Message, 0, len(tc.frames))
	for _, f := range tc.frames {
		if m, err := message.Decode(f); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (tc *testClient) lastOfType(mt message.MsgType) message.Message {
	var found message.Message
	for _, m := range tc.received() {
		if m.Type() == mt {
			found = m
		}
	}
	return found
}

// waitFor blocks until a message of the given type arrives; game
// actions run on the game worker, so arrival is asynchronous.
func (tc *testClient) waitFor(mt message.MsgType) message.Message {
	tc.t.Helper()
	var m message.Message
	require.Eventually(tc.t, func() bool {
		m = tc.lastOfType(mt)
		return m != nil
	}, 2*time.Second, 10*time.Millisecond, "no message of type %d arrived", mt)
	return m
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	cfg := config.DefaultConfig()
	return New(cfg, registry.New(time.Minute), game.NewTable(), events.NewEventBus(), nil)
}

// connect registers a client and consumes the server's greeting.
func connect(t *testing.T, d *Dispatcher) (*testClient, string) {
	t.Helper()
	tc := newTestClient(t)
	id := d.HandleConnect(context.Background(), tc.conn)
	tc.waitFor(message.TypeVersion)
	return tc, id
}

// handshake completes the version exchange for a connected client.
func handshake(t *testing.T, d *Dispatcher, tc *testClient, id string) {
	t.Helper()
	d.HandleFrame(context.Background(), id,
		fmt.Sprintf("9998|%d|%s|\t|\t", config.ServerVersion, config.ServerVersionString))
	tc.waitFor(message.TypeGames)
}

// join authenticates a nickname and joins (creating) a game.
func join(t *testing.T, d *Dispatcher, tc *testClient, id, nickname, gameName string) {
	t.Helper()
	d.HandleFrame(context.Background(), id,
		fmt.Sprintf("1013|%s|\t|-|%s", nickname, gameName))
	tc.waitFor(message.TypeJoinGameAuth)
}

func TestServerGreetsWithVersion(t *testing.T) {
	d := newTestDispatcher(t)
	tc, _ := connect(t, d)

	v := tc.lastOfType(message.TypeVersion).(*message.Version)
	assert.Equal(t, config.ServerVersion, v.Number)
	assert.Equal(t, config.ServerVersionString, v.VersString)
	assert.NotEmpty(t, v.Feats, "server must declare its capability set")
}

func TestHandshakeRequiredFirst(t *testing.T) {
	d := newTestDispatcher(t)
	tc, id := connect(t, d)

	// a join before the version exchange terminates the connection
	d.HandleFrame(context.Background(), id, "1013|alice|\t|-|seven")
	tc.waitFor(message.TypeRejectConnection)
	assert.True(t, tc.conn.IsClosed())
}

func TestMalformedPreHandshakeFrameRejects(t *testing.T) {
	d := newTestDispatcher(t)
	tc, id := connect(t, d)

	d.HandleFrame(context.Background(), id, "totally_invalid")
	tc.waitFor(message.TypeRejectConnection)
	assert.True(t, tc.conn.IsClosed())
}

func TestMalformedFrameAfterHandshakeDropped(t *testing.T) {
	d := newTestDispatcher(t)
	tc, id := connect(t, d)
	handshake(t, d, tc, id)

	d.HandleFrame(context.Background(), id, "garbage frame")
	assert.False(t, tc.conn.IsClosed())

	// the connection is still serviced
	d.HandleFrame(context.Background(), id, "9999|5")
	ping := tc.waitFor(message.TypeServerPing).(*message.ServerPing)
	assert.Equal(t, 5, ping.SleepTime)
}

func TestJoinCreatesGame(t *testing.T) {
	d := newTestDispatcher(t)
	tc, id := connect(t, d)
	handshake(t, d, tc, id)

	join(t, d, tc, id, "alice", "seven")

	require.NotNil(t, d.table.Get("seven"))
	assert.Equal(t, 1, d.MemberCount("seven"))

	// the snapshot includes the current state
	st := tc.waitFor(message.TypeGameState).(*message.GameState)
	assert.Equal(t, "seven", st.Game)
	assert.Equal(t, game.StateNew, st.State)

	// and the lobby learned about the new game
	ng := tc.waitFor(message.TypeNewGame).(*message.NewGame)
	assert.Equal(t, "seven", ng.Game)
}

func TestOverlongNicknameNotAllowed(t *testing.T) {
	d := newTestDispatcher(t)
	tc, id := connect(t, d)
	handshake(t, d, tc, id)

	d.HandleFrame(context.Background(), id, "1013|abcdefghijklmnopqrstu|\t|-|seven")
	sm := tc.waitFor(message.TypeStatusMessage).(*message.StatusMessage)
	assert.Equal(t, message.StatusNameNotAllowed, sm.Status)
	assert.Nil(t, d.table.Get("seven"), "a rejected join must not create the game")
}

func TestNicknameInUse(t *testing.T) {
	d := newTestDispatcher(t)
	tc1, id1 := connect(t, d)
	handshake(t, d, tc1, id1)
	join(t, d, tc1, id1, "alice", "seven")

	tc2, id2 := connect(t, d)
	handshake(t, d, tc2, id2)
	d.HandleFrame(context.Background(), id2, "1013|alice|\t|-|seven")
	sm := tc2.waitFor(message.TypeStatusMessage).(*message.StatusMessage)
	assert.Equal(t, message.StatusNameInUse, sm.Status)
}

func TestSitDownBroadcastToAllMembers(t *testing.T) {
	d := newTestDispatcher(t)
	tc1, id1 := connect(t, d)
	handshake(t, d, tc1, id1)
	join(t, d, tc1, id1, "alice", "seven")

	tc2, id2 := connect(t, d)
	handshake(t, d, tc2, id2)
	join(t, d, tc2, id2, "bob", "seven")

	d.HandleFrame(context.Background(), id1, "1012|seven|alice|0|f")

	for _, tc := range []*testClient{tc1, tc2} {
		sd := tc.waitFor(message.TypeSitDown).(*message.SitDown)
		assert.Equal(t, "alice", sd.Nickname)
		assert.Equal(t, 0, sd.Seat)
		assert.False(t, sd.Robot)
	}
	assert.Equal(t, 0, d.table.Get("seven").SeatOf("alice"))
}

func TestSitDownWithoutMembership(t *testing.T) {
	d := newTestDispatcher(t)
	tc1, id1 := connect(t, d)
	handshake(t, d, tc1, id1)
	join(t, d, tc1, id1, "alice", "seven")

	tc2, id2 := connect(t, d)
	handshake(t, d, tc2, id2)

	d.HandleFrame(context.Background(), id2, "1012|seven|bob|1|f")
	sm := tc2.waitFor(message.TypeStatusMessage).(*message.StatusMessage)
	assert.Equal(t, message.StatusNotOK, sm.Status)
}

func TestStartGameBroadcastsBoardAndTurn(t *testing.T) {
	d := newTestDispatcher(t)
	tc1, id1 := connect(t, d)
	handshake(t, d, tc1, id1)
	join(t, d, tc1, id1, "alice", "seven")

	tc2, id2 := connect(t, d)
	handshake(t, d, tc2, id2)
	join(t, d, tc2, id2, "bob", "seven")

	d.HandleFrame(context.Background(), id1, "1012|seven|alice|0|f")
	d.HandleFrame(context.Background(), id2, "1012|seven|bob|1|f")
	d.HandleFrame(context.Background(), id1, "1018|seven")

	for _, tc := range []*testClient{tc1, tc2} {
		bl := tc.waitFor(message.TypeBoardLayout).(*message.BoardLayout)
		assert.NotEmpty(t, bl.Hexes)
		assert.Len(t, bl.Numbers, len(bl.Hexes))

		turn := tc.waitFor(message.TypeTurn).(*message.Turn)
		assert.Equal(t, game.Start1A, turn.State)
		assert.Contains(t, []int{0, 1}, turn.Seat)

		ps := tc.waitFor(message.TypePotentialSettlements).(*message.PotentialSettlements)
		assert.NotEmpty(t, ps.Nodes, "the opening board has free settlement nodes")
	}
	assert.Equal(t, game.Start1A, d.table.Get("seven").State())
}

func TestLeaveDeletesEmptyGame(t *testing.T) {
	d := newTestDispatcher(t)
	tc, id := connect(t, d)
	handshake(t, d, tc, id)
	join(t, d, tc, id, "alice", "solo")
	d.HandleFrame(context.Background(), id, "1012|solo|alice|0|f")
	tc.waitFor(message.TypeSitDown)

	d.HandleFrame(context.Background(), id, "1011|alice|-|solo")
	dg := tc.waitFor(message.TypeDeleteGame).(*message.DeleteGame)
	assert.Equal(t, "solo", dg.Game)
	assert.Nil(t, d.table.Get("solo"))
	assert.Equal(t, 0, d.MemberCount("solo"))
}

func TestDisconnectReleasesEverything(t *testing.T) {
	d := newTestDispatcher(t)
	tc, id := connect(t, d)
	handshake(t, d, tc, id)
	join(t, d, tc, id, "alice", "solo")
	d.HandleFrame(context.Background(), id, "1012|solo|alice|0|f")
	tc.waitFor(message.TypeSitDown)

	d.HandleDisconnect(context.Background(), id)

	assert.Equal(t, 0, d.SessionCount())
	assert.Equal(t, 0, d.reg.Count())
	require.Eventually(t, func() bool {
		return d.table.Get("solo") == nil
	}, 2*time.Second, 10*time.Millisecond, "empty game must be deleted")
	assert.Equal(t, registry.NicknameOK, d.reg.CheckNickname("alice"), "nickname freed for reuse")
}

func TestAnnounceAndDropGame(t *testing.T) {
	d := newTestDispatcher(t)
	tc, id := connect(t, d)
	handshake(t, d, tc, id)
	join(t, d, tc, id, "alice", "seven")

	assert.False(t, d.Announce("nope", "hello"))
	require.True(t, d.Announce("seven", "maintenance in 5 minutes"))

	txt := tc.waitFor(message.TypeGameTextMsg).(*message.GameTextMsg)
	assert.Equal(t, serverNickname, txt.Nickname)
	assert.Equal(t, "maintenance in 5 minutes", txt.Text)

	require.True(t, d.DropGame(context.Background(), "seven"))
	tc.waitFor(message.TypeDeleteGame)
	assert.Nil(t, d.table.Get("seven"))
	assert.False(t, d.DropGame(context.Background(), "seven"))
}

func TestDebugWhoListsSeatedPlayers(t *testing.T) {
	d := newTestDispatcher(t)
	d.cfg.ServerData.DebugUsers = []string{"alice"}

	tc, id := connect(t, d)
	handshake(t, d, tc, id)
	join(t, d, tc, id, "alice", "seven")
	d.HandleFrame(context.Background(), id, "1012|seven|alice|2|f")
	tc.waitFor(message.TypeSitDown)

	d.HandleFrame(context.Background(), id, "1010|seven|alice|*WHO*")
	require.Eventually(t, func() bool {
		for _, m := range tc.received() {
			if sm, ok := m.(*message.StatusMessage); ok &&
				strings.Contains(sm.Text, "seat 2: alice") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "no seat listing arrived")

	// the command is consumed, never relayed as chat
	for _, m := range tc.received() {
		if txt, ok := m.(*message.GameTextMsg); ok {
			assert.NotEqual(t, "*WHO*", txt.Text)
		}
	}
}
