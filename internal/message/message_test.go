package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexhaven-project/hexhaven/internal/game"
)

// roundTrip encodes, decodes, and returns the decoded message.
func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	frame := Encode(m)
	decoded, err := Decode(frame)
	require.NoError(t, err, "frame %q", frame)
	require.Equal(t, m.Type(), decoded.Type())
	return decoded
}

func TestVersionRoundTrip(t *testing.T) {
	v, err := NewVersion(2700, "2.7.00", "", ";6pl;sb;")
	require.NoError(t, err)
	assert.Equal(t, "9998|2700|2.7.00|\t|;6pl;sb;", Encode(v))

	got := roundTrip(t, v).(*Version)
	assert.Equal(t, 2700, got.Number)
	assert.Equal(t, "2.7.00", got.VersString)
	assert.Equal(t, "", got.Build, "empty build survives the wire")
	assert.Equal(t, ";6pl;sb;", got.Feats)
}

func TestVersionRejectsBadInput(t *testing.T) {
	_, err := NewVersion(-1, "x", "", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewVersion(2700, "2.7|00", "", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestJoinGameEmptyPassword(t *testing.T) {
	m, err := NewJoinGame("alice", "", "-", "seven")
	require.NoError(t, err)
	assert.Equal(t, "1013|alice|\t|-|seven", Encode(m))

	got := roundTrip(t, m).(*JoinGame)
	assert.Equal(t, "alice", got.Nickname)
	assert.Equal(t, "", got.Password)
	assert.Equal(t, "seven", got.Game)
}

func TestJoinGameRejectsDelimiters(t *testing.T) {
	for _, nick := range []string{"al|ice", "al,ice", "al\nice"} {
		_, err := NewJoinGame(nick, "", "-", "seven")
		assert.ErrorIs(t, err, ErrInvalidArgument, "nickname %q", nick)
	}
}

func TestStatusMessageRoundTrip(t *testing.T) {
	m, err := NewStatusMessage(StatusNameInUse, "nickname already in use")
	require.NoError(t, err)
	got := roundTrip(t, m).(*StatusMessage)
	assert.Equal(t, StatusNameInUse, got.Status)
	assert.Equal(t, "nickname already in use", got.Text)

	// empty text uses the empty-string marker
	m, err = NewStatusMessage(StatusOK, "")
	require.NoError(t, err)
	assert.Equal(t, "1069|0|\t", Encode(m))
	assert.Equal(t, "", roundTrip(t, m).(*StatusMessage).Text)

	_, err = NewStatusMessage(StatusOK, "pipe|here")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSitDownRoundTrip(t *testing.T) {
	m, err := NewSitDown("seven", "alice", 2, true)
	require.NoError(t, err)
	assert.Equal(t, "1012|seven|alice|2|t", Encode(m))

	got := roundTrip(t, m).(*SitDown)
	assert.Equal(t, 2, got.Seat)
	assert.True(t, got.Robot)

	_, err = NewSitDown("seven", "alice", -1, false)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDiceResultRange(t *testing.T) {
	for _, r := range []int{-1, 2, 3, 6, 7, 8, 12} {
		m, err := NewDiceResult("seven", r)
		require.NoError(t, err, "result %d", r)
		assert.Equal(t, r, roundTrip(t, m).(*DiceResult).Result)
	}
	for _, r := range []int{-2, 13, 100} {
		_, err := NewDiceResult("seven", r)
		assert.ErrorIs(t, err, ErrInvalidArgument, "result %d", r)
	}
}

func TestBuildRequestPieceTypes(t *testing.T) {
	// -1 is the special-build marker, 0..2 are the piece codes
	for _, pt := range []int{-1, game.PieceRoad, game.PieceSettlement, game.PieceCity} {
		m, err := NewBuildRequest("seven", pt)
		require.NoError(t, err, "piece type %d", pt)
		assert.Equal(t, pt, roundTrip(t, m).(*BuildRequest).PieceType)
	}
	_, err := NewBuildRequest("seven", -2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewBuildRequest("seven", game.PieceCity+1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// the decoder range-checks too
	_, err = Decode("1043|seven|-2")
	assert.ErrorIs(t, err, ErrDecode)
	_, err = Decode("1043|seven|3")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestBankTradeRoundTrip(t *testing.T) {
	give := game.ResourceSet{Clay: 3}
	get := game.ResourceSet{Wheat: 1}
	m, err := NewBankTrade("seven", give, get, 3)
	require.NoError(t, err)
	assert.Equal(t, "1040|seven|3,0,0,0,0|0,0,0,1,0|3", Encode(m))

	got := roundTrip(t, m).(*BankTrade)
	assert.Equal(t, give, got.Give)
	assert.Equal(t, get, got.Get)
	assert.Equal(t, 3, got.Ratio)

	for _, ratio := range []int{1, 5} {
		_, err := NewBankTrade("seven", give, get, ratio)
		assert.ErrorIs(t, err, ErrInvalidArgument, "ratio %d", ratio)
	}

	_, err = Decode("1040|seven|3,0,0,0|0,0,0,1,0|3")
	assert.ErrorIs(t, err, ErrDecode, "four amounts is not a resource set")
}

func TestPlayerElementRoundTrip(t *testing.T) {
	m, err := NewPlayerElement("seven", 1, ElemGain, game.ResourceWheat, 2)
	require.NoError(t, err)
	got := roundTrip(t, m).(*PlayerElement)
	assert.Equal(t, 1, got.Seat)
	assert.Equal(t, ElemGain, got.Action)
	assert.Equal(t, game.ResourceWheat, got.ElemType)
	assert.Equal(t, 2, got.Amount)

	_, err = NewPlayerElement("seven", 1, 99, game.ResourceWheat, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBoardLayoutRoundTrip(t *testing.T) {
	m, err := NewBoardLayout("seven", []int{1, 2, 3}, []int{6, 8, 0}, 2)
	require.NoError(t, err)
	got := roundTrip(t, m).(*BoardLayout)
	assert.Equal(t, []int{1, 2, 3}, got.Hexes)
	assert.Equal(t, []int{6, 8, 0}, got.Numbers)
	assert.Equal(t, 2, got.RobberHex)

	_, err = NewBoardLayout("seven", []int{1, 2}, []int{6}, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument, "parallel lists must match")
}

func TestGameTextMsgAllowsSubDelimiter(t *testing.T) {
	m, err := NewGameTextMsg("seven", "alice", "hello, world")
	require.NoError(t, err)
	got := roundTrip(t, m).(*GameTextMsg)
	assert.Equal(t, "hello, world", got.Text)

	_, err = NewGameTextMsg("seven", "alice", "bad|text")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGamesListRoundTrip(t *testing.T) {
	got := roundTrip(t, &Games{Names: []string{"seven", "eight"}}).(*Games)
	assert.Equal(t, []string{"seven", "eight"}, got.Names)

	// an empty list stays empty
	got = roundTrip(t, &Games{}).(*Games)
	assert.Empty(t, got.Names)
}

func TestServerPingRoundTrip(t *testing.T) {
	got := roundTrip(t, &ServerPing{SleepTime: 60}).(*ServerPing)
	assert.Equal(t, 60, got.SleepTime)
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	frames := []string{
		"",                       // empty input
		"totally_invalid",        // no numeric tag
		"4242|whatever",          // unknown tag
		"9998",                   // Version without fields
		"9998|2700|2.7.00",       // wrong arity
		"1069|notanint|hi",       // bad int field
		"1012|seven|alice|0|wat", // bad bool field
		"1028|seven|x",           // bad dice field
	}
	for _, f := range frames {
		_, err := Decode(f)
		assert.ErrorIs(t, err, ErrDecode, "frame %q", f)
	}
}
