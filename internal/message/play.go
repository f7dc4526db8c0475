package message

import (
	"fmt"

	"github.com/hexhaven-project/hexhaven/internal/game"
)

// GameState announces a game's new state to its members.
type GameState struct {
	Game  string
	State int
}

func (m *GameState) Type() MsgType { return TypeGameState }

func (m *GameState) fields() []string { return []string{m.Game, itoa(m.State)} }

func decodeGameState(fs []string) (Message, error) {
	if len(fs) != 2 {
		return nil, arityErr(2, len(fs))
	}
	st, err := parseInt(fs[1])
	if err != nil {
		return nil, err
	}
	return &GameState{Game: fs[0], State: st}, nil
}

// Turn announces whose turn begins and the state the game enters.
type Turn struct {
	Game  string
	Seat  int
	State int
}

// NewTurn constructs a turn announcement.
func NewTurn(gameName string, seat, state int) (*Turn, error) {
	if !okFieldValue(gameName) {
		return nil, fmt.Errorf("%w: delimiter in game name", ErrInvalidArgument)
	}
	if seat < 0 {
		return nil, fmt.Errorf("%w: negative seat %d", ErrInvalidArgument, seat)
	}
	return &Turn{Game: gameName, Seat: seat, State: state}, nil
}

func (m *Turn) Type() MsgType { return TypeTurn }

func (m *Turn) fields() []string { return []string{m.Game, itoa(m.Seat), itoa(m.State)} }

func decodeTurn(fs []string) (Message, error) {
	if len(fs) != 3 {
		return nil, arityErr(3, len(fs))
	}
	seat, err := parseInt(fs[1])
	if err != nil {
		return nil, err
	}
	st, err := parseInt(fs[2])
	if err != nil {
		return nil, err
	}
	return &Turn{Game: fs[0], Seat: seat, State: st}, nil
}

// DiceResult announces the outcome of a roll. Result -1 means "not
// rolled yet" when echoing initial game state.
type DiceResult struct {
	Game   string
	Result int
}

// NewDiceResult constructs a dice announcement; results outside
// -1..12 cannot come from two dice and are rejected.
func NewDiceResult(gameName string, result int) (*DiceResult, error) {
	if !okFieldValue(gameName) {
		return nil, fmt.Errorf("%w: delimiter in game name", ErrInvalidArgument)
	}
	if result < -1 || result > 12 {
		return nil, fmt.Errorf("%w: dice result %d out of range", ErrInvalidArgument, result)
	}
	return &DiceResult{Game: gameName, Result: result}, nil
}

func (m *DiceResult) Type() MsgType { return TypeDiceResult }

func (m *DiceResult) fields() []string { return []string{m.Game, itoa(m.Result)} }

func decodeDiceResult(fs []string) (Message, error) {
	if len(fs) != 2 {
		return nil, arityErr(2, len(fs))
	}
	r, err := parseInt(fs[1])
	if err != nil {
		return nil, err
	}
	return &DiceResult{Game: fs[0], Result: r}, nil
}

// RollDice is the current player's request to roll.
type RollDice struct {
	Game string
}

func (m *RollDice) Type() MsgType { return TypeRollDice }

func (m *RollDice) fields() []string { return []string{m.Game} }

func decodeRollDice(fs []string) (Message, error) {
	if len(fs) != 1 {
		return nil, arityErr(1, len(fs))
	}
	return &RollDice{Game: fs[0]}, nil
}

// EndTurn is the current player's request to pass the turn.
type EndTurn struct {
	Game string
}

func (m *EndTurn) Type() MsgType { return TypeEndTurn }

func (m *EndTurn) fields() []string { return []string{m.Game} }

func decodeEndTurn(fs []string) (Message, error) {
	if len(fs) != 1 {
		return nil, arityErr(1, len(fs))
	}
	return &EndTurn{Game: fs[0]}, nil
}

// MoveRobber is the current player's robber placement after a 7.
type MoveRobber struct {
	Game string
	Seat int
	Hex  int
}

func (m *MoveRobber) Type() MsgType { return TypeMoveRobber }

func (m *MoveRobber) fields() []string { return []string{m.Game, itoa(m.Seat), itoa(m.Hex)} }

func decodeMoveRobber(fs []string) (Message, error) {
	if len(fs) != 3 {
		return nil, arityErr(3, len(fs))
	}
	seat, err := parseInt(fs[1])
	if err != nil {
		return nil, err
	}
	hex, err := parseInt(fs[2])
	if err != nil {
		return nil, err
	}
	return &MoveRobber{Game: fs[0], Seat: seat, Hex: hex}, nil
}

// ChoosePlayer carries the robbing player's victim choice. Choice is a
// seat index; the codec passes -1 through so the state machine can
// reject it as the distinct illegal "skip" attempt it is.
type ChoosePlayer struct {
	Game   string
	Choice int
}

func (m *ChoosePlayer) Type() MsgType { return TypeChoosePlayer }

func (m *ChoosePlayer) fields() []string { return []string{m.Game, itoa(m.Choice)} }

func decodeChoosePlayer(fs []string) (Message, error) {
	if len(fs) != 2 {
		return nil, arityErr(2, len(fs))
	}
	c, err := parseInt(fs[1])
	if err != nil {
		return nil, err
	}
	return &ChoosePlayer{Game: fs[0], Choice: c}, nil
}

// BuildRequest asks to buy a piece. PieceType -1 is the special-build
// phase marker; anything below that is not a piece code.
type BuildRequest struct {
	Game      string
	PieceType int
}

// NewBuildRequest constructs a build request, failing fast on
// malformed piece-type codes rather than producing a corrupt frame.
func NewBuildRequest(gameName string, pieceType int) (*BuildRequest, error) {
	if !okFieldValue(gameName) {
		return nil, fmt.Errorf("%w: delimiter in game name", ErrInvalidArgument)
	}
	if pieceType < -1 || pieceType > game.PieceCity {
		return nil, fmt.Errorf("%w: piece type %d", ErrInvalidArgument, pieceType)
	}
	return &BuildRequest{Game: gameName, PieceType: pieceType}, nil
}

func (m *BuildRequest) Type() MsgType { return TypeBuildRequest }

func (m *BuildRequest) fields() []string { return []string{m.Game, itoa(m.PieceType)} }

func decodeBuildRequest(fs []string) (Message, error) {
	if len(fs) != 2 {
		return nil, arityErr(2, len(fs))
	}
	pt, err := parseInt(fs[1])
	if err != nil {
		return nil, err
	}
	if pt < -1 || pt > game.PieceCity {
		return nil, fmt.Errorf("piece type %d out of range", pt)
	}
	return &BuildRequest{Game: fs[0], PieceType: pt}, nil
}

// PutPiece announces a placed piece.
type PutPiece struct {
	Game      string
	Seat      int
	PieceType int
	Coord     int
}

// NewPutPiece constructs a piece placement announcement.
func NewPutPiece(gameName string, seat, pieceType, coord int) (*PutPiece, error) {
	if !okFieldValue(gameName) {
		return nil, fmt.Errorf("%w: delimiter in game name", ErrInvalidArgument)
	}
	if pieceType < 0 || pieceType > game.PieceCity {
		return nil, fmt.Errorf("%w: piece type %d", ErrInvalidArgument, pieceType)
	}
	return &PutPiece{Game: gameName, Seat: seat, PieceType: pieceType, Coord: coord}, nil
}

func (m *PutPiece) Type() MsgType { return TypePutPiece }

func (m *PutPiece) fields() []string {
	return []string{m.Game, itoa(m.Seat), itoa(m.PieceType), itoa(m.Coord)}
}

func decodePutPiece(fs []string) (Message, error) {
	if len(fs) != 4 {
		return nil, arityErr(4, len(fs))
	}
	seat, err := parseInt(fs[1])
	if err != nil {
		return nil, err
	}
	pt, err := parseInt(fs[2])
	if err != nil {
		return nil, err
	}
	coord, err := parseInt(fs[3])
	if err != nil {
		return nil, err
	}
	return &PutPiece{Game: fs[0], Seat: seat, PieceType: pt, Coord: coord}, nil
}

// BankTrade is a trade with the bank or a port: give one resource set,
// get another, at the stated ratio.
type BankTrade struct {
	Game  string
	Give  game.ResourceSet
	Get   game.ResourceSet
	Ratio int
}

// NewBankTrade constructs a bank trade request.
func NewBankTrade(gameName string, give, get game.ResourceSet, ratio int) (*BankTrade, error) {
	if !okFieldValue(gameName) {
		return nil, fmt.Errorf("%w: delimiter in game name", ErrInvalidArgument)
	}
	if ratio < 2 || ratio > 4 {
		return nil, fmt.Errorf("%w: bank ratio %d", ErrInvalidArgument, ratio)
	}
	return &BankTrade{Game: gameName, Give: give, Get: get, Ratio: ratio}, nil
}

func (m *BankTrade) Type() MsgType { return TypeBankTrade }

func (m *BankTrade) fields() []string {
	return []string{m.Game, encResourceSet(m.Give), encResourceSet(m.Get), itoa(m.Ratio)}
}

func decodeBankTrade(fs []string) (Message, error) {
	if len(fs) != 4 {
		return nil, arityErr(4, len(fs))
	}
	give, err := parseResourceSet(fs[1])
	if err != nil {
		return nil, err
	}
	get, err := parseResourceSet(fs[2])
	if err != nil {
		return nil, err
	}
	ratio, err := parseInt(fs[3])
	if err != nil {
		return nil, err
	}
	return &BankTrade{Game: fs[0], Give: give, Get: get, Ratio: ratio}, nil
}

// encResourceSet renders a resource set as five sub-delimited amounts
// in clay,ore,sheep,wheat,wood order.
func encResourceSet(rs game.ResourceSet) string {
	return encInts([]int{rs.Clay, rs.Ore, rs.Sheep, rs.Wheat, rs.Wood})
}

// parseResourceSet parses the five-amount wire form.
func parseResourceSet(s string) (game.ResourceSet, error) {
	vs, err := parseInts(s)
	if err != nil {
		return game.ResourceSet{}, err
	}
	if len(vs) != 5 {
		return game.ResourceSet{}, fmt.Errorf("resource set needs 5 amounts, got %d", len(vs))
	}
	return game.ResourceSet{Clay: vs[0], Ore: vs[1], Sheep: vs[2], Wheat: vs[3], Wood: vs[4]}, nil
}

// PlayerElement actions.
const (
	ElemSet  = 100
	ElemGain = 101
	ElemLose = 102
)

// PlayerElement is a single-field delta of one player's tracked
// quantities (resources, piece counts).
type PlayerElement struct {
	Game     string
	Seat     int
	Action   int // ElemSet, ElemGain, ElemLose
	ElemType int // game.Clay .. game.Wood and piece counters
	Amount   int
}

// NewPlayerElement constructs a player element delta.
func NewPlayerElement(gameName string, seat, action, elemType, amount int) (*PlayerElement, error) {
	if !okFieldValue(gameName) {
		return nil, fmt.Errorf("%w: delimiter in game name", ErrInvalidArgument)
	}
	switch action {
	case ElemSet, ElemGain, ElemLose:
	default:
		return nil, fmt.Errorf("%w: element action %d", ErrInvalidArgument, action)
	}
	return &PlayerElement{Game: gameName, Seat: seat, Action: action, ElemType: elemType, Amount: amount}, nil
}

func (m *PlayerElement) Type() MsgType { return TypePlayerElement }

func (m *PlayerElement) fields() []string {
	return []string{m.Game, itoa(m.Seat), itoa(m.Action), itoa(m.ElemType), itoa(m.Amount)}
}

func decodePlayerElement(fs []string) (Message, error) {
	if len(fs) != 5 {
		return nil, arityErr(5, len(fs))
	}
	vs := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := parseInt(fs[i+1])
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return &PlayerElement{Game: fs[0], Seat: vs[0], Action: vs[1], ElemType: vs[2], Amount: vs[3]}, nil
}

// GameTextMsg is in-game chat from one member to the whole game.
type GameTextMsg struct {
	Game     string
	Nickname string
	Text     string
}

// NewGameTextMsg constructs a chat message; the text may contain the
// sub-delimiter but never the field delimiter.
func NewGameTextMsg(gameName, nickname, text string) (*GameTextMsg, error) {
	if !okFieldValue(gameName) || !okFieldValue(nickname) {
		return nil, fmt.Errorf("%w: delimiter in chat identity", ErrInvalidArgument)
	}
	if indexAny(text, FieldSep+"\n") >= 0 {
		return nil, fmt.Errorf("%w: frame delimiter in chat text", ErrInvalidArgument)
	}
	return &GameTextMsg{Game: gameName, Nickname: nickname, Text: text}, nil
}

func (m *GameTextMsg) Type() MsgType { return TypeGameTextMsg }

func (m *GameTextMsg) fields() []string {
	return []string{m.Game, m.Nickname, encStr(m.Text)}
}

func decodeGameTextMsg(fs []string) (Message, error) {
	if len(fs) != 3 {
		return nil, arityErr(3, len(fs))
	}
	return &GameTextMsg{Game: fs[0], Nickname: fs[1], Text: decStr(fs[2])}, nil
}
