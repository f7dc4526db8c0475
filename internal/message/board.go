package message

import "fmt"

// NewGame announces a newly created game to a client's game list.
type NewGame struct {
	Game string
}

func (m *NewGame) Type() MsgType { return TypeNewGame }

func (m *NewGame) fields() []string { return []string{m.Game} }

func decodeNewGame(fs []string) (Message, error) {
	if len(fs) != 1 {
		return nil, arityErr(1, len(fs))
	}
	return &NewGame{Game: fs[0]}, nil
}

// DeleteGame announces a destroyed game.
type DeleteGame struct {
	Game string
}

func (m *DeleteGame) Type() MsgType { return TypeDeleteGame }

func (m *DeleteGame) fields() []string { return []string{m.Game} }

func decodeDeleteGame(fs []string) (Message, error) {
	if len(fs) != 1 {
		return nil, arityErr(1, len(fs))
	}
	return &DeleteGame{Game: fs[0]}, nil
}

// StartGame is the request to begin play once everyone is seated.
type StartGame struct {
	Game string
}

func (m *StartGame) Type() MsgType { return TypeStartGame }

func (m *StartGame) fields() []string { return []string{m.Game} }

func decodeStartGame(fs []string) (Message, error) {
	if len(fs) != 1 {
		return nil, arityErr(1, len(fs))
	}
	return &StartGame{Game: fs[0]}, nil
}

// BoardLayout carries the generated board: hex terrain codes, dice
// numbers per hex, and the robber's starting hex. The three lists are
// parallel by hex index.
type BoardLayout struct {
	Game      string
	Hexes     []int
	Numbers   []int
	RobberHex int
}

// NewBoardLayout constructs a board layout announcement.
func NewBoardLayout(gameName string, hexes, numbers []int, robberHex int) (*BoardLayout, error) {
	if !okFieldValue(gameName) {
		return nil, fmt.Errorf("%w: delimiter in game name", ErrInvalidArgument)
	}
	if len(hexes) != len(numbers) {
		return nil, fmt.Errorf("%w: %d hexes but %d numbers", ErrInvalidArgument, len(hexes), len(numbers))
	}
	return &BoardLayout{Game: gameName, Hexes: hexes, Numbers: numbers, RobberHex: robberHex}, nil
}

func (m *BoardLayout) Type() MsgType { return TypeBoardLayout }

func (m *BoardLayout) fields() []string {
	return []string{m.Game, encInts(m.Hexes), encInts(m.Numbers), itoa(m.RobberHex)}
}

func decodeBoardLayout(fs []string) (Message, error) {
	if len(fs) != 4 {
		return nil, arityErr(4, len(fs))
	}
	hexes, err := parseInts(fs[1])
	if err != nil {
		return nil, err
	}
	numbers, err := parseInts(fs[2])
	if err != nil {
		return nil, err
	}
	if len(hexes) != len(numbers) {
		return nil, fmt.Errorf("%d hexes but %d numbers", len(hexes), len(numbers))
	}
	robber, err := parseInt(fs[3])
	if err != nil {
		return nil, err
	}
	return &BoardLayout{Game: fs[0], Hexes: hexes, Numbers: numbers, RobberHex: robber}, nil
}

// PotentialSettlements lists the node coordinates where one seat may
// legally place its next settlement.
type PotentialSettlements struct {
	Game  string
	Seat  int
	Nodes []int
}

func (m *PotentialSettlements) Type() MsgType { return TypePotentialSettlements }

func (m *PotentialSettlements) fields() []string {
	return []string{m.Game, itoa(m.Seat), encInts(m.Nodes)}
}

func decodePotentialSettlements(fs []string) (Message, error) {
	if len(fs) != 3 {
		return nil, arityErr(3, len(fs))
	}
	seat, err := parseInt(fs[1])
	if err != nil {
		return nil, err
	}
	nodes, err := parseInts(fs[2])
	if err != nil {
		return nil, err
	}
	return &PotentialSettlements{Game: fs[0], Seat: seat, Nodes: nodes}, nil
}
