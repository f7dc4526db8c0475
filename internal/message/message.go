// Package message implements the pipe-delimited text protocol spoken
// between Hexhaven clients and the server. Every frame is a numeric
// type tag followed by "|"-separated fields; compound fields use ","
// as a secondary delimiter. Tag values are frozen once published:
// new message types get new unused tags, never reused ones.
package message

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Frame delimiters. Field values must never contain either one;
// validating constructors reject them before a corrupt frame can
// be produced.
const (
	FieldSep = "|"
	SubSep   = ","
)

// emptyStr is the on-wire stand-in for an empty string field, so that
// empty passwords and build IDs survive a round trip through Split.
const emptyStr = "\t"

// MsgType identifies a wire message type.
type MsgType int

// Frozen message type tags.
const (
	TypeNull                 MsgType = 1000
	TypePutPiece             MsgType = 1009
	TypeGameTextMsg          MsgType = 1010
	TypeLeaveGame            MsgType = 1011
	TypeSitDown              MsgType = 1012
	TypeJoinGame             MsgType = 1013
	TypeBoardLayout          MsgType = 1014
	TypeDeleteGame           MsgType = 1015
	TypeNewGame              MsgType = 1016
	TypeStartGame            MsgType = 1018
	TypeGames                MsgType = 1019
	TypeJoinGameAuth         MsgType = 1021
	TypePlayerElement        MsgType = 1024
	TypeGameState            MsgType = 1025
	TypeTurn                 MsgType = 1026
	TypeDiceResult           MsgType = 1028
	TypeRollDice             MsgType = 1031
	TypeEndTurn              MsgType = 1032
	TypeMoveRobber           MsgType = 1034
	TypeChoosePlayer         MsgType = 1035
	TypeBankTrade            MsgType = 1040
	TypeBuildRequest         MsgType = 1043
	TypePotentialSettlements MsgType = 1057
	TypeRejectConnection     MsgType = 1059
	TypeStatusMessage        MsgType = 1069
	TypeNewGameWithOptions   MsgType = 1079
	TypeVersion              MsgType = 9998
	TypeServerPing           MsgType = 9999
)

// ErrDecode is the failure class for any frame that cannot be decoded:
// empty input, unknown tag, wrong field arity, or malformed field
// values. Decoding is total; callers never see a panic.
var ErrDecode = errors.New("cannot decode frame")

// ErrInvalidArgument is returned by message constructors whose inputs
// would produce a corrupt or ambiguous frame.
var ErrInvalidArgument = errors.New("invalid message argument")

// Message is a decoded wire message. fields returns the encoded field
// list without the leading type tag.
type Message interface {
	Type() MsgType
	fields() []string
}

// decoder turns a raw field list back into a typed message.
type decoder func(fields []string) (Message, error)

// registry maps each frozen tag to its decoder.
var registry = map[MsgType]decoder{
	TypePutPiece:             decodePutPiece,
	TypeGameTextMsg:          decodeGameTextMsg,
	TypeLeaveGame:            decodeLeaveGame,
	TypeSitDown:              decodeSitDown,
	TypeJoinGame:             decodeJoinGame,
	TypeBoardLayout:          decodeBoardLayout,
	TypeDeleteGame:           decodeDeleteGame,
	TypeNewGame:              decodeNewGame,
	TypeStartGame:            decodeStartGame,
	TypeGames:                decodeGames,
	TypeJoinGameAuth:         decodeJoinGameAuth,
	TypePlayerElement:        decodePlayerElement,
	TypeGameState:            decodeGameState,
	TypeTurn:                 decodeTurn,
	TypeDiceResult:           decodeDiceResult,
	TypeRollDice:             decodeRollDice,
	TypeEndTurn:              decodeEndTurn,
	TypeMoveRobber:           decodeMoveRobber,
	TypeChoosePlayer:         decodeChoosePlayer,
	TypeBankTrade:            decodeBankTrade,
	TypeBuildRequest:         decodeBuildRequest,
	TypePotentialSettlements: decodePotentialSettlements,
	TypeRejectConnection:     decodeRejectConnection,
	TypeStatusMessage:        decodeStatusMessage,
	TypeNewGameWithOptions:   decodeNewGameWithOptions,
	TypeVersion:              decodeVersion,
	TypeServerPing:           decodeServerPing,
}

// Encode renders a message as a single wire frame without the trailing
// newline; the transport layer appends the frame terminator.
func Encode(m Message) string {
	fs := m.fields()
	if len(fs) == 0 {
		return strconv.Itoa(int(m.Type()))
	}
	return strconv.Itoa(int(m.Type())) + FieldSep + strings.Join(fs, FieldSep)
}

// Decode parses a wire frame into a typed message. Any malformed or
// unknown input yields an error wrapping ErrDecode; Decode never
// panics and never returns a partially filled message.
func Decode(frame string) (Message, error) {
	if frame == "" {
		return nil, fmt.Errorf("%w: empty frame", ErrDecode)
	}

	tagStr, rest, hasFields := strings.Cut(frame, FieldSep)
	tag, err := strconv.Atoi(tagStr)
	if err != nil {
		return nil, fmt.Errorf("%w: no numeric tag in %q", ErrDecode, frame)
	}

	dec, ok := registry[MsgType(tag)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown tag %d", ErrDecode, tag)
	}

	var fs []string
	if hasFields {
		fs = strings.Split(rest, FieldSep)
	}

	m, err := dec(fs)
	if err != nil {
		return nil, fmt.Errorf("%w: tag %d: %v", ErrDecode, tag, err)
	}
	return m, nil
}

// ---- field helpers ----

// arityErr reports a field-count mismatch.
func arityErr(want, got int) error {
	return fmt.Errorf("expected %d fields, got %d", want, got)
}

// okFieldValue reports whether a string is safe to embed in a frame.
func okFieldValue(s string) bool {
	return !strings.ContainsAny(s, FieldSep+SubSep+"\n")
}

// encStr encodes a possibly empty string field.
func encStr(s string) string {
	if s == "" {
		return emptyStr
	}
	return s
}

// decStr decodes a possibly empty string field.
func decStr(s string) string {
	if s == emptyStr {
		return ""
	}
	return s
}

// parseInt parses a decimal field value.
func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad int field %q", s)
	}
	return v, nil
}

// encInts joins ints with the secondary delimiter.
func encInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, SubSep)
}

// itoa is shorthand for strconv.Itoa in field builders.
func itoa(v int) string { return strconv.Itoa(v) }

// encBool encodes a boolean field as the protocol's t/f form.
func encBool(b bool) string {
	if b {
		return "t"
	}
	return "f"
}

// parseBool parses a t/f boolean field; "true"/"false" from older
// clients are accepted too.
func parseBool(s string) (bool, error) {
	switch s {
	case "t", "true":
		return true, nil
	case "f", "false":
		return false, nil
	}
	return false, fmt.Errorf("bad bool field %q", s)
}

// joinSub joins strings with the secondary delimiter.
func joinSub(ss []string) string { return strings.Join(ss, SubSep) }

// splitSub splits a secondary-delimited string list.
func splitSub(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, SubSep)
}

// indexAny is strings.IndexAny, aliased for field validation sites.
func indexAny(s, chars string) int { return strings.IndexAny(s, chars) }

// parseInts splits a secondary-delimited int list.
func parseInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, SubSep)
	vs := make([]int, len(parts))
	for i, p := range parts {
		v, err := parseInt(p)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}
