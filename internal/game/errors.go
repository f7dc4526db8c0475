package game

import (
	"errors"
	"fmt"
)

// Failure classes. Everything here is scoped to one action or one
// creation request; none of these may take down the process or touch
// another game's state.
var (
	// ErrIllegalAction rejects an action inconsistent with the
	// current state, seat, or turn. Game state is left unchanged.
	ErrIllegalAction = errors.New("illegal action")

	// ErrConfig rejects an invalid game-creation request or option
	// combination. Fatal to that one request only.
	ErrConfig = errors.New("invalid game configuration")

	// ErrInternal marks a guard that should be unreachable, such as
	// acting on a vacant seat the state machine believes is occupied.
	// Production behavior is fail-closed: the action is rejected.
	ErrInternal = errors.New("internal game invariant violated")
)

// illegalf builds an ErrIllegalAction rejection.
func illegalf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrIllegalAction}, args...)...)
}

// configf builds an ErrConfig rejection.
func configf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfig}, args...)...)
}

// internalf builds a fail-closed internal rejection.
func internalf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInternal}, args...)...)
}
