package domain

import "errors"

// ErrorKind classifies a rejected action.
type ErrorKind string

const (
	// KindIllegalAction marks a move that breaks a rule precondition.
	KindIllegalAction ErrorKind = "illegal_action"
	// KindInvalidTarget marks a move naming a player or card that is not in
	// the current state.
	KindInvalidTarget ErrorKind = "invalid_target"
)

// ActionError is returned for every rejected action. The game state is left
// exactly as it was before the call.
type ActionError struct {
	Kind ErrorKind
	Err  error
}

func (e *ActionError) Error() string { return string(e.Kind) + ": " + e.Err.Error() }

func (e *ActionError) Unwrap() error { return e.Err }

func illegal(err error) error { return &ActionError{Kind: KindIllegalAction, Err: err} }

func invalidTarget(err error) error { return &ActionError{Kind: KindInvalidTarget, Err: err} }

// Illegal wraps err as an IllegalAction rejection.
func Illegal(err error) error { return illegal(err) }

// IsIllegalAction reports whether err is an IllegalAction rejection.
func IsIllegalAction(err error) bool { return kindOf(err) == KindIllegalAction }

// IsInvalidTarget reports whether err is an InvalidTarget rejection.
func IsInvalidTarget(err error) bool { return kindOf(err) == KindInvalidTarget }

func kindOf(err error) ErrorKind {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

var (
	ErrGameOver          = errors.New("game is over")
	ErrNotYourTurn       = errors.New("not the active player")
	ErrPlayerFinished    = errors.New("player already finished")
	ErrUnknownPlayer     = errors.New("player not found")
	ErrUnknownCard       = errors.New("card not found")
	ErrWrongStage        = errors.New("action not allowed in this stage")
	ErrWrongPhase        = errors.New("action not allowed in this phase")
	ErrTableNotEmpty     = errors.New("table already holds a trick")
	ErrTableEmpty        = errors.New("table is empty")
	ErrDoesNotBeat       = errors.New("card does not beat the table top")
	ErrPlacementRejected = errors.New("card does not fit on target pile")
	ErrNoCardToPlace     = errors.New("no card to place")
	ErrSelfTarget        = errors.New("cannot place own top card on own pile")
	ErrPenaltyPending    = errors.New("a penalty is being settled")
	ErrNoPenalty         = errors.New("no penalty pending")
	ErrNotContributor    = errors.New("player owes no penalty card")
	ErrFaceDown          = errors.New("card is face down")
	ErrNotOneCard        = errors.New("player does not hold exactly one card")
	ErrAlreadyDeclared   = errors.New("one card already declared")
	ErrDeclarationLate   = errors.New("declaration deadline has passed")
	ErrGraceWindow       = errors.New("declaration deadline has not passed yet")
	ErrSelfAccusation    = errors.New("cannot accuse yourself")
	ErrTooFewPlayers     = errors.New("not enough players")
	ErrTooManyPlayers    = errors.New("too many players")
	ErrDuplicatePlayer   = errors.New("duplicate player id")
)
