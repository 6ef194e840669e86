package models

import "errors"

// Every rejected operation returns one of these (wrapped with the reason) and
// leaves the session untouched. Callers match with errors.Is and re-prompt.
var (
	ErrInvalidRisk        = errors.New("invalid risk")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidConfig      = errors.New("invalid config")
	ErrGameOver           = errors.New("game over")
	ErrDecisionsPending   = errors.New("risk decisions pending")
	ErrUnsupportedMode    = errors.New("operation not supported in this game mode")
	ErrInvalidTransition  = errors.New("invalid state transition")
)
