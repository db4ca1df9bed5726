package service

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownStock       = errors.New("unknown stock")
	ErrInvalidQuantity    = errors.New("quantity must be a positive whole number")
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrNoHolding          = errors.New("no holding for stock")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrArithmetic         = errors.New("arithmetic failure")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSymbolTaken        = errors.New("symbol already listed")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ErrPartialTrade reports a trade whose audit row was recorded but whose
// position write kept failing after retries. The transaction id lets an
// operator reconcile the holding by hand.
type ErrPartialTrade struct {
	TransactionID string
	Err           error
}

func (e *ErrPartialTrade) Error() string {
	return "trade recorded but position not updated, transaction " + e.TransactionID + ": " + e.Err.Error()
}

func (e *ErrPartialTrade) Unwrap() error {
	return e.Err
}
