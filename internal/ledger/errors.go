package ledger

import "errors"

var (
	// Validation
	ErrInvalidTokenType       = errors.New("invalid token type")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrMismatchedInputLengths = errors.New("mismatched input lengths")

	// Authorization
	ErrUnauthorized              = errors.New("unauthorized")
	ErrSellerCannotBuyOwnListing = errors.New("seller cannot buy own listing")

	// State
	ErrListingNotFound   = errors.New("listing not found")
	ErrInvalidListing    = errors.New("invalid listing")
	ErrOperationRejected = errors.New("operation rejected")
	ErrReentrantCall     = errors.New("reentrant call")

	// Funds
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrIncorrectPaymentAmount = errors.New("incorrect payment amount")
	ErrTransferFailed         = errors.New("transfer failed")
)
