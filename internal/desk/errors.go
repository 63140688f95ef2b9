package desk

import "errors"

// Validation failures reported before any network call is made.
var (
	ErrInvalidAmount       = errors.New("amount must be a positive number")
	ErrSignatureRequired   = errors.New("signature is required")
	ErrInsufficientBalance = errors.New("amount exceeds crypto balance")
	ErrTitleRequired       = errors.New("title is required")
	ErrInvalidDiscount     = errors.New("discount must be a positive number")
	ErrInvalidPrize        = errors.New("prize must be a positive number")
)

// Gate and re-entrancy failures for the admin view.
var (
	ErrWrongPassword = errors.New("wrong admin password")
	ErrLocked        = errors.New("admin view is locked")
	ErrBusy          = errors.New("another action is still in flight")
)
