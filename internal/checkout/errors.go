package checkout

import "errors"

var (
	ErrAttemptNotFound    = errors.New("checkout attempt not found")
	ErrIllegalTransition  = errors.New("illegal transition of checkout attempt state")
	ErrOrderMismatch      = errors.New("payment confirmation is for a different gateway order")
	ErrVerificationFailed = errors.New("payment signature verification failed")

	ErrMissingConfirmation = errors.New("checkout attempt has no payment confirmation")
)
