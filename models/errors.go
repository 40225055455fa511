package models

import "errors"

// Payment-path error taxonomy. Controllers map these to HTTP statuses;
// services never let anything else escape the reconciliation boundary.
var (
	// ErrInvalidCode: no matching unconsumed challenge, wrong code, or replay.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrCodeExpired: the code matched but its expiry has passed.
	ErrCodeExpired = errors.New("verification code expired")

	// ErrInvalidTransition: the compare-and-swap guard tripped; the caller
	// must re-read state instead of retrying blindly.
	ErrInvalidTransition = errors.New("invalid transaction transition")

	// ErrUnknownSession: no pending transaction matches the session id.
	ErrUnknownSession = errors.New("unknown checkout session")

	// ErrProcessorUnavailable: network failure or 5xx from the payment
	// processor; retryable, pending state is left untouched.
	ErrProcessorUnavailable = errors.New("payment processor unavailable")

	// ErrActivationConflict: membership in an unexpected state; requires
	// manual follow-up, always logged with the transaction id.
	ErrActivationConflict = errors.New("membership activation conflict")
)
