package domain

import "errors"

// ErrorKind classifies engine failures so callers can branch on retry
// semantics without matching individual codes.
type ErrorKind string

const (
	// KindValidation marks malformed input, rejected before any state change;
	// safe to retry after correcting the input.
	KindValidation ErrorKind = "validation"
	// KindStateConflict marks operations invalid in the current state; the
	// caller must re-read state before retrying.
	KindStateConflict ErrorKind = "state_conflict"
	// KindAuthorization marks missing roles or ownership; never retried with
	// the same caller.
	KindAuthorization ErrorKind = "authorization"
	// KindSystemHalt marks the paused ledger; transient, retry after unpause.
	KindSystemHalt ErrorKind = "system_halt"
)

// Error is the typed failure every engine operation returns. Errors are
// predeclared sentinels so call sites compare with errors.Is.
type Error struct {
	Kind ErrorKind
	Code string
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

// Validation errors
var (
	ErrInvalidPercentage  = newError(KindValidation, "invalid_percentage", "greenery percentage must be between 0 and 100")
	ErrInvalidCarbonValue = newError(KindValidation, "invalid_carbon_value", "carbon value must be positive")
	ErrInvalidMetadata    = newError(KindValidation, "invalid_metadata", "token metadata violates mint constraints")
	ErrEmptyFingerprint   = newError(KindValidation, "empty_fingerprint", "image fingerprint must not be empty")
	ErrMalformedBatch     = newError(KindValidation, "malformed_batch", "batch argument arrays have inconsistent lengths")
	ErrInvalidPrice       = newError(KindValidation, "invalid_price", "listing price must be positive")
	ErrInvalidAccount     = newError(KindValidation, "invalid_account", "account reference must not be empty")
	ErrInvalidFee         = newError(KindValidation, "invalid_fee", "platform fee exceeds the 10% cap")
	ErrInvalidThreshold   = newError(KindValidation, "invalid_threshold", "verification threshold must be between 0 and 100")
)

// State conflicts
var (
	ErrDuplicateFingerprint = newError(KindStateConflict, "duplicate_fingerprint", "image fingerprint already registered")
	ErrNotVerified          = newError(KindStateConflict, "not_verified", "submission did not meet the verification threshold")
	ErrAlreadyTokenized     = newError(KindStateConflict, "already_tokenized", "submission has already been tokenized")
	ErrUnknownSubmission    = newError(KindStateConflict, "unknown_submission", "submission does not exist")
	ErrUnknownToken         = newError(KindStateConflict, "unknown_token", "token was never minted")
	ErrUnknownListing       = newError(KindStateConflict, "unknown_listing", "listing does not exist")
	ErrAlreadyListed        = newError(KindStateConflict, "already_listed", "token already has an active listing")
	ErrListingInactive      = newError(KindStateConflict, "listing_inactive", "listing is not active")
	ErrWrongPayment         = newError(KindStateConflict, "wrong_payment", "payment must equal the listing price exactly")
	ErrSelfPurchase         = newError(KindStateConflict, "self_purchase", "seller cannot buy their own listing")
	ErrInsufficientFunds    = newError(KindStateConflict, "insufficient_funds", "buyer balance cannot cover the payment")
)

// Authorization errors
var (
	ErrNotOwner    = newError(KindAuthorization, "not_owner", "caller does not own the subject of this operation")
	ErrNotSeller   = newError(KindAuthorization, "not_seller", "caller is not the listing seller")
	ErrMissingRole = newError(KindAuthorization, "missing_role", "caller lacks the required capability")
)

// System halt
var (
	ErrPaused = newError(KindSystemHalt, "paused", "ledger is paused")
)

// KindOf extracts the ErrorKind from any error produced by the engine.
// Unknown errors report as empty.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf extracts the stable error code from any engine error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
