package ledger

import "errors"

// Common errors. Every failure aborts the invocation; callers match the kind
// with errors.Is to decide how to render or retry.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrAlreadyMinted      = errors.New("badge already minted")
	ErrAlreadyCompleted   = errors.New("user already completed this quest")
	ErrAlreadyInitialized = errors.New("platform already initialized")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotActive          = errors.New("quest is not active")
	ErrExpired            = errors.New("quest has expired")
	ErrCapReached         = errors.New("quest max completions reached")
	ErrUninitialized      = errors.New("platform not initialized")
	ErrInvalidInput       = errors.New("invalid input")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrAlreadyMinted, "already_minted"},
	{ErrAlreadyCompleted, "already_completed"},
	{ErrAlreadyInitialized, "already_initialized"},
	{ErrUnauthorized, "unauthorized"},
	{ErrNotActive, "not_active"},
	{ErrExpired, "expired"},
	{ErrCapReached, "cap_reached"},
	{ErrUninitialized, "uninitialized"},
	{ErrInvalidInput, "invalid_input"},
}

// Code returns the machine-readable kind of err, or "internal_error"
func Code(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal_error"
}

// stickyError marks a rejection whose buffered writes still commit.
// Used for lazily detected terminal transitions (expiry, cap).
type stickyError struct {
	err error
}

func (e *stickyError) Error() string { return e.err.Error() }
func (e *stickyError) Unwrap() error { return e.err }

func commitThenFail(err error) error {
	return &stickyError{err: err}
}
