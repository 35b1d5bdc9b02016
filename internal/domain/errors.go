package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for authentication and authorization outcomes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ValidationError reports malformed or out-of-pattern input on a field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports a missing record, echoing the key that was looked up
// so bulk callers can surface it verbatim.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// DuplicateError reports a uniqueness violation on insert. The storage layer
// is the source of truth for this error; application-level existence checks
// are a fast path only.
type DuplicateError struct {
	Resource string
	Key      string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Key)
}

// ConflictError reports an attempt to bind a record that is already bound
// elsewhere, such as linking a profile owned by another account.
type ConflictError struct {
	Resource string
	Detail   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Detail)
}

// PartialRegistrationError reports a two-phase registration that only half
// completed. The store has no cross-entity transaction, so callers must be
// able to see which half succeeded and resume linkage without re-registering.
type PartialRegistrationError struct {
	AccountID string
	ProfileID string
	Cause     error
}

func (e *PartialRegistrationError) Error() string {
	switch {
	case e.ProfileID != "" && e.AccountID == "":
		return fmt.Sprintf("registration incomplete: profile %s created, account creation failed: %v", e.ProfileID, e.Cause)
	case e.AccountID != "" && e.ProfileID == "":
		return fmt.Sprintf("registration incomplete: account %s created, profile creation failed: %v", e.AccountID, e.Cause)
	default:
		return fmt.Sprintf("registration incomplete: %v", e.Cause)
	}
}

func (e *PartialRegistrationError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDuplicate reports whether err is a DuplicateError anywhere in its chain.
func IsDuplicate(err error) bool {
	var dup *DuplicateError
	return errors.As(err, &dup)
}
