// Package apperrors defines the error kinds the connection subsystem
// reports to its callers.
package apperrors

import "fmt"

// ValidationError signals malformed or missing caller input. The caller
// can recover by correcting the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ExchangeError signals a failed authorization-code exchange. Network
// failure, non-2xx response and malformed response body all collapse
// into this one kind; none of them is recoverable without the user
// re-initiating the grant.
type ExchangeError struct {
	Err error
}

func (e *ExchangeError) Error() string { return "token exchange failed: " + e.Err.Error() }
func (e *ExchangeError) Unwrap() error { return e.Err }

// RefreshError signals a failed refresh-token exchange. It is distinct
// from ExchangeError so callers can surface "reconnect" instead of
// "the grant never succeeded".
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string { return "token refresh failed: " + e.Err.Error() }
func (e *RefreshError) Unwrap() error { return e.Err }

// StoreError signals a persistence failure. The underlying error is
// logged server-side; callers only ever see the generic message.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "storage operation failed" }
func (e *StoreError) Unwrap() error { return e.Err }
