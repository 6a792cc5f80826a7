package sensit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when the vendor explicitly rejects
	// the supplied username or password. It is never retried automatically.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrTransport covers network and HTTP-level failures: connection
	// refused, unexpected status, unreadable body. Potentially transient.
	ErrTransport = errors.New("transport failure")

	// ErrTimeout is a transport failure caused by exceeding the bounded
	// request wait. It matches ErrTransport under errors.Is so callers can
	// treat it generically, or single it out for different backoff.
	ErrTimeout = fmt.Errorf("request timed out: %w", ErrTransport)

	// ErrNotLoggedIn is returned when an authenticated call is attempted
	// before a successful Login.
	ErrNotLoggedIn = errors.New("not logged in")
)

// APIError is a non-success result from the vendor API for a reason other
// than rejected credentials, carrying the vendor's description text.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("api error (code %d)", e.Code)
	}
	return e.Description
}

// authFailedMarker is the substring the vendor puts in the result
// description when credentials are rejected.
const authFailedMarker = "Authentication Failed"
