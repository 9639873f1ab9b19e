package issues

import (
	"errors"

	"github.com/roeyazroel/linear-ide/internal/linearapi"
)

var (
	// ErrNotAuthenticated is returned when no valid API token is available.
	ErrNotAuthenticated = errors.New("not authenticated with Linear")
	// ErrNotFound is returned when an issue no longer exists.
	ErrNotFound = linearapi.ErrNotFound
	// ErrUpdateFailed is returned when the tracker rejects a status update.
	ErrUpdateFailed = errors.New("update failed")
	// ErrIssueNotFoundAfterUpdate is returned when an updated issue cannot be re-fetched.
	ErrIssueNotFoundAfterUpdate = errors.New("issue not found after update")
)

// ErrorKind is the user-facing category of an error.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindAuthentication
	KindNotFound
	KindMutation
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not found"
	case KindMutation:
		return "mutation failure"
	default:
		return "transport"
	}
}

// KindOf classifies err. Errors that match no sentinel are transport errors.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, linearapi.ErrUnauthorized):
		return KindAuthentication
	case errors.Is(err, ErrUpdateFailed), errors.Is(err, ErrIssueNotFoundAfterUpdate):
		return KindMutation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindTransport
	}
}
