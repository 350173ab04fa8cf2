package session

import (
	"errors"
	"net/http"
)

var ErrSubmissionInFlight = errors.New("a submission is already in progress")

const genericFailure = "Something went wrong"

// AuthServiceError is a failure reported by the auth service. Message is
// passed through when the service supplied one; otherwise the status text
// is used.
type AuthServiceError struct {
	Message    string
	Status     int
	StatusText string
}

func (e *AuthServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.StatusText != "" {
		return e.StatusText
	}
	if e.Status != 0 {
		if text := http.StatusText(e.Status); text != "" {
			return text
		}
	}
	return genericFailure
}

// asServiceError turns anything the service returned into an
// AuthServiceError, keeping an existing one as is.
func asServiceError(err error) *AuthServiceError {
	var svcErr *AuthServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return &AuthServiceError{Message: err.Error()}
}
