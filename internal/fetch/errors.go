package fetch

import (
	"errors"
	"fmt"

	"github.com/nao1215/bakinscan/internal/model"
)

// Error is a classified fetch failure. The orchestrator reads Kind to
// decide whether the work item is marked Failed or skipped as missing,
// and the remaining fields give the user enough context to inspect the
// URL by hand.
type Error struct {
	// URL is the URL the fetch was for.
	URL string

	// Kind classifies the failure.
	Kind model.ErrorKind

	// StatusCode is the HTTP status of the final attempt, 0 when the
	// failure happened below the HTTP layer.
	StatusCode int

	// Attempts is how many attempts were made before giving up.
	Attempts int

	// Err is the underlying error, nil for plain status failures.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Classify extracts the error kind from a fetch error. Unrecognized
// errors count as network failures, the retryable default.
func Classify(err error) model.ErrorKind {
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return model.ErrorKindNetwork
}
