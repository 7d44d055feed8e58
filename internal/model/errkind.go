package model

// ErrorKind classifies why a work item failed. The kind decides retry
// behavior and how the failure is presented in the run summary.
type ErrorKind string

// Error kind constants.
const (
	// ErrorKindUnknown represents an unclassified failure.
	ErrorKindUnknown ErrorKind = ""
	// ErrorKindNetwork covers timeouts, connection errors, and retryable
	// HTTP statuses that persisted through all attempts.
	ErrorKindNetwork ErrorKind = "network_failure"
	// ErrorKindParse means the page was fetched but its title block could
	// not be recognized, so no record could be produced.
	ErrorKindParse ErrorKind = "parse_failure"
	// ErrorKindNotFound means the server answered with a definitive
	// client error for the URL. The page does not exist; retrying is
	// pointless within the run.
	ErrorKindNotFound ErrorKind = "not_found"
	// ErrorKindStorage means the checkpoint store or artifact write
	// failed. Storage failures abort the run rather than mark the item,
	// because progress can no longer be recorded truthfully.
	ErrorKindStorage ErrorKind = "storage_failure"
)

// String returns the string representation of the ErrorKind.
func (k ErrorKind) String() string {
	if k == ErrorKindUnknown {
		return roleUnknownStr
	}
	return string(k)
}

// IsValid returns true if this is a known error kind.
func (k ErrorKind) IsValid() bool {
	switch k {
	case ErrorKindNetwork, ErrorKindParse, ErrorKindNotFound, ErrorKindStorage:
		return true
	default:
		return false
	}
}

// Retryable returns true if another attempt at the same URL could
// plausibly succeed within the same run.
func (k ErrorKind) Retryable() bool {
	return k == ErrorKindNetwork
}

// ParseErrorKind converts a string to ErrorKind.
func ParseErrorKind(s string) ErrorKind {
	switch s {
	case "network_failure":
		return ErrorKindNetwork
	case "parse_failure":
		return ErrorKindParse
	case "not_found":
		return ErrorKindNotFound
	case "storage_failure":
		return ErrorKindStorage
	default:
		return ErrorKindUnknown
	}
}
