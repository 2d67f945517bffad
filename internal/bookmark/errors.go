package bookmark

import (
	"errors"
	"fmt"
)

// Errors returned while mirroring bookmarks.
//
// They are checked with errors.Is():
//
//	if errors.Is(err, bookmark.ErrSourceUnavailable) {
//	    // retry on the next poll
//	}
var (
	// ErrSourceUnavailable is returned when the profile, the places database
	// or the bookmark folder cannot be found, copied or queried.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrDirectoryUnavailable is returned when the mirror directory cannot be listed.
	ErrDirectoryUnavailable = errors.New("mirror directory unavailable")

	// ErrNetwork is returned when a document download fails in transport.
	ErrNetwork = errors.New("network error")

	// ErrNonSuccessStatus is returned when a document download answers with
	// anything other than 200 OK.
	ErrNonSuccessStatus = errors.New("non-success status")

	// ErrFileSystem is returned when a mirror file cannot be written or removed.
	ErrFileSystem = errors.New("file system error")

	// ErrInvalidTitle is returned when a title cannot be used as a file stem.
	ErrInvalidTitle = errors.New("invalid title")
)

// StatusError reports the HTTP status of a failed document download.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNonSuccessStatus
}

// IsFatal returns true if the error should stop the process at startup.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrDirectoryUnavailable)
}

// IsItemRecoverable returns true if the error concerns a single bookmark and
// the rest of the pass should continue.
func IsItemRecoverable(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrNetwork),
		errors.Is(err, ErrNonSuccessStatus),
		errors.Is(err, ErrFileSystem),
		errors.Is(err, ErrInvalidTitle):
		return true
	}
	return false
}
