package tracker

import "github.com/ayoisaiah/codetime/internal/apperr"

var (
	errRehydrate = &apperr.Error{
		Message: "unable to restore tracker state",
	}

	errUnknownEvent = &apperr.Error{
		Message: "unknown event kind: %d",
	}

	errTrackerStopped = &apperr.Error{
		Message: "the tracker is not running",
	}

	errEmptyUsername = &apperr.Error{
		Message: "username cannot be empty",
	}
)
