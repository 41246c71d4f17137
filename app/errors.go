package app

import "github.com/ayoisaiah/codetime/internal/apperr"

var (
	errDaemonRunning = &apperr.Error{
		Message: "codetime is already running for this database",
	}

	errDaemonUnreachable = &apperr.Error{
		Message: "the database is in use but the control API at %s is not reachable",
	}

	errDaemonRequired = &apperr.Error{
		Message: "stop the running codetime daemon before using %q",
	}

	errMissingArgument = &apperr.Error{
		Message: "missing argument: %s",
	}

	errInvalidFocus = &apperr.Error{
		Message: "focus must be 'on' or 'off', got %q",
	}

	errSyncFailed = &apperr.Error{
		Message: "sync failed",
	}

	errOpenImport = &apperr.Error{
		Message: "unable to open %s",
	}
)
