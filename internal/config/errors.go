package config

import "github.com/ayoisaiah/codetime/internal/apperr"

var (
	errConfigOption = &apperr.Error{
		Message: "config option error",
	}

	errConfigValidation = &apperr.Error{
		Message: "config validation error",
	}

	errReadConfig = &apperr.Error{
		Message: "reading config file failed",
	}

	errWriteConfig = &apperr.Error{
		Message: "writing default config failed",
	}

	errInvalidTickInterval = &apperr.Error{
		Message: "tick interval must be between %v and %v",
	}

	errInvalidSyncInterval = &apperr.Error{
		Message: "sync interval (%v) must be at least %v",
	}

	errInvalidTimeout = &apperr.Error{
		Message: "sync timeout must be greater than zero",
	}

	errInvalidEndpoint = &apperr.Error{
		Message: "sync endpoint must be an http(s) URL, got %q",
	}

	errInvalidLogLevel = &apperr.Error{
		Message: "unknown log level: %s (must be debug, info, warn, or error)",
	}

	errEmptyListen = &apperr.Error{
		Message: "%s listen address cannot be empty",
	}

	errInvalidDuration = &apperr.Error{
		Message: "invalid duration for --%s: %s",
	}

	errInvalidDateRange = &apperr.Error{
		Message: "the start time must be earlier than the end time",
	}

	errInvalidPeriod = &apperr.Error{
		Message: "please provide a valid time period: %s",
	}

	errInvalidDate = &apperr.Error{
		Message: "unable to understand date: %s",
	}
)
